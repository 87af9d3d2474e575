package engine

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redactyl/dataextractor/internal/patterns"
	"github.com/redactyl/dataextractor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, config, exclude string) *patterns.Set {
	t.Helper()
	set, warn := patterns.Compile(config, exclude, patterns.Options{})
	require.Empty(t, warn)
	return set
}

func TestRun_LabeledRule(t *testing.T) {
	store := NewStore()
	stats, warn := Run("token=ABC123 other=x", compile(t, `{"k1":"token=(\\w+)"}`, ""), store, true)
	require.Empty(t, warn)
	assert.Equal(t, []string{"k1: ABC123"}, store.Lines())
	assert.Equal(t, types.Stats{Raw: 1, Filtered: 1, Deduped: 1, Appended: 1}, stats)
}

func TestRun_AnonymousRule(t *testing.T) {
	store := NewStore()
	_, warn := Run("see http://a.com and http://b.com", compile(t, `{"?k2":"(https?://\\S+)"}`, `[]`), store, true)
	require.Empty(t, warn)
	assert.Equal(t, []string{"http://a.com", "http://b.com"}, store.Lines())
}

func TestRun_Exclusion(t *testing.T) {
	set := compile(t, `{"k3":"secret=(\\w+)"}`, `["^TESTVALUE$"]`)
	store := NewStore()
	stats, _ := Run("secret=TESTVALUE\nsecret=REAL1", set, store, true)
	assert.Equal(t, []string{"k3: REAL1"}, store.Lines())
	assert.Equal(t, 2, stats.Raw)
	assert.Equal(t, 1, stats.Filtered)
}

func TestRun_DedupeAgainstStore(t *testing.T) {
	set := compile(t, `{"k3":"secret=(\\w+)"}`, `["^TESTVALUE$"]`)
	store := NewStore()
	store.Seed([]string{"k3: REAL1"})
	stats, _ := Run("secret=TESTVALUE secret=REAL1", set, store, true)
	assert.Equal(t, 0, stats.Appended)
	assert.Equal(t, []string{"k3: REAL1"}, store.Lines())
}

func TestRun_Idempotent(t *testing.T) {
	set := compile(t, `{"a":"a=(\\w+)","?u":"(https?://[^\\s\"]+)"}`, "")
	payload := `a=1 a=2 a=1 "http://x.io" http://x.io`
	store := NewStore()
	first, _ := Run(payload, set, store, true)
	assert.Equal(t, 3, first.Appended, "within-batch duplicates dropped")
	second, _ := Run(payload, set, store, true)
	assert.Equal(t, 0, second.Appended)
	assert.Equal(t, []string{"a: 1", "a: 2", "http://x.io"}, store.Lines())
}

func TestRun_NoDedupeKeepsEverything(t *testing.T) {
	set := compile(t, `{"a":"a=(\\w+)"}`, "")
	store := NewStore()
	Run("a=1 a=1", set, store, false)
	Run("a=1", set, store, false)
	assert.Equal(t, []string{"a: 1", "a: 1", "a: 1"}, store.Lines())
}

func TestExtract_FirstLabeledRuleWins(t *testing.T) {
	set := compile(t, `{"?anon":"v=(\\w+)","first":"v=(\\w+)","second":"(\\w+)=x"}`, "")
	res, stats, _ := Extract("v=dup dup=x", set, nil, false)
	require.Equal(t, 3, stats.Raw)
	// anon finds dup, first finds dup, second finds dup: every occurrence
	// carries the first labeled key
	for _, r := range res {
		assert.Equal(t, "first", r.SourceKey)
	}
}

func TestExtract_ExcludedNeverRendered(t *testing.T) {
	set := compile(t, `{"k":"k=(\\S+)","?any":"(\\S+@\\S+)"}`, `["example\\.com"]`)
	res, _, _ := Extract("k=a@example.com k=ok b@EXAMPLE.COM c@real.io", set, nil, true)
	for _, r := range res {
		assert.NotContains(t, strings.ToLower(r.Value), "example.com")
	}
	assert.Equal(t, []types.MatchResult{{Value: "ok", SourceKey: "k"}, {Value: "c@real.io"}}, res)
}

func TestExtract_OrderIsStable(t *testing.T) {
	set := compile(t, `{"b":"b(\\d)","a":"a(\\d)"}`, "")
	payload := "a1 b2 a3 b4"
	first, _, _ := Extract(payload, set, nil, true)
	for i := 0; i < 5; i++ {
		again, _, _ := Extract(payload, set, nil, true)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "b: 2", first[0].Line(), "rule order first, then occurrence order")
}

func TestExtract_TimeoutIsolatedToRule(t *testing.T) {
	set, warn := patterns.Compile(`{"evil":"(a+)+$","ok":"ok=(\\w+)"}`, "", patterns.Options{MatchTimeout: 20 * time.Millisecond})
	require.Empty(t, warn)
	payload := strings.Repeat("a", 40) + "! ok=yes"
	res, _, w := Extract(payload, set, nil, true)
	require.Len(t, w, 1)
	assert.Equal(t, types.MatchTimeout, w[0].Kind)
	assert.Equal(t, "evil", w[0].Key)
	assert.Equal(t, []types.MatchResult{{Value: "yes", SourceKey: "ok"}}, res)
}

func TestExtract_ExclusionTimeoutDropsValue(t *testing.T) {
	set, warn := patterns.Compile(`{"v":"v=(\\S+)","ok":"ok=(\\w+)"}`, `["^(a+)+$"]`, patterns.Options{MatchTimeout: 20 * time.Millisecond})
	require.Empty(t, warn)
	secret := strings.Repeat("a", 40) + "!"
	res, stats, w := Extract("v="+secret+" ok=yes", set, nil, true)

	assert.Equal(t, []types.MatchResult{{Value: "yes", SourceKey: "ok"}}, res)
	assert.Equal(t, 2, stats.Raw)
	assert.Equal(t, 1, stats.Filtered)
	require.Len(t, w, 1)
	assert.Equal(t, types.MatchTimeout, w[0].Kind)
	assert.Equal(t, "exclude", w[0].Section)
	assert.Equal(t, "^(a+)+$", w[0].Key)
	assert.NotContains(t, w[0].Error(), secret)
}

func TestRun_ConcurrentNoDoubleInsert(t *testing.T) {
	set := compile(t, `{"k":"k=(\\w+)"}`, "")
	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Run("k=same k=other", set, store, true)
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"k: same", "k: other"}, store.Lines())
}

func TestStore_WriteToAndClear(t *testing.T) {
	store := NewStore()
	store.Append([]types.MatchResult{{Value: "v1", SourceKey: "k"}, {Value: "v2"}})
	var buf bytes.Buffer
	_, err := store.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "k: v1\nv2\n", buf.String())
	assert.True(t, store.Has("v1", "x: v1"))

	store.Clear()
	assert.Equal(t, 0, store.Len())
	assert.False(t, store.Has("v1", "k: v1"))
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "0000000000000000", Fingerprint(nil))
	assert.Len(t, Fingerprint([]byte("abc")), 16)
	assert.Equal(t, Fingerprint([]byte("abc")), Fingerprint([]byte("abc")))
	assert.NotEqual(t, Fingerprint([]byte("abc")), Fingerprint([]byte("abd")))
}
