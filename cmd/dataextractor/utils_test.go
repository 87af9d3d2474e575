package dataextractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redactyl/dataextractor/internal/config"
	"github.com/redactyl/dataextractor/internal/patterns"
	"github.com/redactyl/dataextractor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickHelpers(t *testing.T) {
	assert.Equal(t, "cli", pickString("cli", "cfg"))
	assert.Equal(t, "cfg", pickString("", "cfg"))
	assert.Equal(t, 3, pickInt(3, 8))
	assert.Equal(t, 8, pickInt(0, 8))
	assert.Equal(t, int64(9), pickInt64(0, 9))
	assert.Equal(t, time.Second, pickDuration(0, time.Second))
	assert.Equal(t, time.Millisecond, pickDuration(time.Millisecond, time.Second))
	assert.Nil(t, intPtr(0))
	assert.Nil(t, int64Ptr(0))
	assert.Equal(t, 2, *intPtr(2))
}

func TestToSettings(t *testing.T) {
	r := config.Defaults()
	r.MaxBytes = 10
	r.IgnoreFiles = []string{`jquery.*\.js`}
	s := toSettings(r)
	assert.True(t, s.ScopeOnly)
	assert.True(t, s.RemoveDuplicates)
	assert.Equal(t, int64(10), s.MaxBytes)
	assert.Equal(t, r.IgnoreExtensions, s.IgnoreExtensions)
	assert.Equal(t, r.IgnoreFiles, s.IgnoreFiles)
}

func TestNewRegistry_Profiles(t *testing.T) {
	profiles := []config.ProfileConfig{
		{Name: "json", Config: `{"k": "k=(\\w+)"}`},
		{Name: "structured", Rules: []patterns.Entry{{Key: "?v", Pattern: `v=(\w+)`}}, ExcludeList: []string{"^skip$"}},
		{Name: "broken", Config: `{"bad": "(", "k": "k=(\\w+)"}`},
	}
	sink := &warningSink{}
	reg, err := newRegistry(config.Defaults(), profiles, nil, sink, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Stop(context.Background()) })

	infos := reg.Profiles()
	require.Len(t, infos, 3)
	assert.Equal(t, 1, infos[1].Exclusions)
	assert.Equal(t, 1, infos[2].Rules)
	require.Equal(t, 1, sink.count())
	assert.Contains(t, sink.messages()[0], "broken")

	rep, err := reg.Dispatch("https://x.io/a.js", []byte("k=one v=two v=skip"))
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Appended())
}

func TestNewRegistry_OnlyAndEmpty(t *testing.T) {
	profiles := []config.ProfileConfig{{Name: "a", Config: `{"k": "(a)"}`}, {Name: "b", Config: `{"k": "(b)"}`}}
	reg, err := newRegistry(config.Defaults(), profiles, []string{"b"}, &warningSink{}, nil)
	require.NoError(t, err)
	require.Len(t, reg.Profiles(), 1)
	assert.Equal(t, "b", reg.Profiles()[0].Name)
	_ = reg.Stop(context.Background())

	reg, err = newRegistry(config.Defaults(), profiles, []string{"missing"}, &warningSink{}, nil)
	assert.ErrorIs(t, err, errNoProfiles)
	_ = reg.Stop(context.Background())
}

func TestCollectResults_SameNameProfiles(t *testing.T) {
	profiles := []config.ProfileConfig{
		{Name: "dup", Config: `{"a": "a=(\\w+)"}`},
		{Name: "dup", Config: `{"b": "b=(\\w+)"}`},
	}
	reg, err := newRegistry(config.Defaults(), profiles, nil, &warningSink{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Stop(context.Background()) })

	first := reg.Profiles()[0].ID
	require.NoError(t, reg.Seed(first, []string{"a: OLD"}))
	seeded := map[string]int{first: 1}
	_, err = reg.Dispatch("https://x.io/a.js", []byte("a=ONE b=TWO"))
	require.NoError(t, err)

	outs := collectResults(reg, seeded)
	require.Len(t, outs, 2)
	assert.Equal(t, []string{"a: OLD", "a: ONE"}, outs[0].lines)
	assert.Equal(t, []string{"a: ONE"}, outs[0].fresh)
	assert.Equal(t, []string{"b: TWO"}, outs[1].fresh)
	assert.Equal(t, map[string][]string{"dup": {"a: OLD", "a: ONE"}}, byName(outs))
}

func TestWarningSink_CountsEveryWarning(t *testing.T) {
	sink := &warningSink{}
	w := types.Warning{Kind: types.MatchTimeout, Section: "config", Key: "k", Err: errors.New("timeout")}
	sink.add(w)
	sink.add(w)
	assert.Equal(t, 2, sink.count())
	assert.Len(t, sink.messages(), 2)
}

func TestConfigDigest(t *testing.T) {
	fc := config.FileConfig{Profiles: []config.ProfileConfig{{Name: "a", Config: `{"k": "(a)"}`}}}
	r := config.Defaults()
	d1 := configDigest(fc, r)
	assert.Equal(t, d1, configDigest(fc, r))

	fc.Profiles[0].Config = `{"k": "(b)"}`
	assert.NotEqual(t, d1, configDigest(fc, r))

	fc.Profiles[0].Config = `{"k": "(a)"}`
	r.ScopeOnly = false
	assert.NotEqual(t, d1, configDigest(fc, r))
}
