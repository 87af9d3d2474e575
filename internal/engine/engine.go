package engine

import (
	"errors"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/redactyl/dataextractor/internal/patterns"
	"github.com/redactyl/dataextractor/internal/types"
)

// Lookup answers whether a value was already accepted. line is the value as
// it would be rendered in this extraction.
type Lookup interface {
	Has(value, line string) bool
}

type raw struct {
	value string
	label string
}

// Extract runs set over text and returns the accepted results in order.
// existing may be nil. Rules and exclusions that exhaust their match budget
// are reported as warnings; a rule that does so contributes nothing.
func Extract(text string, set *patterns.Set, existing Lookup, dedupe bool) ([]types.MatchResult, types.Stats, []types.Warning) {
	var (
		stats  types.Stats
		warn   []types.Warning
		values []string
	)
	// first labeled rule, in declaration order, owns the label of a value
	labels := map[string]string{}
	for _, r := range set.Rules() {
		found, err := r.FindAll(text)
		if err != nil {
			warn = append(warn, types.Warning{Kind: types.MatchTimeout, Section: "config", Key: r.Key, Err: err})
			continue
		}
		label := r.Label()
		for _, v := range found {
			values = append(values, v)
			if _, ok := labels[v]; !ok && label != "" {
				labels[v] = label
			}
		}
	}
	stats.Raw = len(values)

	var filtered []string
	for _, v := range values {
		excluded, err := set.Excluded(v)
		if err != nil {
			// key on the pattern; the value itself may be a secret
			w := types.Warning{Kind: types.MatchTimeout, Section: "exclude", Err: err}
			var te *patterns.TimeoutError
			if errors.As(err, &te) {
				w.Key, w.Err = te.Pattern, te.Err
			}
			warn = append(warn, w)
		}
		if !excluded {
			filtered = append(filtered, v)
		}
	}
	stats.Filtered = len(filtered)

	out := make([]types.MatchResult, 0, len(filtered))
	seen := map[string]bool{}
	for _, v := range filtered {
		res := types.MatchResult{Value: v, SourceKey: labels[v]}
		if dedupe {
			if seen[v] || (existing != nil && existing.Has(v, res.Line())) {
				continue
			}
			seen[v] = true
		}
		out = append(out, res)
	}
	stats.Deduped = len(out)
	return out, stats, warn
}

// Run extracts from text and appends the results to store. Reading the store
// for deduplication and appending happen under the store lock, so concurrent
// runs against one store never insert the same value twice.
func Run(text string, set *patterns.Set, store *Store, dedupe bool) (types.Stats, []types.Warning) {
	store.mu.Lock()
	defer store.mu.Unlock()
	res, stats, warn := Extract(text, set, lockedLookup{store}, dedupe)
	store.appendLocked(res)
	stats.Appended = len(res)
	return stats, warn
}

// Fingerprint is a short stable digest of a payload.
func Fingerprint(b []byte) string {
	if len(b) == 0 {
		return "0000000000000000"
	}
	sum := xxhash.Sum64(b)
	var buf [16]byte
	const hex = "0123456789abcdef"
	for i := 15; i >= 0; i-- {
		buf[i] = hex[sum&0xF]
		sum >>= 4
	}
	return string(buf[:])
}
