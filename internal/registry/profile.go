package registry

import (
	"sync"
	"sync/atomic"

	"github.com/redactyl/dataextractor/internal/engine"
	"github.com/redactyl/dataextractor/internal/patterns"
	"github.com/redactyl/dataextractor/internal/types"
)

// ProfileInfo is a read-only view of a profile.
type ProfileInfo struct {
	ID         string
	Name       string
	Rules      int
	Exclusions int
	Lines      int
	Totals     types.Stats
	Payloads   int
	Config     string
	Exclude    string
}

// maxSeen bounds the per-profile payload skip set; it is reset when full.
const maxSeen = 1 << 16

type profile struct {
	id    string
	set   atomic.Pointer[patterns.Set]
	store *engine.Store

	meta    sync.RWMutex
	name    string
	config  string
	exclude string

	// run serializes extractions; guards seen, totals and payloads
	run      sync.Mutex
	seen     map[string]bool
	totals   types.Stats
	payloads int
}

func newProfile(id, name string) *profile {
	p := &profile{id: id, name: name, store: engine.NewStore(), seen: map[string]bool{}}
	p.set.Store(patterns.Empty)
	return p
}

func (p *profile) install(set *patterns.Set, config, exclude string) {
	p.run.Lock()
	p.set.Store(set)
	p.seen = map[string]bool{}
	p.run.Unlock()

	p.meta.Lock()
	p.config, p.exclude = config, exclude
	p.meta.Unlock()
}

// extract runs the current pattern set over text. With dedupe on, a payload
// already seen under the current set is skipped since it cannot add lines.
func (p *profile) extract(text, fingerprint string, dedupe bool) (types.Stats, []types.Warning, bool) {
	p.run.Lock()
	defer p.run.Unlock()
	if dedupe && fingerprint != "" && p.seen[fingerprint] {
		return types.Stats{}, nil, true
	}
	stats, warn := engine.Run(text, p.set.Load(), p.store, dedupe)
	if dedupe && fingerprint != "" && !timedOut(warn) {
		if len(p.seen) >= maxSeen {
			p.seen = map[string]bool{}
		}
		p.seen[fingerprint] = true
	}
	p.totals.Add(stats)
	p.payloads++
	return stats, warn, false
}

// timedOut reports whether a run was cut short, in which case a retry of
// the same payload may still produce lines.
func timedOut(warn []types.Warning) bool {
	for _, w := range warn {
		if w.Kind == types.MatchTimeout {
			return true
		}
	}
	return false
}

func (p *profile) clear() {
	p.run.Lock()
	defer p.run.Unlock()
	p.store.Clear()
	p.seen = map[string]bool{}
}

func (p *profile) info() ProfileInfo {
	set := p.set.Load()
	p.meta.RLock()
	info := ProfileInfo{
		ID:         p.id,
		Name:       p.name,
		Rules:      len(set.Rules()),
		Exclusions: len(set.Exclusions()),
		Config:     p.config,
		Exclude:    p.exclude,
	}
	p.meta.RUnlock()
	p.run.Lock()
	info.Totals = p.totals
	info.Payloads = p.payloads
	p.run.Unlock()
	info.Lines = p.store.Len()
	return info
}

func (p *profile) displayName() string {
	p.meta.RLock()
	defer p.meta.RUnlock()
	return p.name
}
