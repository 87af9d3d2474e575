package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/redactyl/dataextractor/internal/engine"
	"github.com/redactyl/dataextractor/internal/filter"
	"github.com/redactyl/dataextractor/internal/patterns"
	"github.com/redactyl/dataextractor/internal/types"
	"github.com/remeh/sizedwaitgroup"
)

var (
	// ErrUnknownProfile is returned for IDs that are not registered.
	ErrUnknownProfile = errors.New("unknown profile")
	// ErrStopped is returned once Stop has been called.
	ErrStopped = errors.New("registry stopped")
)

// Options configure a Registry. The zero value is usable.
type Options struct {
	// Threads bounds concurrent work, both queue workers and the per-payload
	// fan-out to profiles. Zero means GOMAXPROCS.
	Threads int
	// QueueSize is the capacity of the Scan queue.
	QueueSize int
	// Scope decides whether a URL is in scope; nil means everything is.
	Scope filter.ScopeFunc
	// MatchTimeout is the per-match regexp budget, see patterns.Options.
	MatchTimeout time.Duration
	// Settings are the initial global settings; nil means DefaultSettings.
	Settings *Settings
	// OnWarning receives every advisory warning. When nil, warnings are
	// logged.
	OnWarning func(types.Warning)
	// OnReport receives the report of every queued Scan.
	OnReport func(Report)
}

// Report describes what one dispatch did.
type Report struct {
	URL      string
	Verdict  filter.Verdict
	Stats    map[string]types.Stats // by profile ID
	Skipped  []string               // profiles that had already seen this payload
	Warnings []types.Warning
}

// Appended is the total number of lines added across profiles.
func (r Report) Appended() int {
	n := 0
	for _, s := range r.Stats {
		n += s.Appended
	}
	return n
}

type job struct {
	url     string
	payload []byte
}

// Registry owns extraction profiles and dispatches payloads to them.
type Registry struct {
	opts    Options
	threads int
	popts   patterns.Options
	state   atomic.Pointer[snapshot]

	mu       sync.RWMutex
	order    []string
	profiles map[string]*profile
	nextID   int

	stopMu   sync.RWMutex
	stopped  bool
	stopOnce sync.Once
	queue    chan job
	workers  sync.WaitGroup
	inflight sync.WaitGroup
}

// New builds a Registry and starts its queue workers. Warnings from the
// initial settings are delivered to OnWarning.
func New(opts Options) *Registry {
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	size := opts.QueueSize
	if size <= 0 {
		size = threads * 4
	}
	r := &Registry{
		opts:     opts,
		threads:  threads,
		popts:    patterns.Options{MatchTimeout: opts.MatchTimeout},
		profiles: map[string]*profile{},
		queue:    make(chan job, size),
	}
	s := DefaultSettings()
	if opts.Settings != nil {
		s = *opts.Settings
	}
	r.warn(r.UpdateSettings(s))

	r.workers.Add(threads)
	for i := 0; i < threads; i++ {
		go r.worker()
	}
	return r
}

func (r *Registry) worker() {
	defer r.workers.Done()
	for j := range r.queue {
		rep := r.dispatch(j.url, j.payload)
		if r.opts.OnReport != nil {
			r.opts.OnReport(rep)
		}
	}
}

func (r *Registry) warn(ws []types.Warning) {
	for _, w := range ws {
		if r.opts.OnWarning != nil {
			r.opts.OnWarning(w)
			continue
		}
		gologger.Warning().Msgf("%s\n", w.Error())
	}
}

// Settings returns the settings currently in effect.
func (r *Registry) Settings() Settings {
	return r.state.Load().settings
}

// Policy returns the filter policy currently in effect.
func (r *Registry) Policy() *filter.Policy {
	return r.state.Load().policy
}

// UpdateSettings installs a new settings snapshot. Dispatches already
// running keep the snapshot they started with.
func (r *Registry) UpdateSettings(s Settings) []types.Warning {
	snap, warn := buildSnapshot(s, r.popts)
	r.state.Store(snap)
	return warn
}

// AddProfile registers a profile built from the two JSON sections and
// returns its ID. Configuration problems are returned as warnings; the
// profile is registered regardless.
func (r *Registry) AddProfile(name, configJSON, excludeJSON string) (string, []types.Warning) {
	set, warn := patterns.Compile(configJSON, excludeJSON, r.popts)
	return r.add(name, set, configJSON, excludeJSON), types.WithProfile(warn, name)
}

// AddProfileEntries registers a profile from already parsed rules.
func (r *Registry) AddProfileEntries(name string, rules []patterns.Entry, exclude []string) (string, []types.Warning) {
	set, warn := patterns.CompileEntries(rules, exclude, r.popts)
	return r.add(name, set, "", ""), types.WithProfile(warn, name)
}

func (r *Registry) add(name string, set *patterns.Set, config, exclude string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := strconv.Itoa(r.nextID)
	if name == "" {
		name = id
	}
	p := newProfile(id, name)
	p.install(set, config, exclude)
	r.profiles[id] = p
	r.order = append(r.order, id)
	return id
}

// RemoveProfile unregisters a profile and drops its results.
func (r *Registry) RemoveProfile(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, id)
	}
	delete(r.profiles, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// RenameProfile changes a profile's display name.
func (r *Registry) RenameProfile(id, name string) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	p.meta.Lock()
	p.name = name
	p.meta.Unlock()
	return nil
}

// UpdateConfig recompiles a profile's pattern set and swaps it in. Results
// already stored are kept.
func (r *Registry) UpdateConfig(id, configJSON, excludeJSON string) ([]types.Warning, error) {
	p, err := r.get(id)
	if err != nil {
		return nil, err
	}
	set, warn := patterns.Compile(configJSON, excludeJSON, r.popts)
	p.install(set, configJSON, excludeJSON)
	return types.WithProfile(warn, p.displayName()), nil
}

// Lookup finds a profile ID by name.
func (r *Registry) Lookup(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if r.profiles[id].displayName() == name {
			return id, true
		}
	}
	return "", false
}

// Profiles lists profiles in registration order.
func (r *Registry) Profiles() []ProfileInfo {
	ps := r.snapshotProfiles()
	out := make([]ProfileInfo, len(ps))
	for i, p := range ps {
		out[i] = p.info()
	}
	return out
}

// Results returns a profile's stored lines.
func (r *Registry) Results(id string) ([]string, error) {
	p, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return p.store.Lines(), nil
}

// Export writes a profile's lines verbatim to w.
func (r *Registry) Export(id string, w io.Writer) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	_, err = p.store.WriteTo(w)
	return err
}

// Clear empties a profile's result store.
func (r *Registry) Clear(id string) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	p.clear()
	return nil
}

// Seed preloads a profile's store, typically with a previous export, so
// duplicates are detected across sessions.
func (r *Registry) Seed(id string, lines []string) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	p.store.Seed(lines)
	return nil
}

func (r *Registry) get(id string) (*profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, id)
	}
	return p, nil
}

func (r *Registry) snapshotProfiles() []*profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*profile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.profiles[id])
	}
	return out
}

// Scan queues a payload for asynchronous dispatch. It blocks while the
// queue is full and fails once the registry is stopped.
func (r *Registry) Scan(url string, payload []byte) error {
	r.stopMu.RLock()
	defer r.stopMu.RUnlock()
	if r.stopped {
		return ErrStopped
	}
	r.queue <- job{url: url, payload: payload}
	return nil
}

// Dispatch checks eligibility once, then runs every profile over the
// payload and waits for them.
func (r *Registry) Dispatch(url string, payload []byte) (Report, error) {
	r.stopMu.RLock()
	if r.stopped {
		r.stopMu.RUnlock()
		return Report{URL: url}, ErrStopped
	}
	r.inflight.Add(1)
	r.stopMu.RUnlock()
	defer r.inflight.Done()
	return r.dispatch(url, payload), nil
}

// Stop rejects new work, then waits for queued and in-flight dispatches to
// finish or for ctx to end.
func (r *Registry) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() {
		r.stopMu.Lock()
		r.stopped = true
		close(r.queue)
		r.stopMu.Unlock()
	})
	done := make(chan struct{})
	go func() {
		r.workers.Wait()
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) dispatch(url string, payload []byte) Report {
	snap := r.state.Load()
	rep := Report{URL: url, Stats: map[string]types.Stats{}}

	if limit := snap.settings.MaxBytes; limit > 0 && int64(len(payload)) > limit {
		rep.Verdict = filter.Verdict{Reason: filter.ReasonTooLarge, Detail: strconv.FormatInt(limit, 10)}
		gologger.Debug().Msgf("Skipped %s: %d bytes over limit\n", url, len(payload))
		return rep
	}
	rep.Verdict = filter.Check(url, r.opts.Scope, snap.policy)
	if !rep.Verdict.Eligible {
		gologger.Debug().Msgf("Skipped %s: %s %s\n", url, rep.Verdict.Reason, rep.Verdict.Detail)
		return rep
	}

	text, err := snap.decoder.Decode(payload)
	if err != nil {
		// undecodable payloads have no matches
		rep.Warnings = []types.Warning{{Kind: types.PayloadDecode, Section: "payload", Key: url, Err: err}}
		r.warn(rep.Warnings)
		return rep
	}

	dedupe := snap.settings.RemoveDuplicates
	var fp string
	if dedupe {
		// the same bytes decode differently under another charset
		fp = engine.Fingerprint(payload) + "/" + snap.decodeKey()
	}

	type outcome struct {
		stats   types.Stats
		warn    []types.Warning
		skipped bool
	}
	ps := r.snapshotProfiles()
	results := make([]outcome, len(ps))
	swg := sizedwaitgroup.New(r.threads)
	for i, p := range ps {
		swg.Add()
		go func(i int, p *profile) {
			defer swg.Done()
			s, w, skipped := p.extract(text, fp, dedupe)
			results[i] = outcome{stats: s, warn: types.WithProfile(w, p.displayName()), skipped: skipped}
		}(i, p)
	}
	swg.Wait()

	for i, p := range ps {
		o := results[i]
		if o.skipped {
			rep.Skipped = append(rep.Skipped, p.id)
			continue
		}
		rep.Stats[p.id] = o.stats
		rep.Warnings = append(rep.Warnings, o.warn...)
		gologger.Debug().Msgf("%s: %d results, %d filtered, %d new (%s)\n", p.displayName(), o.stats.Raw, o.stats.Filtered, o.stats.Appended, url)
	}
	r.warn(rep.Warnings)
	return rep
}
