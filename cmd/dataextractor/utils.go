package dataextractor

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/redactyl/dataextractor/internal/config"
	"github.com/redactyl/dataextractor/internal/filter"
	"github.com/redactyl/dataextractor/internal/registry"
	"github.com/redactyl/dataextractor/internal/types"
	"golang.org/x/term"
)

var errNoProfiles = errors.New("no profiles configured; run 'dataextractor config init' or pass --config")

// loadConfig resolves the file configuration: an explicit --config path, or
// the local config layered over the global one.
func loadConfig(root string) (config.FileConfig, error) {
	if flagConfig != "" {
		fc, err := config.LoadFile(flagConfig)
		if err != nil {
			return fc, fmt.Errorf("load config %s: %w", flagConfig, err)
		}
		return fc, nil
	}
	var gcfg, lcfg config.FileConfig
	if c, err := config.LoadGlobal(); err == nil {
		gcfg = c
	} else if errors.Is(err, config.ErrDuplicateProfile) {
		return gcfg, fmt.Errorf("global config: %w", err)
	} else {
		gologger.Debug().Msgf("global config: %s", err)
	}
	if c, err := config.LoadLocal(root); err == nil {
		lcfg = c
	} else if errors.Is(err, config.ErrDuplicateProfile) {
		return lcfg, fmt.Errorf("local config: %w", err)
	} else {
		gologger.Debug().Msgf("local config: %s", err)
	}
	return config.Merge(gcfg, lcfg), nil
}

// warningSink logs advisory warnings and counts them. It is safe for use
// from registry workers.
type warningSink struct {
	mu   sync.Mutex
	all  []types.Warning
	seen map[string]bool
}

func (s *warningSink) add(w types.Warning) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	s.all = append(s.all, w)
	// the same broken rule would otherwise be logged once per payload
	if msg := w.Error(); !s.seen[msg] {
		s.seen[msg] = true
		gologger.Warning().Msgf("%s\n", msg)
	}
}

func (s *warningSink) addAll(ws []types.Warning) {
	for _, w := range ws {
		s.add(w)
	}
}

func (s *warningSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.all)
}

func (s *warningSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.all))
	for _, w := range s.all {
		out = append(out, w.Error())
	}
	return out
}

// toSettings maps resolved file configuration to registry settings.
func toSettings(r config.Resolved) registry.Settings {
	return registry.Settings{
		ScopeOnly:        r.ScopeOnly,
		RemoveDuplicates: r.RemoveDuplicates,
		IgnoreExtensions: r.IgnoreExtensions,
		IgnoreFiles:      r.IgnoreFiles,
		IgnorePaths:      r.IgnorePaths,
		Charset:          r.Charset,
		StrictDecode:     r.StrictDecode,
		MaxBytes:         r.MaxBytes,
	}
}

// newRegistry builds a registry from resolved settings and installs the
// configured profiles. only, when non-empty, restricts profiles by name.
func newRegistry(r config.Resolved, profiles []config.ProfileConfig, only []string, sink *warningSink, onReport func(registry.Report)) (*registry.Registry, error) {
	settings := toSettings(r)
	reg := registry.New(registry.Options{
		Threads:      r.Threads,
		Scope:        filter.GlobScope(r.Scope),
		MatchTimeout: r.MatchTimeout,
		Settings:     &settings,
		OnWarning:    sink.add,
		OnReport:     onReport,
	})
	want := map[string]bool{}
	for _, n := range only {
		if n = strings.TrimSpace(n); n != "" {
			want[n] = true
		}
	}
	for _, p := range profiles {
		if len(want) > 0 && !want[p.Name] {
			continue
		}
		var warn []types.Warning
		if p.Structured() {
			_, warn = reg.AddProfileEntries(p.Name, p.Rules, p.ExcludeList)
		} else {
			_, warn = reg.AddProfile(p.Name, p.Config, p.Exclude)
		}
		sink.addAll(warn)
	}
	if len(reg.Profiles()) == 0 {
		return reg, errNoProfiles
	}
	return reg, nil
}

func pickString(cli, fallback string) string {
	if cli != "" {
		return cli
	}
	return fallback
}

func pickInt(cli, fallback int) int {
	if cli != 0 {
		return cli
	}
	return fallback
}

func pickInt64(cli, fallback int64) int64 {
	if cli != 0 {
		return cli
	}
	return fallback
}

func pickDuration(cli, fallback time.Duration) time.Duration {
	if cli != 0 {
		return cli
	}
	return fallback
}

func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func strPtr(s string) *string { return &s }
func boolPtr(v bool) *bool    { return &v }
func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
func int64Ptr(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
