package core

import (
	"github.com/redactyl/dataextractor/internal/engine"
	"github.com/redactyl/dataextractor/internal/filter"
	"github.com/redactyl/dataextractor/internal/patterns"
	"github.com/redactyl/dataextractor/internal/registry"
	"github.com/redactyl/dataextractor/internal/types"
)

// Re-export selected internal types as a stable public API surface.
type (
	Registry    = registry.Registry
	Options     = registry.Options
	Settings    = registry.Settings
	Report      = registry.Report
	ProfileInfo = registry.ProfileInfo
	MatchResult = types.MatchResult
	Stats       = types.Stats
	Warning     = types.Warning
	Verdict     = filter.Verdict
)

var (
	ErrUnknownProfile = registry.ErrUnknownProfile
	ErrStopped        = registry.ErrStopped
)

// New is the stable entrypoint for long-lived extraction.
func New(opts Options) *Registry { return registry.New(opts) }

// DefaultSettings returns the out-of-the-box global settings.
func DefaultSettings() Settings { return registry.DefaultSettings() }

// Extract runs one profile configuration over text without any stored
// state. Duplicates within text are removed when dedupe is set.
func Extract(text, configJSON, excludeJSON string, dedupe bool) ([]MatchResult, []Warning) {
	set, warn := patterns.Compile(configJSON, excludeJSON, patterns.Options{})
	res, _, w := engine.Extract(text, set, nil, dedupe)
	return res, append(warn, w...)
}

// Scope builds a scope predicate from host or host/path globs.
func Scope(globs ...string) filter.ScopeFunc { return filter.GlobScope(globs) }
