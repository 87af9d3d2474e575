package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redactyl/dataextractor/internal/decode"
	"github.com/redactyl/dataextractor/internal/filter"
	"github.com/redactyl/dataextractor/internal/patterns"
	"github.com/redactyl/dataextractor/internal/types"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the schema version written by this build.
const CurrentVersion = 1

// FileConfig is the on-disk YAML configuration shape.
type FileConfig struct {
	Version  int             `yaml:"version"`
	Settings *SettingsConfig `yaml:"settings,omitempty"`
	Profiles []ProfileConfig `yaml:"profiles,omitempty"`
}

// SettingsConfig holds the global options. Nil fields take defaults.
type SettingsConfig struct {
	ScopeOnly        *bool    `yaml:"scope_only,omitempty"`
	RemoveDuplicates *bool    `yaml:"remove_duplicates,omitempty"`
	IgnoreExtensions *List    `yaml:"ignore_extensions,omitempty"`
	IgnoreFiles      *List    `yaml:"ignore_files,omitempty"`
	IgnorePaths      []string `yaml:"ignore_paths,omitempty"`
	Scope            []string `yaml:"scope,omitempty"`
	Charset          *string  `yaml:"charset,omitempty"`
	StrictDecode     *bool    `yaml:"strict_decode,omitempty"`
	MatchTimeout     *string  `yaml:"match_timeout,omitempty"`
	MaxBytes         *int64   `yaml:"max_bytes,omitempty"`
	Threads          *int     `yaml:"threads,omitempty"`
}

// ProfileConfig is one extraction profile. Config and Exclude hold the JSON
// text an operator would paste; Rules and ExcludeList are the structured
// YAML alternative and are used when Config/Exclude are empty.
type ProfileConfig struct {
	Name        string           `yaml:"name"`
	Config      string           `yaml:"config,omitempty"`
	Exclude     string           `yaml:"exclude,omitempty"`
	Rules       []patterns.Entry `yaml:"rules,omitempty"`
	ExcludeList []string         `yaml:"exclude_list,omitempty"`
}

// Structured reports whether the profile uses the YAML rule form.
func (p ProfileConfig) Structured() bool {
	return strings.TrimSpace(p.Config) == "" && strings.TrimSpace(p.Exclude) == "" &&
		(len(p.Rules) > 0 || len(p.ExcludeList) > 0)
}

// List accepts either a YAML sequence or a single string. A string is read
// as a JSON array when it looks like one and as comma-separated items
// otherwise, which covers both legacy settings forms.
type List struct {
	Items []string
	// Raw is the scalar form as written, empty for sequences.
	Raw string
}

func (l *List) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		return n.Decode(&l.Items)
	case yaml.ScalarNode:
		l.Raw = n.Value
		return nil
	}
	return fmt.Errorf("line %d: expected a list or a string", n.Line)
}

func (l List) MarshalYAML() (interface{}, error) {
	if l.Raw != "" {
		return l.Raw, nil
	}
	return l.Items, nil
}

// Resolve expands the list. section names it in warnings.
func (l *List) Resolve(section string) ([]string, []types.Warning) {
	if l == nil {
		return nil, nil
	}
	if l.Raw == "" {
		return l.Items, nil
	}
	raw := strings.TrimSpace(l.Raw)
	if strings.HasPrefix(raw, "[") {
		return patterns.ParseList(raw, section)
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// Resolved is the effective configuration with defaults applied.
type Resolved struct {
	ScopeOnly        bool
	RemoveDuplicates bool
	IgnoreExtensions []string
	IgnoreFiles      []string
	IgnorePaths      []string
	Scope            []string
	Charset          string
	StrictDecode     bool
	MatchTimeout     time.Duration
	MaxBytes         int64
	Threads          int
}

// Defaults returns the effective configuration of an empty file.
func Defaults() Resolved {
	return Resolved{
		ScopeOnly:        true,
		RemoveDuplicates: true,
		IgnoreExtensions: append([]string(nil), filter.DefaultExtensions...),
		Charset:          decode.UTF8,
		MatchTimeout:     patterns.DefaultMatchTimeout,
	}
}

// Resolve applies defaults. Sections that fail to parse degrade to their
// defaults (or empty) and are reported as warnings.
func (fc FileConfig) Resolve() (Resolved, []types.Warning) {
	r := Defaults()
	s := fc.Settings
	if s == nil {
		return r, nil
	}
	var warn []types.Warning
	if s.ScopeOnly != nil {
		r.ScopeOnly = *s.ScopeOnly
	}
	if s.RemoveDuplicates != nil {
		r.RemoveDuplicates = *s.RemoveDuplicates
	}
	if s.IgnoreExtensions != nil {
		exts, w := s.IgnoreExtensions.Resolve("ignore_extensions")
		warn = append(warn, w...)
		r.IgnoreExtensions = filter.NormalizeExtensions(exts)
	}
	if s.IgnoreFiles != nil {
		files, w := s.IgnoreFiles.Resolve("ignore_files")
		warn = append(warn, w...)
		r.IgnoreFiles = files
	}
	r.IgnorePaths = s.IgnorePaths
	r.Scope = s.Scope
	if s.Charset != nil && *s.Charset != "" {
		r.Charset = *s.Charset
	}
	if s.StrictDecode != nil {
		r.StrictDecode = *s.StrictDecode
	}
	if s.MatchTimeout != nil {
		d, err := time.ParseDuration(*s.MatchTimeout)
		if err != nil {
			warn = append(warn, types.Warning{Kind: types.ConfigParse, Section: "match_timeout", Key: *s.MatchTimeout, Err: err})
		} else {
			r.MatchTimeout = d
		}
	}
	if s.MaxBytes != nil {
		r.MaxBytes = *s.MaxBytes
	}
	if s.Threads != nil {
		r.Threads = *s.Threads
	}
	return r, warn
}

// Parse decodes YAML configuration. Unknown future versions are rejected.
func Parse(b []byte) (FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Version > CurrentVersion {
		return cfg, fmt.Errorf("config version %d is newer than supported version %d", cfg.Version, CurrentVersion)
	}
	if err := cfg.checkNames(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ErrDuplicateProfile is returned when two profiles share a name. Results
// are persisted and exported by name, so names must be unique.
var ErrDuplicateProfile = errors.New("duplicate profile name")

func (c FileConfig) checkNames() error {
	seen := map[string]bool{}
	for _, p := range c.Profiles {
		if p.Name == "" {
			continue
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateProfile, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, err
	}
	return Parse(b)
}

// SaveFile writes cfg as YAML.
func SaveFile(path string, cfg FileConfig) error {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadLocal searches for a project-local config file in the given root.
// It supports .dataextractor.yml/.yaml and dataextractor.yml/.yaml.
func LoadLocal(root string) (FileConfig, error) {
	for _, name := range []string{".dataextractor.yml", ".dataextractor.yaml", "dataextractor.yml", "dataextractor.yaml"} {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return FileConfig{}, errors.New("no local config")
}

// LoadGlobal loads the global config file from XDG base directory or ~/.config.
func LoadGlobal() (FileConfig, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return FileConfig{}, errors.New("no config dir")
	}
	p := filepath.Join(base, "dataextractor", "config.yml")
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return FileConfig{}, errors.New("no global config")
}

// Merge layers local over global: settings fields set locally win, and
// local profiles replace global ones of the same name.
func Merge(global, local FileConfig) FileConfig {
	out := FileConfig{Version: CurrentVersion}
	switch {
	case global.Settings == nil:
		out.Settings = local.Settings
	case local.Settings == nil:
		out.Settings = global.Settings
	default:
		s := *global.Settings
		l := local.Settings
		if l.ScopeOnly != nil {
			s.ScopeOnly = l.ScopeOnly
		}
		if l.RemoveDuplicates != nil {
			s.RemoveDuplicates = l.RemoveDuplicates
		}
		if l.IgnoreExtensions != nil {
			s.IgnoreExtensions = l.IgnoreExtensions
		}
		if l.IgnoreFiles != nil {
			s.IgnoreFiles = l.IgnoreFiles
		}
		if l.IgnorePaths != nil {
			s.IgnorePaths = l.IgnorePaths
		}
		if l.Scope != nil {
			s.Scope = l.Scope
		}
		if l.Charset != nil {
			s.Charset = l.Charset
		}
		if l.StrictDecode != nil {
			s.StrictDecode = l.StrictDecode
		}
		if l.MatchTimeout != nil {
			s.MatchTimeout = l.MatchTimeout
		}
		if l.MaxBytes != nil {
			s.MaxBytes = l.MaxBytes
		}
		if l.Threads != nil {
			s.Threads = l.Threads
		}
		out.Settings = &s
	}
	seen := map[string]bool{}
	for _, p := range local.Profiles {
		seen[p.Name] = true
	}
	for _, p := range global.Profiles {
		if !seen[p.Name] {
			out.Profiles = append(out.Profiles, p)
		}
	}
	out.Profiles = append(out.Profiles, local.Profiles...)
	return out
}
