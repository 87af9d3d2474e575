package registry

import (
	"github.com/redactyl/dataextractor/internal/decode"
	"github.com/redactyl/dataextractor/internal/filter"
	"github.com/redactyl/dataextractor/internal/patterns"
	"github.com/redactyl/dataextractor/internal/types"
)

// Settings are the global options shared by every profile.
type Settings struct {
	ScopeOnly        bool
	RemoveDuplicates bool
	IgnoreExtensions []string
	IgnoreFiles      []string
	IgnorePaths      []string
	Charset          string
	StrictDecode     bool
	// MaxBytes rejects larger payloads; zero means no limit.
	MaxBytes int64
}

// DefaultSettings mirrors the out-of-the-box behavior: in-scope resources
// only, duplicates removed, media and archives skipped.
func DefaultSettings() Settings {
	return Settings{
		ScopeOnly:        true,
		RemoveDuplicates: true,
		IgnoreExtensions: append([]string(nil), filter.DefaultExtensions...),
		Charset:          decode.UTF8,
	}
}

func (s *snapshot) decodeKey() string {
	key := s.decoder.Charset()
	if s.settings.StrictDecode {
		key += "!"
	}
	return key
}

type snapshot struct {
	settings Settings
	policy   *filter.Policy
	decoder  decode.Decoder
}

func buildSnapshot(s Settings, opts patterns.Options) (*snapshot, []types.Warning) {
	policy, warn := filter.NewPolicy(filter.Spec{
		ScopeOnly:        s.ScopeOnly,
		IgnoreExtensions: s.IgnoreExtensions,
		IgnoreFiles:      s.IgnoreFiles,
		IgnorePaths:      s.IgnorePaths,
	}, opts)
	dec, err := decode.New(s.Charset, s.StrictDecode)
	if err != nil {
		warn = append(warn, types.Warning{Kind: types.ConfigParse, Section: "charset", Key: s.Charset, Err: err})
	}
	return &snapshot{settings: s, policy: policy, decoder: dec}, warn
}
