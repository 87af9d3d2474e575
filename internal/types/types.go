package types

import "fmt"

// MatchResult is one extracted value. SourceKey is the label of the rule that
// produced it and is empty when the value is rendered without a label.
type MatchResult struct {
	Value     string `json:"value"`
	SourceKey string `json:"source_key,omitempty"`
}

// Line renders the result the way it is stored and exported.
func (m MatchResult) Line() string {
	if m.SourceKey == "" {
		return m.Value
	}
	return m.SourceKey + ": " + m.Value
}

// Stats counts values surviving each stage of one extraction.
type Stats struct {
	Raw      int `json:"raw"`
	Filtered int `json:"filtered"`
	Deduped  int `json:"deduped"`
	Appended int `json:"appended"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Raw += o.Raw
	s.Filtered += o.Filtered
	s.Deduped += o.Deduped
	s.Appended += o.Appended
}

// WarningKind classifies advisory failures. None of them abort extraction.
type WarningKind string

const (
	ConfigParse    WarningKind = "config_parse"
	PatternCompile WarningKind = "pattern_compile"
	PayloadDecode  WarningKind = "payload_decode"
	MatchTimeout   WarningKind = "match_timeout"
)

// Warning is a failure scoped to the smallest unit that caused it: one rule,
// one section of configuration, one profile or one payload.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Profile string      `json:"profile,omitempty"`
	Section string      `json:"section,omitempty"` // config, exclude, ignore_files, payload, ...
	Key     string      `json:"key,omitempty"`     // rule key, pattern text or URL
	Err     error       `json:"-"`
}

func (w Warning) Error() string {
	where := w.Section
	if w.Profile != "" {
		where = w.Profile + ":" + where
	}
	if w.Key != "" {
		return fmt.Sprintf("%s (%s) %q: %v", w.Kind, where, w.Key, w.Err)
	}
	return fmt.Sprintf("%s (%s): %v", w.Kind, where, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// WithProfile returns copies of ws attributed to profile.
func WithProfile(ws []Warning, profile string) []Warning {
	out := make([]Warning, len(ws))
	for i, w := range ws {
		w.Profile = profile
		out[i] = w
	}
	return out
}
