package patterns

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/redactyl/dataextractor/internal/types"
)

// DefaultMatchTimeout bounds a single match attempt of any compiled pattern.
const DefaultMatchTimeout = 250 * time.Millisecond

// ErrNoCaptureGroup is returned for rule patterns that cannot yield a value.
var ErrNoCaptureGroup = errors.New("pattern has no capture group")

// ErrMatchTimeout is wrapped by every error caused by an exhausted match
// budget. regexp2's own error quotes the whole input, so it is replaced.
var ErrMatchTimeout = errors.New("match timeout")

// TimeoutError is returned when an exclusion pattern exhausts its budget.
type TimeoutError struct {
	Pattern string
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("exclude %q: %v", e.Pattern, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Options tune compilation.
type Options struct {
	// MatchTimeout is the per-match budget; zero uses DefaultMatchTimeout,
	// a negative value disables the budget.
	MatchTimeout time.Duration
}

func (o Options) timeout() time.Duration {
	switch {
	case o.MatchTimeout == 0:
		return DefaultMatchTimeout
	case o.MatchTimeout < 0:
		return regexp2.DefaultMatchTimeout
	}
	return o.MatchTimeout
}

// IsAnonymous reports whether key carries the sentinel that suppresses its
// label in rendered output.
func IsAnonymous(key string) bool {
	return strings.HasPrefix(key, "?") || strings.HasPrefix(key, "*")
}

// Matcher is a compiled case-insensitive pattern used for searches.
type Matcher struct {
	Source string
	re     *regexp2.Regexp
}

func compile(src string, opts Options) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pythonGroups(src), regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = opts.timeout()
	return re, nil
}

func matchErr(re *regexp2.Regexp, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w after %v", ErrMatchTimeout, re.MatchTimeout)
}

// CompileMatcher compiles src case-insensitively with the configured budget.
func CompileMatcher(src string, opts Options) (*Matcher, error) {
	re, err := compile(src, opts)
	if err != nil {
		return nil, err
	}
	return &Matcher{Source: src, re: re}, nil
}

// MatchString reports whether the pattern occurs anywhere in s. The error is
// non-nil only when the match budget ran out.
func (m *Matcher) MatchString(s string) (bool, error) {
	ok, err := m.re.MatchString(s)
	return ok, matchErr(m.re, err)
}

// Rule is a named extraction pattern.
type Rule struct {
	Key       string // as configured, sentinel included
	Name      string // Key without the sentinel
	Anonymous bool
	Source    string
	re        *regexp2.Regexp
	group     int
}

// Label is the prefix used when rendering values of this rule; empty for
// anonymous rules.
func (r *Rule) Label() string {
	if r.Anonymous {
		return ""
	}
	return r.Key
}

// FindAll returns the value group of every non-overlapping match, left to
// right. Matches where the group did not participate are skipped. On error
// (match budget exhausted) the partial result must be discarded.
func (r *Rule) FindAll(text string) ([]string, error) {
	var out []string
	m, err := r.re.FindStringMatch(text)
	for m != nil && err == nil {
		if g := m.GroupByNumber(r.group); g != nil && len(g.Captures) > 0 {
			out = append(out, g.String())
		}
		m, err = r.re.FindNextMatch(m)
	}
	if err != nil {
		return nil, matchErr(r.re, err)
	}
	return out, nil
}

func compileRule(e Entry, opts Options) (*Rule, error) {
	re, err := compile(e.Pattern, opts)
	if err != nil {
		return nil, err
	}
	group := valueGroup(re, pythonGroups(e.Pattern))
	if group <= 0 {
		return nil, ErrNoCaptureGroup
	}
	name := e.Key
	anon := IsAnonymous(name)
	if anon {
		name = name[1:]
	}
	return &Rule{Key: e.Key, Name: name, Anonymous: anon, Source: e.Pattern, re: re, group: group}, nil
}

// valueGroup is the number of the leftmost capturing group in src. The
// engine numbers named groups after unnamed ones, so the position in the
// pattern has to be recovered from the source.
func valueGroup(re *regexp2.Regexp, src string) int {
	name, named, ok := leftmostGroup(src)
	switch {
	case !ok:
		return 0
	case named:
		return re.GroupNumberFromName(name)
	}
	return 1
}

func leftmostGroup(src string) (name string, named, ok bool) {
	inClass := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
			// a leading ] is a literal member
			if i+1 < len(src) && src[i+1] == '^' {
				i++
			}
			if i+1 < len(src) && src[i+1] == ']' {
				i++
			}
		case c == '(':
			rest := src[i+1:]
			if !strings.HasPrefix(rest, "?") {
				return "", false, true
			}
			var term byte
			switch {
			case strings.HasPrefix(rest, "?<") && !strings.HasPrefix(rest, "?<=") && !strings.HasPrefix(rest, "?<!"):
				rest, term = rest[2:], '>'
			case strings.HasPrefix(rest, "?'"):
				rest, term = rest[2:], '\''
			default:
				continue
			}
			if end := strings.IndexByte(rest, term); end > 0 {
				return rest[:end], true, true
			}
			return "", false, false
		}
	}
	return "", false, false
}

// pythonGroups rewrites Python re group syntax, (?P<name>...) and
// (?P=name), into the equivalent .NET forms. Escapes and character classes
// are left alone.
func pythonGroups(src string) string {
	if !strings.Contains(src, "(?P") {
		return src
	}
	var b strings.Builder
	inClass := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\\':
			b.WriteByte(c)
			if i+1 < len(src) {
				i++
				b.WriteByte(src[i])
			}
			continue
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
			b.WriteByte(c)
			for _, lead := range []byte{'^', ']'} {
				if i+1 < len(src) && src[i+1] == lead {
					i++
					b.WriteByte(lead)
				}
			}
			continue
		case strings.HasPrefix(src[i:], "(?P<"):
			b.WriteString("(?<")
			i += 3
			continue
		case strings.HasPrefix(src[i:], "(?P="):
			if end := strings.IndexByte(src[i:], ')'); end > 0 {
				b.WriteString(`\k<` + src[i+4:i+end] + ">")
				i += end
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Set is an immutable compiled profile configuration.
type Set struct {
	rules      []*Rule
	exclusions []*Matcher
}

// Empty is a Set with no rules and no exclusions.
var Empty = &Set{}

// Rules returns the rules in declaration order. Callers must not modify it.
func (s *Set) Rules() []*Rule { return s.rules }

// Exclusions returns the compiled exclusion patterns.
func (s *Set) Exclusions() []*Matcher { return s.exclusions }

// Excluded reports whether v matches any exclusion pattern. An exclusion
// that exhausts its budget counts as a match and its error is returned so
// the caller can surface it.
func (s *Set) Excluded(v string) (bool, error) {
	for _, x := range s.exclusions {
		ok, err := x.MatchString(v)
		if err != nil {
			return true, &TimeoutError{Pattern: x.Source, Err: err}
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Compile parses both JSON sections and compiles them. Problems in one
// section, or in one pattern, never affect the rest.
func Compile(configJSON, excludeJSON string, opts Options) (*Set, []types.Warning) {
	entries, warn := ParseConfig(configJSON)
	exclude, w2 := ParseList(excludeJSON, "exclude")
	set, w3 := CompileEntries(entries, exclude, opts)
	warn = append(warn, w2...)
	return set, append(warn, w3...)
}

// CompileEntries compiles already parsed rules. A repeated key keeps its
// first position and its last pattern.
func CompileEntries(entries []Entry, exclude []string, opts Options) (*Set, []types.Warning) {
	var warn []types.Warning
	order := make([]string, 0, len(entries))
	latest := make(map[string]string, len(entries))
	for _, e := range entries {
		if _, ok := latest[e.Key]; !ok {
			order = append(order, e.Key)
		}
		latest[e.Key] = e.Pattern
	}

	set := &Set{}
	for _, k := range order {
		r, err := compileRule(Entry{Key: k, Pattern: latest[k]}, opts)
		if err != nil {
			warn = append(warn, types.Warning{Kind: types.PatternCompile, Section: "config", Key: k, Err: err})
			continue
		}
		set.rules = append(set.rules, r)
	}
	for _, src := range exclude {
		m, err := CompileMatcher(src, opts)
		if err != nil {
			warn = append(warn, types.Warning{Kind: types.PatternCompile, Section: "exclude", Key: src, Err: err})
			continue
		}
		set.exclusions = append(set.exclusions, m)
	}
	return set, warn
}
