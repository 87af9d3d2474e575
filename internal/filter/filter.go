// Package filter decides whether a resource is eligible for extraction at
// all: scope, ignored extensions, ignored file patterns and ignored path
// globs. Policies are immutable snapshots shared by every profile.
package filter

import (
	"net/url"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
	"github.com/redactyl/dataextractor/internal/patterns"
	"github.com/redactyl/dataextractor/internal/types"
)

// DefaultExtensions are skipped unless configured otherwise: media, fonts,
// documents, archives and binaries.
var DefaultExtensions = ParseExtensions("css,ico,gif,jpg,jpeg,png,bmp,svg,avi,mpg,mpeg,mp3,m3u8,woff,woff2,ttf,eot,mp4,wav,mov,wmv,doc,xls,pdf,zip,tar,7z,rar,tgz,gz,exe,rtp")

// ScopeFunc reports whether a URL belongs to the current target set.
type ScopeFunc func(rawURL string) bool

// Reason names the check that rejected a resource.
type Reason string

const (
	ReasonScope     Reason = "out_of_scope"
	ReasonExtension Reason = "ignored_extension"
	ReasonFile      Reason = "ignored_file"
	ReasonPath      Reason = "ignored_path"
	ReasonTooLarge  Reason = "too_large"
)

// Verdict is the outcome of an eligibility check. Detail holds the
// extension, pattern or glob responsible for a rejection.
type Verdict struct {
	Eligible bool   `json:"eligible"`
	Reason   Reason `json:"reason,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Spec is the uncompiled form of a Policy.
type Spec struct {
	ScopeOnly        bool
	IgnoreExtensions []string
	IgnoreFiles      []string
	IgnorePaths      []string
}

// Policy is a compiled, read-only filter configuration.
type Policy struct {
	scopeOnly  bool
	extensions []string
	files      []*patterns.Matcher
	paths      []string
}

// NewPolicy compiles spec. Invalid file patterns or path globs are dropped
// individually and reported.
func NewPolicy(spec Spec, opts patterns.Options) (*Policy, []types.Warning) {
	var warn []types.Warning
	p := &Policy{scopeOnly: spec.ScopeOnly, extensions: NormalizeExtensions(spec.IgnoreExtensions)}
	for _, src := range spec.IgnoreFiles {
		m, err := patterns.CompileMatcher(src, opts)
		if err != nil {
			warn = append(warn, types.Warning{Kind: types.PatternCompile, Section: "ignore_files", Key: src, Err: err})
			continue
		}
		p.files = append(p.files, m)
	}
	for _, g := range spec.IgnorePaths {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if !doublestar.ValidatePattern(g) {
			warn = append(warn, types.Warning{Kind: types.PatternCompile, Section: "ignore_paths", Key: g, Err: doublestar.ErrBadPattern})
			continue
		}
		p.paths = append(p.paths, g)
	}
	return p, warn
}

// ScopeOnly reports whether out-of-scope resources are rejected.
func (p *Policy) ScopeOnly() bool { return p.scopeOnly }

// Extensions returns the normalized ignored extensions.
func (p *Policy) Extensions() []string { return p.extensions }

// ParseExtensions splits the legacy comma-separated form ("css,png").
func ParseExtensions(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return NormalizeExtensions(strings.Split(s, ","))
}

// NormalizeExtensions lowercases, trims and prefixes each extension with a
// dot, dropping blanks and repeats.
func NormalizeExtensions(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || e == "." {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// Check runs the checks in order and stops at the first rejection.
func Check(rawURL string, scope ScopeFunc, p *Policy) Verdict {
	for _, check := range checks {
		if v := check(rawURL, scope, p); !v.Eligible {
			return v
		}
	}
	return Verdict{Eligible: true}
}

// Diagnose runs every check and returns all rejections; empty means eligible.
func Diagnose(rawURL string, scope ScopeFunc, p *Policy) []Verdict {
	var out []Verdict
	for _, check := range checks {
		if v := check(rawURL, scope, p); !v.Eligible {
			out = append(out, v)
		}
	}
	return out
}

var checks = []func(string, ScopeFunc, *Policy) Verdict{checkScope, checkExtension, checkFile, checkPath}

var eligible = Verdict{Eligible: true}

func checkScope(rawURL string, scope ScopeFunc, p *Policy) Verdict {
	if p.scopeOnly && scope != nil && !scope(rawURL) {
		return Verdict{Reason: ReasonScope}
	}
	return eligible
}

func checkExtension(rawURL string, _ ScopeFunc, p *Policy) Verdict {
	lower := strings.ToLower(urlPath(rawURL))
	for _, ext := range p.extensions {
		if strings.HasSuffix(lower, ext) {
			return Verdict{Reason: ReasonExtension, Detail: ext}
		}
	}
	return eligible
}

func checkFile(rawURL string, _ ScopeFunc, p *Policy) Verdict {
	for _, m := range p.files {
		// a pattern that runs out of budget does not reject the resource
		if ok, err := m.MatchString(rawURL); err == nil && ok {
			return Verdict{Reason: ReasonFile, Detail: m.Source}
		}
	}
	return eligible
}

func checkPath(rawURL string, _ ScopeFunc, p *Policy) Verdict {
	if len(p.paths) == 0 {
		return eligible
	}
	if g, ok := matchAnyGlob(strings.TrimPrefix(urlPath(rawURL), "/"), p.paths); ok {
		return Verdict{Reason: ReasonPath, Detail: g}
	}
	return eligible
}

// urlPath returns the path component of rawURL. Strings that do not parse
// as URLs are treated as paths with any query or fragment removed.
func urlPath(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if u.Opaque != "" {
			return u.Opaque
		}
		return u.Path
	}
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func matchAnyGlob(p string, globs []string) (string, bool) {
	base := p
	if i := strings.LastIndex(p, "/"); i >= 0 {
		base = p[i+1:]
	}
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, p); ok {
			return g, true
		}
		if ok, _ := doublestar.Match(g, base); ok {
			return g, true
		}
	}
	return "", false
}
