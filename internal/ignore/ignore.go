// Package ignore reads .dataextractorignore files: one glob per line,
// gitignore-style. Blank lines and # comments are skipped, a trailing slash
// matches a directory and everything under it, and a pattern without a
// slash matches the base name at any depth.
package ignore

import (
	"bufio"
	"os"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// FileName is the ignore file looked up at the scan root.
const FileName = ".dataextractorignore"

type Matcher struct {
	globs []string
}

// Load parses path. A missing file yields an empty matcher and the error.
func Load(path string) (Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		return Matcher{}, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return New(lines), sc.Err()
}

// New builds a matcher from pattern lines.
func New(lines []string) Matcher {
	var m Matcher
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		l = strings.TrimPrefix(l, "/")
		if strings.HasSuffix(l, "/") {
			dir := strings.TrimSuffix(l, "/")
			m.globs = append(m.globs, dir+"/**", "**/"+dir+"/**")
			continue
		}
		if !strings.Contains(l, "/") {
			m.globs = append(m.globs, "**/"+l)
		}
		m.globs = append(m.globs, l)
	}
	return m
}

// Match reports whether the slash-separated relative path is ignored.
func (m Matcher) Match(rel string) bool {
	for _, g := range m.globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// Empty reports whether the matcher has no patterns.
func (m Matcher) Empty() bool { return len(m.globs) == 0 }
