package filter

import (
	"net/url"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// GlobScope builds a ScopeFunc from host or host/path globs such as
// "*.example.com" or "example.com/api/**". Plain paths (no scheme) are
// matched as they are. With no globs everything is in scope.
func GlobScope(globs []string) ScopeFunc {
	var clean []string
	for _, g := range globs {
		if g = strings.TrimSpace(g); g != "" {
			clean = append(clean, strings.ToLower(g))
		}
	}
	if len(clean) == 0 {
		return nil
	}
	return func(rawURL string) bool {
		for _, c := range scopeCandidates(rawURL) {
			for _, g := range clean {
				if ok, _ := doublestar.Match(g, c); ok {
					return true
				}
			}
		}
		return false
	}
}

func scopeCandidates(rawURL string) []string {
	lower := strings.ToLower(rawURL)
	u, err := url.Parse(lower)
	if err != nil || u.Host == "" {
		return []string{strings.TrimPrefix(lower, "/"), lower}
	}
	host := u.Hostname()
	return []string{host, host + u.Path, lower}
}
