package source

import "strings"

var defaultExcludeDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"coverage":     true,
	".idea":        true,
	".vscode":      true,
}

// suffixes treated as non-text or noisy artifacts when default excludes are enabled
var defaultExcludeFileSuffixes = []string{
	".map",
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico",
	".woff", ".woff2", ".ttf", ".eot",
	".pdf", ".zip", ".gz", ".tar", ".tgz", ".7z",
	".jar", ".class", ".exe", ".dll", ".so",
	".wasm", ".pyc",
}

// exact filenames commonly safe to exclude when default excludes are enabled
var defaultExcludeFileNames = map[string]bool{
	"yarn.lock":                     true,
	"package-lock.json":             true,
	"pnpm-lock.yaml":                true,
	".DS_Store":                     true,
	".dataextractorcache.json":      true,
	".dataextractor_last_scan.json": true,
	".dataextractor_audit.jsonl":    true,
}

func isDefaultDirExcluded(name string) bool {
	return defaultExcludeDirs[name]
}

func isDefaultFileExcluded(rel string) bool {
	base := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		base = rel[i+1:]
	}
	if defaultExcludeFileNames[base] {
		return true
	}
	lower := strings.ToLower(base)
	if strings.HasSuffix(lower, ".lock") {
		return true
	}
	for _, s := range defaultExcludeFileSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}
