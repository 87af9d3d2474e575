// Package source turns local files and streams into payloads for the
// registry. Each input carries the key the resource filter sees: the
// slash-separated relative path, or BaseURL joined with it.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
	"github.com/redactyl/dataextractor/internal/ignore"
)

// Config selects the files to read.
type Config struct {
	// Root is a directory or a single file.
	Root string
	// IncludeGlobs and ExcludeGlobs are comma-separated doublestar globs.
	IncludeGlobs string
	ExcludeGlobs string
	// MaxBytes skips larger files without reading them; zero means no limit.
	MaxBytes        int64
	DefaultExcludes bool
	// SkipBinary drops files with NUL bytes or a binary MIME type.
	SkipBinary bool
	// BaseURL, when set, prefixes the relative path to form the input URL.
	BaseURL string
	Ignore  ignore.Matcher
}

// Input is one payload ready for dispatch.
type Input struct {
	Path string
	URL  string
	Data []byte
}

// ErrTooLarge is returned by Read when a stream exceeds its limit.
var ErrTooLarge = errors.New("input exceeds size limit")

// Walk visits every selected file under cfg.Root in lexical order. Unreadable
// entries are skipped; an error from handle or a cancelled ctx stops the walk.
func Walk(ctx context.Context, cfg Config, handle func(Input) error) error {
	st, err := os.Stat(cfg.Root)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		if cfg.MaxBytes > 0 && st.Size() > cfg.MaxBytes {
			return nil
		}
		b, err := os.ReadFile(cfg.Root)
		if err != nil {
			return err
		}
		if cfg.SkipBinary && (looksBinary(b) || looksNonTextMIME(cfg.Root, b)) {
			return nil
		}
		rel := filepath.ToSlash(filepath.Base(cfg.Root))
		return handle(Input{Path: cfg.Root, URL: cfg.inputURL(rel), Data: b})
	}
	return filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != cfg.Root && cfg.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, _ := filepath.Rel(cfg.Root, p)
		rel = filepath.ToSlash(rel)
		if !cfg.selected(rel) {
			return nil
		}
		if info, _ := d.Info(); info != nil && cfg.MaxBytes > 0 && info.Size() > cfg.MaxBytes {
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		if cfg.SkipBinary && (looksBinary(b) || looksNonTextMIME(rel, b)) {
			return nil
		}
		return handle(Input{Path: p, URL: cfg.inputURL(rel), Data: b})
	})
}

// CountTargets estimates the number of files Walk would visit without
// reading them.
func CountTargets(cfg Config) (int, error) {
	st, err := os.Stat(cfg.Root)
	if err != nil {
		return 0, err
	}
	if !st.IsDir() {
		return 1, nil
	}
	count := 0
	err = filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != cfg.Root && cfg.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(cfg.Root, p)
		if !d.Type().IsRegular() || !cfg.selected(filepath.ToSlash(rel)) {
			return nil
		}
		if info, _ := d.Info(); info != nil && cfg.MaxBytes > 0 && info.Size() > cfg.MaxBytes {
			return nil
		}
		count++
		return nil
	})
	return count, err
}

// Read drains r into an Input named url. limit <= 0 means no limit.
func Read(r io.Reader, url string, limit int64) (Input, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return Input{}, fmt.Errorf("read %s: %w", url, err)
	}
	if limit > 0 && int64(len(b)) > limit {
		return Input{}, fmt.Errorf("read %s: %w", url, ErrTooLarge)
	}
	return Input{Path: "-", URL: url, Data: b}, nil
}

func (cfg Config) selected(rel string) bool {
	if cfg.DefaultExcludes && isDefaultFileExcluded(rel) {
		return false
	}
	if !cfg.Ignore.Empty() && cfg.Ignore.Match(rel) {
		return false
	}
	return allowedByGlobs(rel, cfg)
}

func (cfg Config) inputURL(rel string) string {
	if cfg.BaseURL == "" {
		return rel
	}
	return strings.TrimSuffix(cfg.BaseURL, "/") + "/" + rel
}

func allowedByGlobs(rel string, cfg Config) bool {
	includes := parseGlobsList(cfg.IncludeGlobs)
	excludes := parseGlobsList(cfg.ExcludeGlobs)
	if len(includes) > 0 && !matchAnyGlob(rel, includes) {
		return false
	}
	if len(excludes) > 0 && matchAnyGlob(rel, excludes) {
		return false
	}
	return true
}

func parseGlobsList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p, trimGlobPrefix(p))
		}
	}
	return out
}

func matchAnyGlob(rel string, globs []string) bool {
	base := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		base = rel[i+1:]
	}
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, base); ok {
			return true
		}
	}
	return false
}

func trimGlobPrefix(g string) string {
	s := strings.TrimPrefix(g, "./")
	for strings.HasPrefix(s, "**/") {
		s = strings.TrimPrefix(s, "**/")
	}
	return s
}

func looksBinary(b []byte) bool {
	const sniff = 800
	n := sniff
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if b[i] == 0 {
			return true
		}
	}
	return false
}

// looksNonTextMIME uses the file extension and a tiny header sniff to skip
// clearly non-text content in addition to NUL-byte detection.
func looksNonTextMIME(path string, b []byte) bool {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		if strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/") {
			return true
		}
		if strings.Contains(ct, "zip") || strings.Contains(ct, "tar") || strings.Contains(ct, "gzip") {
			return true
		}
	}
	if len(b) >= 8 && string(b[:8]) == "\x89PNG\r\n\x1a\n" {
		return true
	}
	if len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4 {
		return true
	}
	return false
}
