package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/redactyl/dataextractor/internal/ignore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func collect(t *testing.T, cfg Config) []Input {
	t.Helper()
	var got []Input
	require.NoError(t, Walk(context.Background(), cfg, func(in Input) error {
		got = append(got, in)
		return nil
	}))
	return got
}

func urls(in []Input) []string {
	var out []string
	for _, i := range in {
		out = append(out, i.URL)
	}
	return out
}

func TestWalk_Selection(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.js", "token=1")
	writeFile(t, root, "lib/vendor.min.js", "x")
	writeFile(t, root, "node_modules/pkg/index.js", "x")
	writeFile(t, root, "static/app.js.map", "x")
	writeFile(t, root, "bin.dat", "a\x00b")
	writeFile(t, root, "big.txt", strings.Repeat("a", 100))
	writeFile(t, root, "fixtures/keys.js", "x")

	cfg := Config{
		Root:            root,
		MaxBytes:        50,
		DefaultExcludes: true,
		SkipBinary:      true,
		ExcludeGlobs:    "**/*.min.js",
		Ignore:          ignore.New([]string{"fixtures/"}),
	}
	got := collect(t, cfg)
	assert.Equal(t, []string{"app.js"}, urls(got))
	assert.Equal(t, "token=1", string(got[0].Data))

	n, err := CountTargets(cfg)
	require.NoError(t, err)
	// CountTargets does not read contents, so the binary file is counted
	assert.Equal(t, 2, n)
}

func TestWalk_IncludeAndBaseURL(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/one.js", "1")
	writeFile(t, root, "a/two.html", "2")
	got := collect(t, Config{Root: root, IncludeGlobs: "**/*.js", BaseURL: "https://example.com/"})
	assert.Equal(t, []string{"https://example.com/a/one.js"}, urls(got))
}

func TestWalk_SingleFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "dump.har", "body")
	got := collect(t, Config{Root: filepath.Join(root, "dump.har")})
	require.Len(t, got, 1)
	assert.Equal(t, "dump.har", got[0].URL)
}

func TestWalk_StopsOnHandlerError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "1")
	writeFile(t, root, "b.js", "2")
	boom := errors.New("boom")
	calls := 0
	err := Walk(context.Background(), Config{Root: root}, func(Input) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWalk_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Walk(ctx, Config{Root: root}, func(Input) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRead(t *testing.T) {
	in, err := Read(strings.NewReader("hello"), "https://x.io/a.js", 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(in.Data))
	assert.Equal(t, "https://x.io/a.js", in.URL)

	_, err = Read(strings.NewReader("hello!"), "stdin", 5)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLooksNonText(t *testing.T) {
	assert.True(t, looksNonTextMIME("x.bin", []byte("\x89PNG\r\n\x1a\nrest")))
	assert.True(t, looksNonTextMIME("x.bin", []byte("PK\x03\x04")))
	assert.False(t, looksNonTextMIME("x.js", []byte("PKG")))
}
