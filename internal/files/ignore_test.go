package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendIgnore_IdempotentAndCreates(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".gitignore")
	require.NoError(t, AppendIgnore(dir, ".dataextractorcache.json"))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, ".dataextractorcache.json\n", string(b))

	require.NoError(t, AppendIgnore(dir, ".dataextractorcache.json"))
	b, _ = os.ReadFile(p)
	assert.Equal(t, 1, strings.Count(string(b), ".dataextractorcache.json"))
}

func TestAppendIgnore_AddsMissingNewline(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".gitignore")
	require.NoError(t, os.WriteFile(p, []byte("dist/"), 0o644))
	for _, pat := range StateIgnores() {
		require.NoError(t, AppendIgnore(dir, pat))
	}
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "dist/\n"+strings.Join(StateIgnores(), "\n")+"\n", string(b))
}
