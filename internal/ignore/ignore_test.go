package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreMatch(t *testing.T) {
	dir := t.TempDir()
	ig := filepath.Join(dir, FileName)
	content := "node_modules/\n*.map\n# comment\n\nfixtures/keys.js\n"
	require.NoError(t, os.WriteFile(ig, []byte(content), 0644))

	m, err := Load(ig)
	require.NoError(t, err)
	cases := map[string]bool{
		"node_modules/pkg/index.js":     true,
		"web/node_modules/pkg/index.js": true,
		"static/app.js.map":             true,
		"fixtures/keys.js":              true,
		"src/fixtures/keys.js":          false,
		"src/app.js":                    false,
	}
	for p, want := range cases {
		assert.Equal(t, want, m.Match(p), p)
	}
}

func TestLoad_Missing(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), FileName))
	assert.Error(t, err)
	assert.True(t, m.Empty())
	assert.False(t, m.Match("anything"))
}
