package dataextractor

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteProfileNames(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "cfg.yml")
	require.NoError(t, os.WriteFile(cfg, []byte("version: 1\nprofiles:\n  - name: alpha\n    config: '{}'\n  - name: beta\n    config: '{}'\n"), 0o600))
	old := flagConfig
	flagConfig = cfg
	t.Cleanup(func() { flagConfig = old })

	names, _ := completeProfileNames(nil, nil, "")
	assert.Equal(t, []string{"alpha", "beta"}, names)
	names, _ = completeProfileNames(nil, nil, "b")
	assert.Equal(t, []string{"beta"}, names)

	registerProfileCompletion(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"__complete", "scan", "--profile", "a"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "alpha", strings.SplitN(out.String(), "\n", 2)[0])
}

func TestCompletion_RejectsUnknownShell(t *testing.T) {
	rootCmd.SetArgs([]string{"completion", "tcsh"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	assert.Error(t, rootCmd.Execute())
}
