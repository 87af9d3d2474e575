package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redactyl/dataextractor/internal/audit"
	"github.com/redactyl/dataextractor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLines_Verbatim(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLines(&buf, []string{"aws: AKIA1", "plain", "ünïcode: ✓"}))
	assert.Equal(t, "aws: AKIA1\nplain\nünïcode: ✓\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteLines(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestExportDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	names := []string{"API Keys", "API/Keys", "urls", "urls"}
	lines := [][]string{{"k: 1"}, {"k: 2"}, {"https://example.com"}, {"https://other.com"}}
	paths, err := ExportDir(dir, names, lines)
	require.NoError(t, err)
	require.Len(t, paths, 4)
	assert.Equal(t, filepath.Join(dir, "API_Keys.txt"), paths[0])
	assert.Equal(t, filepath.Join(dir, "API_Keys-2.txt"), paths[1])

	for i, want := range []string{"https://example.com\n", "https://other.com\n"} {
		b, err := os.ReadFile(paths[2+i])
		require.NoError(t, err)
		assert.Equal(t, want, string(b), "same-named profiles keep their own lines")
	}

	_, err = ExportDir(dir, names, lines[:1])
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"Keys":      "Keys",
		"a b/c":     "a_b_c",
		"..":        "profile",
		"":          "profile",
		"v1.secret": "v1.secret",
	}
	for in, want := range cases {
		assert.Equal(t, want, FileName(in), in)
	}
}

func TestPrintProfiles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintProfiles(&buf, []ProfileRow{{ID: "1", Name: "tokens", Rules: 3, Exclusions: 1, Lines: 42}}))
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "tokens")
	assert.Contains(t, out, "42")

	buf.Reset()
	require.NoError(t, PrintProfiles(&buf, nil))
	assert.Contains(t, buf.String(), "No profiles configured")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	rows := []ProfileRow{{Name: "urls", Lines: 9, Stats: types.Stats{Raw: 5, Filtered: 4, Deduped: 3, Appended: 3}}}
	require.NoError(t, PrintSummary(&buf, rows, PrintOptions{Duration: 1200 * time.Millisecond, Inputs: 10, Ineligible: 2}))
	out := buf.String()
	assert.Contains(t, out, "PROFILE")
	assert.Contains(t, out, "urls")
	assert.Contains(t, out, "New values: 3")
	assert.Contains(t, out, "Inputs scanned: 10 (ineligible: 2, unchanged: 0)")
	assert.Contains(t, out, "Scan duration: 1.20s")
}

func TestPrintSummary_NothingNew(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, []ProfileRow{{Name: "urls"}}, PrintOptions{}))
	assert.Equal(t, "No new values extracted\n", buf.String())
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	recs := []audit.ScanRecord{
		{Timestamp: time.Now(), InputsScanned: 4, Appended: 2, Duration: "1s"},
		{Timestamp: time.Now(), InputsScanned: 8, Appended: 0, Duration: "2s"},
	}
	require.NoError(t, PrintHistory(&buf, recs, 1))
	out := buf.String()
	assert.Contains(t, out, "INPUTS")
	assert.Contains(t, out, "1s")
	assert.False(t, strings.Contains(out, "2s"))

	buf.Reset()
	require.NoError(t, PrintHistory(&buf, nil, 0))
	assert.Contains(t, buf.String(), "No scan history")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	doc := Document{Profiles: []ProfileResult{
		{ID: "1", Name: "urls", Lines: []string{"https://a.io/?x=1&y=<2>"}, Stats: types.Stats{Raw: 1, Filtered: 1, Deduped: 1, Appended: 1}},
		{ID: "2", Name: "empty"},
	}}
	require.NoError(t, WriteJSON(&buf, doc))
	assert.Contains(t, buf.String(), "&y=<2>")
	assert.Contains(t, buf.String(), `"lines": []`)

	var back Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	require.Len(t, back.Profiles, 2)
	assert.Equal(t, 1, back.Profiles[0].Stats.Appended)
}
