// Package report writes extraction output: verbatim line exports, summary
// tables and JSON documents.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteLines writes each line followed by a newline, nothing else.
func WriteLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := bw.WriteString(l); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ExportFile writes lines to path, replacing any existing file.
func ExportFile(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteLines(f, lines); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ExportDir writes one <profile>.txt per profile into dir and returns the
// paths written. lines[i] belongs to names[i]; names may repeat, colliding
// file names get a numeric suffix.
func ExportDir(dir string, names []string, lines [][]string) ([]string, error) {
	if len(names) != len(lines) {
		return nil, fmt.Errorf("export: %d names for %d profiles", len(names), len(lines))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var out []string
	used := map[string]int{}
	for i, n := range names {
		base := FileName(n)
		if c := used[base]; c > 0 {
			base = fmt.Sprintf("%s-%d", base, c+1)
		}
		used[FileName(n)]++
		p := filepath.Join(dir, base+".txt")
		if err := ExportFile(p, lines[i]); err != nil {
			return out, fmt.Errorf("export %s: %w", n, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// FileName maps a profile name to a safe file stem.
func FileName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), ".")
	if s == "" {
		return "profile"
	}
	return s
}
