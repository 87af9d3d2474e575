// Package audit appends one JSON record per CLI scan run and reads the
// history back, newest first. Records carry counts only, never values.
package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/redactyl/dataextractor/internal/types"
)

type ScanRecord struct {
	Timestamp     time.Time        `json:"timestamp"`
	ScanID        string           `json:"scan_id"`
	Root          string           `json:"root"`
	InputsScanned int              `json:"inputs_scanned"`
	Ineligible    int              `json:"ineligible"`
	Unchanged     int              `json:"unchanged"`
	Appended      int              `json:"appended"`
	Warnings      int              `json:"warnings"`
	Duration      string           `json:"duration"`
	Profiles      []ProfileSummary `json:"profiles,omitempty"`
}

type ProfileSummary struct {
	Name     string `json:"name"`
	Raw      int    `json:"raw"`
	Filtered int    `json:"filtered"`
	Deduped  int    `json:"deduped"`
	Appended int    `json:"appended"`
	Lines    int    `json:"lines"`
}

// RunStats are the CLI-side counters of a run.
type RunStats struct {
	Inputs     int
	Ineligible int
	Unchanged  int
	Warnings   int
}

type AuditLog struct {
	logPath string
}

func NewAuditLog(root string) *AuditLog {
	gitDir := filepath.Join(root, ".git")
	logPath := filepath.Join(root, ".dataextractor_audit.jsonl")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		logPath = filepath.Join(gitDir, "dataextractor_audit.jsonl")
	}
	return &AuditLog{logPath: logPath}
}

// Path returns the log file location.
func (a *AuditLog) Path() string { return a.logPath }

func (a *AuditLog) LoadHistory() ([]ScanRecord, error) {
	records, _, err := a.read()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// read decodes records in file order up to the first one that does not
// decode; tail holds the undecoded rest of the file verbatim.
func (a *AuditLog) read() (records []ScanRecord, tail []byte, err error) {
	data, err := os.ReadFile(a.logPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	var off int64
	for decoder.More() {
		var record ScanRecord
		if err := decoder.Decode(&record); err != nil {
			break
		}
		records = append(records, record)
		off = decoder.InputOffset()
	}
	return records, bytes.TrimLeft(data[off:], "\r\n"), nil
}

func (a *AuditLog) LogScan(record ScanRecord) error {
	if record.ScanID == "" {
		record.ScanID = fmt.Sprintf("scan_%d", time.Now().Unix())
	}

	f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(record); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// DeleteRecord removes the record at index in LoadHistory order. Lines that
// do not decode are kept as they are.
func (a *AuditLog) DeleteRecord(index int) error {
	records, tail, err := a.read()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(records) {
		return fmt.Errorf("invalid index: %d", index)
	}
	pos := len(records) - 1 - index
	records = append(records[:pos], records[pos+1:]...)

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to write audit record: %w", err)
		}
	}
	buf.Write(tail)
	if err := os.WriteFile(a.logPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// CreateScanRecord summarizes a run. lines maps profile name to its stored
// line count at the end of the run; profiles are sorted by name.
func CreateScanRecord(root string, run RunStats, totals map[string]types.Stats, lines map[string]int, duration time.Duration) ScanRecord {
	names := make([]string, 0, len(totals))
	for n := range totals {
		names = append(names, n)
	}
	sort.Strings(names)

	rec := ScanRecord{
		Timestamp:     time.Now(),
		Root:          root,
		InputsScanned: run.Inputs,
		Ineligible:    run.Ineligible,
		Unchanged:     run.Unchanged,
		Warnings:      run.Warnings,
		Duration:      duration.String(),
	}
	for _, n := range names {
		st := totals[n]
		rec.Appended += st.Appended
		rec.Profiles = append(rec.Profiles, ProfileSummary{
			Name:     n,
			Raw:      st.Raw,
			Filtered: st.Filtered,
			Deduped:  st.Deduped,
			Appended: st.Appended,
			Lines:    lines[n],
		})
	}
	return rec
}
