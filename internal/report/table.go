package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/redactyl/dataextractor/internal/audit"
	"github.com/redactyl/dataextractor/internal/types"
)

// ProfileRow is one profile in a summary table.
type ProfileRow struct {
	ID         string
	Name       string
	Rules      int
	Exclusions int
	Lines      int
	Stats      types.Stats
}

type PrintOptions struct {
	Duration   time.Duration
	Inputs     int
	Ineligible int
	Unchanged  int
}

// PrintProfiles renders configured profiles without run statistics.
func PrintProfiles(w io.Writer, rows []ProfileRow) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No profiles configured")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("ID", "NAME", "RULES", "EXCLUSIONS", "LINES")
	for _, r := range rows {
		if err := table.Append([]string{r.ID, r.Name, strconv.Itoa(r.Rules), strconv.Itoa(r.Exclusions), strconv.Itoa(r.Lines)}); err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintSummary renders per-profile counters for a run and a short footer.
func PrintSummary(w io.Writer, rows []ProfileRow, opts PrintOptions) error {
	total := 0
	for _, r := range rows {
		total += r.Stats.Appended
	}
	if total == 0 {
		fmt.Fprintln(w, "No new values extracted")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("PROFILE", "RAW", "FILTERED", "DEDUPED", "NEW", "TOTAL")
		for _, r := range rows {
			s := r.Stats
			if err := table.Append([]string{
				r.Name,
				strconv.Itoa(s.Raw),
				strconv.Itoa(s.Filtered),
				strconv.Itoa(s.Deduped),
				strconv.Itoa(s.Appended),
				strconv.Itoa(r.Lines),
			}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	if opts.Duration > 0 || opts.Inputs > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "New values: %d\n", total)
		if opts.Inputs > 0 {
			fmt.Fprintf(w, "Inputs scanned: %d (ineligible: %d, unchanged: %d)\n", opts.Inputs, opts.Ineligible, opts.Unchanged)
		}
		if opts.Duration > 0 {
			fmt.Fprintf(w, "Scan duration: %.2fs\n", opts.Duration.Seconds())
		}
	}
	return nil
}

// PrintHistory renders audit records newest first.
func PrintHistory(w io.Writer, records []audit.ScanRecord, limit int) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No scan history")
		return nil
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	table := tablewriter.NewWriter(w)
	table.Header("#", "WHEN", "INPUTS", "INELIGIBLE", "UNCHANGED", "NEW", "WARNINGS", "DURATION")
	for i, r := range records {
		if err := table.Append([]string{
			strconv.Itoa(i),
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.InputsScanned),
			strconv.Itoa(r.Ineligible),
			strconv.Itoa(r.Unchanged),
			strconv.Itoa(r.Appended),
			strconv.Itoa(r.Warnings),
			r.Duration,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
