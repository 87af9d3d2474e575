package dataextractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/redactyl/dataextractor/internal/audit"
	"github.com/redactyl/dataextractor/internal/cache"
	"github.com/redactyl/dataextractor/internal/config"
	"github.com/redactyl/dataextractor/internal/engine"
	"github.com/redactyl/dataextractor/internal/filter"
	"github.com/redactyl/dataextractor/internal/ignore"
	"github.com/redactyl/dataextractor/internal/registry"
	"github.com/redactyl/dataextractor/internal/report"
	"github.com/redactyl/dataextractor/internal/source"
	"github.com/redactyl/dataextractor/internal/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	flagURL          string
	flagBaseURL      string
	flagInclude      string
	flagExclude      string
	flagMaxBytes     int64
	flagScope        []string
	flagScopeOnly    bool
	flagNoDedupe     bool
	flagProfiles     []string
	flagOutputDir    string
	flagCharset      string
	flagStrict       bool
	flagMatchTimeout time.Duration
	flagAudit        bool
	flagFailOnNew    bool
	flagSummary      bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan [path|-]...",
		Short: "Extract values from files, directories or stdin",
		Long: `Runs every configured profile over the given inputs and prints the new lines.

Directories are walked recursively; "-" reads one payload from stdin. The
resource filter sees each file as its relative path, or --base-url joined
with it, so scope globs and ignored extensions apply to local mirrors too.`,
		RunE: runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVar(&flagURL, "url", "", "URL of the stdin payload (default \"stdin\")")
	cmd.Flags().StringVar(&flagBaseURL, "base-url", "", "prefix file paths with this URL before filtering")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().Int64Var(&flagMaxBytes, "max-bytes", 0, "skip payloads larger than this (0 = config or no limit)")
	cmd.Flags().StringSliceVar(&flagScope, "scope", nil, "in-scope host or host/path globs (repeatable)")
	cmd.Flags().BoolVar(&flagScopeOnly, "scope-only", true, "only extract from in-scope resources")
	cmd.Flags().BoolVar(&flagNoDedupe, "no-dedupe", false, "keep duplicate values")
	cmd.Flags().StringSliceVarP(&flagProfiles, "profile", "P", nil, "only run these profiles (by name)")
	cmd.Flags().StringVarP(&flagOutputDir, "output-dir", "o", "", "write every profile's lines to <dir>/<profile>.txt")
	cmd.Flags().StringVar(&flagCharset, "charset", "", "payload charset: utf-8, auto or a WHATWG label")
	cmd.Flags().BoolVar(&flagStrict, "strict-decode", false, "drop payloads that do not decode cleanly")
	cmd.Flags().DurationVar(&flagMatchTimeout, "match-timeout", 0, "per-match regexp budget (e.g. 250ms)")
	cmd.Flags().BoolVar(&flagAudit, "audit", false, "append a record of this run to the audit log")
	cmd.Flags().BoolVar(&flagFailOnNew, "fail-on-new", false, "exit 1 when new values were extracted")
	cmd.Flags().BoolVar(&flagSummary, "summary", false, "print a summary table to stderr")
}

// runTally counts what the CLI saw, across registry workers.
type runTally struct {
	mu         sync.Mutex
	ineligible int
	reasons    map[filter.Reason]int
}

func (t *runTally) onReport(r registry.Report) {
	if r.Verdict.Eligible {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reasons == nil {
		t.reasons = map[filter.Reason]int{}
	}
	t.ineligible++
	t.reasons[r.Verdict.Reason]++
}

func runScan(cmd *cobra.Command, args []string) error {
	start := time.Now()
	if len(args) == 0 {
		args = []string{"."}
	}
	root, _ := os.Getwd()

	fc, err := loadConfig(root)
	if err != nil {
		return err
	}
	res, warn := fc.Resolve()
	sink := &warningSink{}
	sink.addAll(warn)

	// CLI overrides config
	res.Threads = pickInt(flagThreads, res.Threads)
	res.MaxBytes = pickInt64(flagMaxBytes, res.MaxBytes)
	res.Charset = pickString(flagCharset, res.Charset)
	res.MatchTimeout = pickDuration(flagMatchTimeout, res.MatchTimeout)
	if len(flagScope) > 0 {
		res.Scope = flagScope
	}
	if cmd.Flags().Changed("scope-only") {
		res.ScopeOnly = flagScopeOnly
	}
	if flagNoDedupe {
		res.RemoveDuplicates = false
	}
	if flagStrict {
		res.StrictDecode = true
	}

	tally := &runTally{}
	reg, err := newRegistry(res, fc.Profiles, flagProfiles, sink, tally.onReport)
	if err != nil {
		_ = reg.Stop(context.Background())
		return err
	}

	useCache := !flagNoCache
	db := cache.DB{Entries: map[string]string{}}
	seeded := map[string]int{}
	if useCache {
		if c, err := cache.Load(root); err == nil {
			db = c
		}
		if last, err := cache.LoadResults(root); err == nil {
			for _, p := range reg.Profiles() {
				if lines := last.Profiles[p.Name]; len(lines) > 0 {
					_ = reg.Seed(p.ID, lines)
				}
			}
		}
	}
	for _, p := range reg.Profiles() {
		seeded[p.ID] = p.Lines
	}
	digest := configDigest(fc, res)

	var run audit.RunStats
	progress := newProgress(!flagJSON && !flagSilent && stderrIsTerminal())
	handle := func(in source.Input, cacheable bool) error {
		run.Inputs++
		progress.step()
		if cacheable && useCache {
			fp := engine.Fingerprint(in.Data) + "-" + digest
			if db.Unchanged(in.Path, fp) {
				run.Unchanged++
				return nil
			}
			db.Entries[in.Path] = fp
		}
		return reg.Scan(in.URL, in.Data)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	for _, arg := range args {
		if arg == "-" {
			in, err := source.Read(os.Stdin, pickString(flagURL, "stdin"), res.MaxBytes)
			if err != nil {
				_ = reg.Stop(context.Background())
				return err
			}
			if err := handle(in, false); err != nil {
				_ = reg.Stop(context.Background())
				return err
			}
			continue
		}
		abs, err := filepath.Abs(arg)
		if err != nil {
			_ = reg.Stop(context.Background())
			return err
		}
		scfg := source.Config{
			Root:            abs,
			IncludeGlobs:    flagInclude,
			ExcludeGlobs:    flagExclude,
			MaxBytes:        res.MaxBytes,
			DefaultExcludes: flagDefaultExcludes,
			SkipBinary:      true,
			BaseURL:         flagBaseURL,
		}
		if st, err := os.Stat(abs); err == nil && st.IsDir() {
			scfg.Ignore, _ = ignore.Load(filepath.Join(abs, ignore.FileName))
		}
		if n, err := source.CountTargets(scfg); err == nil {
			progress.grow(n)
		}
		gologger.Debug().Msgf("Scanning %s\n", abs)
		if err := source.Walk(ctx, scfg, func(in source.Input) error { return handle(in, true) }); err != nil {
			_ = reg.Stop(context.Background())
			return fmt.Errorf("scan %s: %w", arg, err)
		}
	}
	if err := reg.Stop(context.Background()); err != nil {
		return err
	}
	progress.done()
	run.Ineligible = tally.ineligible
	run.Warnings = sink.count()
	for reason, n := range tally.reasons {
		gologger.Debug().Msgf("%d inputs skipped: %s\n", n, reason)
	}

	outs := collectResults(reg, seeded)
	rows := make([]report.ProfileRow, 0, len(outs))
	newLines := 0
	for _, o := range outs {
		p := o.info
		newLines += len(o.fresh)
		rows = append(rows, report.ProfileRow{ID: p.ID, Name: p.Name, Rules: p.Rules, Exclusions: p.Exclusions, Lines: p.Lines, Stats: p.Totals})
	}

	switch {
	case flagJSON:
		doc := report.Document{Warnings: sink.messages()}
		for _, o := range outs {
			doc.Profiles = append(doc.Profiles, report.ProfileResult{ID: o.info.ID, Name: o.info.Name, Lines: o.fresh, Stats: o.info.Totals})
		}
		if err := report.WriteJSON(os.Stdout, doc); err != nil {
			return err
		}
	case flagOutputDir != "":
		names := make([]string, len(outs))
		lines := make([][]string, len(outs))
		for i, o := range outs {
			names[i], lines[i] = o.info.Name, o.lines
		}
		paths, err := report.ExportDir(flagOutputDir, names, lines)
		if err != nil {
			return err
		}
		for _, p := range paths {
			gologger.Info().Msgf("Wrote %s\n", p)
		}
	default:
		for _, o := range outs {
			if err := report.WriteLines(os.Stdout, o.fresh); err != nil {
				return err
			}
		}
	}
	if flagSummary || (flagOutputDir != "" && !flagJSON) {
		_ = report.PrintSummary(os.Stderr, rows, report.PrintOptions{
			Duration:   time.Since(start),
			Inputs:     run.Inputs,
			Ineligible: run.Ineligible,
			Unchanged:  run.Unchanged,
		})
	}

	if useCache {
		if err := cache.Save(root, db); err != nil {
			gologger.Warning().Msgf("cache: %s\n", err)
		}
		if err := cache.SaveResults(root, byName(outs)); err != nil {
			gologger.Warning().Msgf("cache results: %s\n", err)
		}
	}
	if flagAudit {
		counts := map[string]int{}
		totals := map[string]types.Stats{}
		for _, o := range outs {
			counts[o.info.Name] = o.info.Lines
			totals[o.info.Name] = o.info.Totals
		}
		rec := audit.CreateScanRecord(root, run, totals, counts, time.Since(start))
		if err := audit.NewAuditLog(root).LogScan(rec); err != nil {
			gologger.Warning().Msgf("audit: %s\n", err)
		}
	}

	if flagFailOnNew && newLines > 0 {
		os.Exit(1)
	}
	return nil
}

// profileOutput is one profile's results after a run; fresh are the lines
// appended since seeding.
type profileOutput struct {
	info  registry.ProfileInfo
	lines []string
	fresh []string
}

// collectResults gathers results per profile ID, so profiles sharing a
// display name never overwrite each other.
func collectResults(reg *registry.Registry, seeded map[string]int) []profileOutput {
	infos := reg.Profiles()
	out := make([]profileOutput, 0, len(infos))
	for _, p := range infos {
		lines, _ := reg.Results(p.ID)
		n := min(seeded[p.ID], len(lines))
		out = append(out, profileOutput{info: p, lines: lines, fresh: lines[n:]})
	}
	return out
}

// byName keys results by profile name for the snapshot reused by the next
// run. Names are unique in a loaded config; the first profile wins otherwise.
func byName(outs []profileOutput) map[string][]string {
	m := make(map[string][]string, len(outs))
	for _, o := range outs {
		if _, ok := m[o.info.Name]; !ok {
			m[o.info.Name] = o.lines
		}
	}
	return m
}

// configDigest changes whenever anything that affects extraction does, so
// cached fingerprints from an older configuration never hide new results.
func configDigest(fc config.FileConfig, res config.Resolved) string {
	b, err := yaml.Marshal(&fc)
	if err != nil {
		return ""
	}
	b = fmt.Appendf(b, "|%+v|%s|%s|%s|%v", res, flagInclude, flagExclude, flagBaseURL, flagProfiles)
	return engine.Fingerprint(b)
}

// progress is a simple textual bar on stderr.
type progress struct {
	on    bool
	total int
	n     int
}

func newProgress(on bool) *progress { return &progress{on: on} }

func (p *progress) grow(n int) { p.total += n }

func (p *progress) step() {
	if !p.on || p.total == 0 {
		return
	}
	p.n++
	if p.n%10 == 0 || p.n == p.total {
		pct := float64(p.n) / float64(p.total) * 100
		_, _ = fmt.Fprintf(os.Stderr, "\r[%d/%d] %.0f%%", p.n, p.total, pct)
	}
}

func (p *progress) done() {
	if p.on && p.total > 0 {
		_, _ = fmt.Fprintln(os.Stderr)
	}
}
