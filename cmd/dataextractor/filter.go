package dataextractor

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/redactyl/dataextractor/internal/filter"
	"github.com/redactyl/dataextractor/internal/patterns"
	"github.com/spf13/cobra"
)

var flagFilterScope []string

func init() {
	cmd := &cobra.Command{
		Use:   "filter <url>...",
		Short: "Explain whether URLs are eligible for extraction",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runFilter,
	}
	cmd.Flags().StringSliceVar(&flagFilterScope, "scope", nil, "in-scope host or host/path globs (repeatable)")
	rootCmd.AddCommand(cmd)
}

type filterResult struct {
	URL      string           `json:"url"`
	Eligible bool             `json:"eligible"`
	Reasons  []filter.Verdict `json:"reasons,omitempty"`
}

func runFilter(_ *cobra.Command, args []string) error {
	root, _ := os.Getwd()
	fc, err := loadConfig(root)
	if err != nil {
		return err
	}
	res, warn := fc.Resolve()
	sink := &warningSink{}
	sink.addAll(warn)
	if len(flagFilterScope) > 0 {
		res.Scope = flagFilterScope
	}
	policy, warn := filter.NewPolicy(filter.Spec{
		ScopeOnly:        res.ScopeOnly,
		IgnoreExtensions: res.IgnoreExtensions,
		IgnoreFiles:      res.IgnoreFiles,
		IgnorePaths:      res.IgnorePaths,
	}, patterns.Options{MatchTimeout: res.MatchTimeout})
	sink.addAll(warn)
	scope := filter.GlobScope(res.Scope)

	out := make([]filterResult, 0, len(args))
	for _, u := range args {
		reasons := filter.Diagnose(u, scope, policy)
		out = append(out, filterResult{URL: u, Eligible: len(reasons) == 0, Reasons: reasons})
	}
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	for _, r := range out {
		if r.Eligible {
			fmt.Printf("%s: eligible\n", r.URL)
			continue
		}
		for _, v := range r.Reasons {
			if v.Detail != "" {
				fmt.Printf("%s: %s (%s)\n", r.URL, v.Reason, v.Detail)
			} else {
				fmt.Printf("%s: %s\n", r.URL, v.Reason)
			}
		}
	}
	return nil
}
