package dataextractor

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/redactyl/dataextractor/internal/report"
	"github.com/redactyl/dataextractor/pkg/core"
	"github.com/spf13/cobra"
)

var flagTryProfile string

func init() {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "List configured extraction profiles",
		RunE:  runProfiles,
	}
	rootCmd.AddCommand(profilesCmd)

	tryCmd := &cobra.Command{
		Use:   "try <file|->",
		Short: "Run one profile over a single input without filters, cache or stored state",
		Args:  cobra.ExactArgs(1),
		RunE:  runTry,
	}
	tryCmd.Flags().StringVarP(&flagTryProfile, "profile", "P", "", "profile name (default: all)")
	profilesCmd.AddCommand(tryCmd)
}

func runProfiles(_ *cobra.Command, _ []string) error {
	root, _ := os.Getwd()
	fc, err := loadConfig(root)
	if err != nil {
		return err
	}
	res, warn := fc.Resolve()
	sink := &warningSink{}
	sink.addAll(warn)
	reg, err := newRegistry(res, fc.Profiles, nil, sink, nil)
	defer reg.Stop(context.Background())
	if err != nil {
		return err
	}
	infos := reg.Profiles()
	if flagJSON {
		doc := report.Document{Warnings: sink.messages()}
		for _, p := range infos {
			doc.Profiles = append(doc.Profiles, report.ProfileResult{ID: p.ID, Name: p.Name})
		}
		return report.WriteJSON(os.Stdout, doc)
	}
	rows := make([]report.ProfileRow, 0, len(infos))
	for _, p := range infos {
		rows = append(rows, report.ProfileRow{ID: p.ID, Name: p.Name, Rules: p.Rules, Exclusions: p.Exclusions})
	}
	return report.PrintProfiles(os.Stdout, rows)
}

func runTry(_ *cobra.Command, args []string) error {
	root, _ := os.Getwd()
	fc, err := loadConfig(root)
	if err != nil {
		return err
	}
	var data []byte
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}
	found := false
	for _, p := range fc.Profiles {
		if flagTryProfile != "" && p.Name != flagTryProfile {
			continue
		}
		found = true
		if p.Structured() {
			return fmt.Errorf("profile %q uses structured rules; try supports JSON profiles only", p.Name)
		}
		res, warn := core.Extract(string(data), p.Config, p.Exclude, true)
		for _, w := range warn {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
		if flagJSON {
			if err := core.MarshalResults(os.Stdout, res); err != nil {
				return err
			}
			continue
		}
		for _, r := range res {
			fmt.Println(r.Line())
		}
	}
	if !found {
		return fmt.Errorf("no profile named %q", flagTryProfile)
	}
	return nil
}
