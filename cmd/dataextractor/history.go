package dataextractor

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/redactyl/dataextractor/internal/audit"
	"github.com/redactyl/dataextractor/internal/report"
	"github.com/spf13/cobra"
)

var (
	flagHistoryLimit  int
	flagHistoryDelete int
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show audited scan runs, newest first",
		RunE:  runHistory,
	}
	cmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "show at most this many runs (0 = all)")
	cmd.Flags().IntVar(&flagHistoryDelete, "delete", -1, "delete the run at this index")
	rootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	root, _ := os.Getwd()
	log := audit.NewAuditLog(root)
	if cmd.Flags().Changed("delete") {
		if err := log.DeleteRecord(flagHistoryDelete); err != nil {
			return err
		}
	}
	records, err := log.LoadHistory()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if flagJSON {
		if records == nil {
			records = []audit.ScanRecord{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return report.PrintHistory(os.Stdout, records, flagHistoryLimit)
}

