package dataextractor

import (
	"fmt"
	"os"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/spf13/cobra"
)

var (
	flagJSON            bool
	flagThreads         int
	flagConfig          string
	flagNoCache         bool
	flagDefaultExcludes bool
	flagVerbose         bool
	flagSilent          bool

	version = "0.1.0"
)

// rootCmd is the base Cobra command for the dataextractor CLI.
var rootCmd = &cobra.Command{
	Use:           "dataextractor",
	Short:         "Extract tokens, keys and endpoints with your own regexps",
	Long:          "dataextractor runs named regular expressions over files and streams, filters and deduplicates what they capture, and keeps one result list per profile.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setLogLevel(flagVerbose, flagSilent)
	},
}

// Execute runs the dataextractor CLI. It should be called by the main package.
func Execute() {
	registerProfileCompletion(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func setLogLevel(verbose, silent bool) {
	switch {
	case silent:
		gologger.DefaultLogger.SetMaxLevel(levels.LevelError)
	case verbose:
		gologger.DefaultLogger.SetMaxLevel(levels.LevelDebug)
	default:
		gologger.DefaultLogger.SetMaxLevel(levels.LevelWarning)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit JSON")
	rootCmd.PersistentFlags().IntVar(&flagThreads, "threads", 0, "worker count (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file (default: local .dataextractor.yml over global config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "disable incremental scan cache and result seeding")
	rootCmd.PersistentFlags().BoolVar(&flagDefaultExcludes, "default-excludes", true, "apply built-in exclude list (node_modules, images, lockfiles, etc.)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show debug logs")
	rootCmd.PersistentFlags().BoolVar(&flagSilent, "silent", false, "only show errors")
}
