package dataextractor

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/redactyl/dataextractor/internal/config"
	"github.com/redactyl/dataextractor/internal/files"
	"github.com/redactyl/dataextractor/internal/filter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgOutput       string
	cfgForce        bool
	cfgScopeOnly    bool
	cfgNoDedupe     bool
	cfgExtensions   string
	cfgThreads      int
	cfgMaxBytes     int64
	cfgCharset      string
	cfgSampleRules  bool
	cfgImportOutput string
	cfgGitignore    bool
)

// sampleProfiles seed a fresh config with something useful to edit.
var sampleProfiles = []config.ProfileConfig{
	{
		Name:    "Keys",
		Config:  `{"aws_access_key": "\\b((?:AKIA|ASIA)[0-9A-Z]{16})\\b", "google_api_key": "\\b(AIza[0-9A-Za-z_\\-]{35})\\b", "?jwt": "\\b(eyJ[\\w-]+\\.eyJ[\\w-]+\\.[\\w-]+)"}`,
		Exclude: `["EXAMPLE"]`,
	},
	{
		Name:    "Endpoints",
		Config:  `{"?path": "[\"'](/(?:api|v[0-9]+)/[\\w/.\\-]+)[\"']", "?url": "[\"'](https?://[^\"'\\s]+)[\"']"}`,
		Exclude: `["\\.(?:png|jpe?g|gif|svg)$", "w3\\.org"]`,
	},
}

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .dataextractor.yml with default settings and sample profiles",
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&cfgOutput, "output", ".dataextractor.yml", "output file path")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
	initCmd.Flags().BoolVar(&cfgScopeOnly, "scope-only", true, "only extract from in-scope resources")
	initCmd.Flags().BoolVar(&cfgNoDedupe, "no-dedupe", false, "keep duplicate values")
	initCmd.Flags().StringVar(&cfgExtensions, "ignore-extensions", "", "comma-separated extensions to skip (default: built-in list)")
	initCmd.Flags().IntVar(&cfgThreads, "threads", 0, "worker threads (0=GOMAXPROCS)")
	initCmd.Flags().Int64Var(&cfgMaxBytes, "max-bytes", 0, "skip payloads larger than this (0 = no limit)")
	initCmd.Flags().StringVar(&cfgCharset, "charset", "", "payload charset: utf-8, auto or a WHATWG label")
	initCmd.Flags().BoolVar(&cfgSampleRules, "samples", true, "include sample profiles")
	initCmd.Flags().BoolVar(&cfgGitignore, "gitignore", false, "add cache and audit files to .gitignore")

	importCmd := &cobra.Command{
		Use:   "import-legacy <settings.json|->",
		Short: "Convert a saved legacy settings blob to YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigImport,
	}
	cfgCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&cfgImportOutput, "output", "", "write YAML here instead of stdout")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings after defaults and config layering",
		RunE:  runConfigShow,
	}
	cfgCmd.AddCommand(showCmd)
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	if !cfgForce {
		if _, err := os.Stat(cfgOutput); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", cfgOutput)
		}
	}
	exts := filter.DefaultExtensions
	if strings.TrimSpace(cfgExtensions) != "" {
		exts = filter.ParseExtensions(cfgExtensions)
	}
	s := &config.SettingsConfig{
		ScopeOnly:        boolPtr(cfgScopeOnly),
		RemoveDuplicates: boolPtr(!cfgNoDedupe),
		IgnoreExtensions: &config.List{Items: exts},
		Threads:          intPtr(cfgThreads),
		MaxBytes:         int64Ptr(cfgMaxBytes),
	}
	if cfgCharset != "" {
		s.Charset = strPtr(cfgCharset)
	}
	fc := config.FileConfig{Version: config.CurrentVersion, Settings: s}
	if cfgSampleRules {
		fc.Profiles = sampleProfiles
	}
	if err := config.SaveFile(cfgOutput, fc); err != nil {
		return err
	}
	fmt.Println("Wrote", cfgOutput)
	if cfgGitignore {
		root, _ := os.Getwd()
		for _, p := range files.StateIgnores() {
			if err := files.AppendIgnore(root, p); err != nil {
				return err
			}
		}
		fmt.Println("Updated .gitignore")
	}
	return nil
}

func runConfigImport(_ *cobra.Command, args []string) error {
	var (
		b   []byte
		err error
	)
	if args[0] == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}
	fc, err := config.ParseLegacy(string(b))
	if err != nil {
		return err
	}
	// surface problems now rather than on the first scan
	_, warn := fc.Resolve()
	sink := &warningSink{}
	sink.addAll(warn)
	if cfgImportOutput != "" {
		if err := config.SaveFile(cfgImportOutput, fc); err != nil {
			return err
		}
		fmt.Printf("Wrote %s (%d profiles)\n", cfgImportOutput, len(fc.Profiles))
		return nil
	}
	out, err := yaml.Marshal(&fc)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// effective is the printable form of config.Resolved.
type effective struct {
	ScopeOnly        bool     `yaml:"scope_only" json:"scope_only"`
	RemoveDuplicates bool     `yaml:"remove_duplicates" json:"remove_duplicates"`
	IgnoreExtensions []string `yaml:"ignore_extensions" json:"ignore_extensions"`
	IgnoreFiles      []string `yaml:"ignore_files" json:"ignore_files"`
	IgnorePaths      []string `yaml:"ignore_paths" json:"ignore_paths"`
	Scope            []string `yaml:"scope" json:"scope"`
	Charset          string   `yaml:"charset" json:"charset"`
	StrictDecode     bool     `yaml:"strict_decode" json:"strict_decode"`
	MatchTimeout     string   `yaml:"match_timeout" json:"match_timeout"`
	MaxBytes         int64    `yaml:"max_bytes" json:"max_bytes"`
	Threads          int      `yaml:"threads" json:"threads"`
	Profiles         []string `yaml:"profiles" json:"profiles"`
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	root, _ := os.Getwd()
	fc, err := loadConfig(root)
	if err != nil {
		return err
	}
	r, warn := fc.Resolve()
	sink := &warningSink{}
	sink.addAll(warn)
	e := effective{
		ScopeOnly:        r.ScopeOnly,
		RemoveDuplicates: r.RemoveDuplicates,
		IgnoreExtensions: r.IgnoreExtensions,
		IgnoreFiles:      r.IgnoreFiles,
		IgnorePaths:      r.IgnorePaths,
		Scope:            r.Scope,
		Charset:          r.Charset,
		StrictDecode:     r.StrictDecode,
		MatchTimeout:     r.MatchTimeout.String(),
		MaxBytes:         r.MaxBytes,
		Threads:          r.Threads,
	}
	for _, p := range fc.Profiles {
		e.Profiles = append(e.Profiles, p.Name)
	}
	out, err := yaml.Marshal(&e)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
