package dataextractor

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

func init() {
	cmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Long:      "Prints a completion script. Profile flags (-P) complete from the names in the effective config.",
		ValidArgs: completionShells,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletionV2(out, true)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			default:
				return rootCmd.GenPowerShellCompletionWithDesc(out)
			}
		},
		Example: `  # load for the current bash session
  source <(dataextractor completion bash)

  # zsh, once
  dataextractor completion zsh > "${fpath[1]}/_dataextractor"

  # fish
  dataextractor completion fish > ~/.config/fish/completions/dataextractor.fish`,
	}
	rootCmd.AddCommand(cmd)
}

// registerProfileCompletion wires completeProfileNames to every --profile
// flag below c. It runs once all commands are attached.
func registerProfileCompletion(c *cobra.Command) {
	if c.Flags().Lookup("profile") != nil {
		_ = c.RegisterFlagCompletionFunc("profile", completeProfileNames)
	}
	for _, sub := range c.Commands() {
		registerProfileCompletion(sub)
	}
}

// completeProfileNames offers the profile names of the config that a scan
// from the working directory would load.
func completeProfileNames(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	root, _ := os.Getwd()
	fc, err := loadConfig(root)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var names []string
	for _, p := range fc.Profiles {
		if p.Name != "" && strings.HasPrefix(p.Name, toComplete) {
			names = append(names, p.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
