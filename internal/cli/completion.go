package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for techtree.

Save IDs complete from the save store, so "techtree view --save <TAB>" lists
your saves.

  bash:        source <(techtree completion bash)
  zsh:         techtree completion zsh > "${fpath[1]}/_techtree"
  fish:        techtree completion fish > ~/.config/fish/completions/techtree.fish
  powershell:  techtree completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// completeSaveIDs returns a completion function listing save IDs from the
// store selected by flags, described by save name.
func (c *CLI) completeSaveIDs(flags *storeFlags) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		ctx := commandContext(cmd)
		st, err := c.openStore(ctx, *flags, nil)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		defer st.Close()

		saves, err := st.List(ctx)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		var ids []cobra.Completion
		for _, sv := range saves {
			if strings.HasPrefix(sv.ID, toComplete) {
				ids = append(ids, cobra.CompletionWithDesc(sv.ID, fmt.Sprintf("%s (%d unlocked)", sv.Name, len(sv.Research.Unlocked))))
			}
		}
		return ids, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeFirstSaveID completes the save ID argument of save subcommands.
func (c *CLI) completeFirstSaveID(flags *storeFlags) cobra.CompletionFunc {
	complete := c.completeSaveIDs(flags)
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return complete(cmd, args, toComplete)
	}
}
