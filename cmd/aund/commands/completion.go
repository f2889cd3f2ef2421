package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

var completionShells = map[string]func(cmd *cobra.Command, w io.Writer) error{
	"bash":       func(c *cobra.Command, w io.Writer) error { return c.GenBashCompletionV2(w, true) },
	"zsh":        func(c *cobra.Command, w io.Writer) error { return c.GenZshCompletion(w) },
	"fish":       func(c *cobra.Command, w io.Writer) error { return c.GenFishCompletion(w, true) },
	"powershell": func(c *cobra.Command, w io.Writer) error { return c.GenPowerShellCompletionWithDesc(w) },
}

var completionCmd = &cobra.Command{
	Use:   "completion bash|zsh|fish|powershell",
	Short: "Print a shell completion script",
	Long: `Print a completion script for the given shell on stdout.

  aund completion bash > /etc/bash_completion.d/aund
  aund completion zsh > "${fpath[1]}/_aund"
  aund completion fish > ~/.config/fish/completions/aund.fish
  aund completion powershell | Out-String | Invoke-Expression

Subcommands that take a user name or session id do not complete them;
those live in the password file and the running server.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return completionShells[args[0]](cmd.Root(), os.Stdout)
	},
}
