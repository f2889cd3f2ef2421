package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/marmos91/aund/internal/bytesize"
	"github.com/marmos91/aund/internal/cli/output"
	"github.com/marmos91/aund/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var (
	sessionsOutput string
	sessionsForce  bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List or end file server sessions",
	Long: `Show the stations logged on to a running server, through its admin API.

The API address comes from the configuration's api section, or from --api.

Examples:
  aund sessions
  aund sessions -o json
  aund sessions logoff 6f1c1d8e-5a4b-4c2d-9e8f-0a1b2c3d4e5f`,
	Args: cobra.NoArgs,
	RunE: runSessionsList,
}

var sessionsLogoffCmd = &cobra.Command{
	Use:   "logoff <id>",
	Short: "End a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsLogoff,
}

var discsCmd = &cobra.Command{
	Use:   "discs",
	Short: "Show served discs and their free space",
	Args:  cobra.NoArgs,
	RunE:  runDiscs,
}

func init() {
	for _, c := range []*cobra.Command{sessionsCmd, discsCmd} {
		c.PersistentFlags().StringVar(&apiURL, "api", "", "Admin API URL (default: from configuration)")
		c.Flags().StringVarP(&sessionsOutput, "output", "o", "table", "Output format (table|json|yaml)")
	}
	sessionsLogoffCmd.Flags().BoolVarP(&sessionsForce, "force", "f", false, "Do not ask for confirmation")
	sessionsCmd.AddCommand(sessionsLogoffCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(sessionsOutput)
	if err != nil {
		return err
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	sessions, err := client.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	printer := output.StdoutPrinter(format)
	if len(sessions) == 0 && format == output.FormatTable {
		printer.Warning("No stations logged on")
		return nil
	}
	return printer.Print(output.SessionList(sessions))
}

func runSessionsLogoff(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Log off session %s", args[0]), sessionsForce)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Aborted")
		return nil
	}

	if err := client.Logoff(args[0]); err != nil {
		return fmt.Errorf("failed to log off session: %w", err)
	}

	output.StdoutPrinter(output.FormatTable).Success("Session ended")
	return nil
}

func runDiscs(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(sessionsOutput)
	if err != nil {
		return err
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	discs, err := client.ListDiscs()
	if err != nil {
		return fmt.Errorf("failed to list discs: %w", err)
	}

	if format != output.FormatTable {
		return output.StdoutPrinter(format).Print(discs)
	}

	table := output.NewTableData("Disc", "Root", "Free")
	for _, d := range discs {
		table.AddRow(d.Name, d.Root, bytesize.ByteSize(d.FreeBytes).String()+" ("+strconv.FormatUint(d.FreeBytes, 10)+" bytes)")
	}
	return output.PrintTable(os.Stdout, table)
}
