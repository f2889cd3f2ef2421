package commands

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/marmos91/aund/pkg/transport"
	"github.com/marmos91/aund/pkg/transport/beebem"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and Econet protocol information",
	Run: func(cmd *cobra.Command, args []string) {
		writeVersion(cmd.OutOrStdout(), versionShort)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
}

// writeVersion prints the build stamp followed by the Econet ports and
// bulk-transfer limits each transport serves with.
func writeVersion(w io.Writer, short bool) {
	if short {
		_, _ = fmt.Fprintln(w, Version)
		return
	}

	_, _ = fmt.Fprintf(w, "aund %s (%s, built %s)\n", Version, Commit, Date)
	_, _ = fmt.Fprintf(w, "  Runtime:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(w, "  File server:  port &%02X\n", transport.PortFileServer)
	_, _ = fmt.Fprintf(w, "  Print server: ports &%02X (jobs), &%02X (status)\n",
		transport.PortPrintJob, transport.PortPrintStatusEnquiry)
	_, _ = fmt.Fprintf(w, "  Transports:   aun (udp/%d, block %d), beebem (block %d)\n",
		transport.PortAUN, transport.MaxBlockAUN, beebem.MaxBlock)
}
