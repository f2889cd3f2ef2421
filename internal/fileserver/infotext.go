package fileserver

import "fmt"

// infoText renders the fixed-width object description shown by *INFO and
// by a long-text EXAMINE:
//
//	NAME       LLLLLLLL EEEEEEEE   SSSSSS   ACCESS     DD:MM:YY SSSSSS
//
// All numbers are hex. The trailing field is the system internal name,
// which this server does not have and reports as zero.
func infoText(name string, o objectInfo) string {
	return fmt.Sprintf("%-10.10s %08X %08X   %06X   %-6.6s     %s %06X",
		name,
		o.meta.Load,
		o.meta.Exec,
		min(o.size, 0xFFFFFF),
		accessString(o.access()),
		o.ctime.Local().Format("02:01:06"),
		0)
}
