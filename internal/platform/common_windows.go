//go:build windows

package platform

import (
	"strings"

	"golang.org/x/sys/windows"
)

// buildWindowsCommandLine renders a Run key value using the same escaping
// rules the Go runtime applies when it starts processes.
func buildWindowsCommandLine(executable string, args []string) string {
	var b strings.Builder
	b.WriteString(windows.EscapeArg(executable))
	for _, arg := range args {
		b.WriteByte(' ')
		b.WriteString(windows.EscapeArg(arg))
	}

	return b.String()
}
