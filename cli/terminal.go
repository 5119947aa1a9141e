package cli

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

const defaultWidth = 80

// TerminalWidth is the width of the terminal on f, or $COLUMNS, or 80.
func TerminalWidth(f *os.File) int {
	if ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ); err == nil && ws.Col > 0 {
		return int(ws.Col)
	}
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return defaultWidth
}
