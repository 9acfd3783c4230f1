package ui

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsTerminal returns true if the file descriptor is a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Interactive reports whether both ends are terminals a user can answer on.
func Interactive(in io.Reader, out io.Writer) bool {
	inFile, ok := in.(*os.File)
	if !ok || !IsTerminal(inFile) {
		return false
	}
	outFile, ok := out.(*os.File)
	return ok && IsTerminal(outFile)
}
