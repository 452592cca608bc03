package main

import (
	"os"

	"golang.org/x/term"
)

// terminalWidth reports the current stdout width, the way the teacher's
// console report formatter sizes itself to the terminal. It falls back
// to a sane default when stdout isn't a terminal (e.g. piped output).
func terminalWidth() int {
	const fallback = 100
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
