package main

import (
	"io"
	"os"

	"github.com/park285/pgn2gif/internal/progress"
)

// app carries the process streams so commands can be driven from tests.
type app struct {
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	interactive bool
}

func defaultApp() *app {
	return &app{
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		interactive: progress.IsTerminal(os.Stdin),
	}
}
