// Package logging sets up the process-wide zerolog logger, replacing the
// teacher's bare log.Println call sites with structured, level-aware
// logging: a human console writer for a terminal, JSON lines otherwise.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Configure installs the global zerolog logger. verbose raises the level to
// debug; otherwise info and above are logged.
func Configure(out io.Writer, verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	var writer io.Writer = out
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(writer).With().Timestamp().Logger().Level(level)
}
