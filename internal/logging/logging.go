// Package logging builds the zerolog loggers shared by the server, the CLI and the page cache.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/Project-Sylos/Canopy/internal/types"
	"github.com/rs/zerolog"
)

// New returns a logger writing to w (stderr when nil) at the configured level.
// Unknown levels fall back to info.
func New(cfg types.LogConfig, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
