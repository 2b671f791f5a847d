// Package logging configures the global zerolog logger used by every
// launcher package.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs a console writer on the global logger and sets the level.
// Unknown levels fall back to info. DEBUG=true in the environment always
// wins so users can get verbose output without touching the config file.
func Setup(level string, w io.Writer) zerolog.Level {
	if w == nil {
		w = os.Stderr
	}

	lvl := ParseLevel(level)
	if os.Getenv("DEBUG") == "true" {
		lvl = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
	}).With().Timestamp().Logger()

	return lvl
}

// ParseLevel maps a case-insensitive level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
