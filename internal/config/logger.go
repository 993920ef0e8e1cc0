package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger points the global logger at stdout
func InitLogger(level, format string) {
	InitLoggerTo(os.Stdout, level, format)
}

// InitLoggerTo points the global logger at out. An empty or unknown level
// means info; format "console" gives human-readable lines, anything else JSON.
func InitLoggerTo(out io.Writer, level, format string) {
	lvl := parseLevel(level)
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	w := out
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(w).With().
		Timestamp().
		Str("service", "moneymind").
		Logger()

	log.Debug().Str("level", lvl.String()).Str("format", format).Msg("Logging configured")
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// NewLogger derives a logger tagged with the component name
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
