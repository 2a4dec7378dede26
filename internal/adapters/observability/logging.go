package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. dev/development get the console
// writer; anything else logs JSON. An unknown level falls back to info.
func NewLogger(env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	var l zerolog.Logger
	switch env {
	case "dev", "development":
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	default:
		l = zerolog.New(os.Stdout)
	}
	return l.Level(lvl).With().Timestamp().Str("app", namespace).Logger()
}
