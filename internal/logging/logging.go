package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds a console logger for the named component. The level comes from
// the LOG_LEVEL environment variable; the CLI defaults to warnings only so
// the terminal UI stays clean, while the server defaults to info.
func New(component string) zerolog.Logger {
	level := zerolog.InfoLevel
	if component == "vidcall" {
		level = zerolog.WarnLevel
	}

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = zerolog.DebugLevel
		case "info":
			level = zerolog.InfoLevel
		case "warn", "warning":
			level = zerolog.WarnLevel
		case "error", "production", "prod":
			level = zerolog.ErrorLevel
		}
	}

	w := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
