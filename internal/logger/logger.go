// Package logger builds the process logger from configuration.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"applicant-rag/internal/config"
)

// New returns a JSON logger on stderr, or a console logger when
// cfg.Format is "console". Unknown levels fall back to info.
func New(cfg config.LogConfig, app config.AppConfig) zerolog.Logger {
	return NewWithWriter(os.Stderr, cfg, app)
}

func NewWithWriter(w io.Writer, cfg config.LogConfig, app config.AppConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("app", app.Name).
		Str("env", app.Env).
		Logger()
}
