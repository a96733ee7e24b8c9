package main

import (
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jxucoder/vibecode/internal/config"
)

// newLogger returns a console logger on w. Unknown levels fall back to info.
// Every line carries a short run id so concurrent go:generate invocations
// can be told apart.
func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		Level(lvl).
		With().
		Timestamp().
		Str("run", uuid.NewString()[:8]).
		Logger()
}

// setup loads configuration and builds the logger for a command.
func setup(w io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, newLogger(w, cfg.LogLevel), nil
}
