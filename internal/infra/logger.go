package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger: JSON on stdout, human readable and
// at debug level in development, silent under test.
func NewLogger(appEnv string) zerolog.Logger {
	return newLogger(appEnv, os.Stdout)
}

func newLogger(appEnv string, out io.Writer) zerolog.Logger {
	zerolog.DurationFieldUnit = time.Millisecond

	level := zerolog.InfoLevel
	switch appEnv {
	case "development":
		level = zerolog.DebugLevel
	case "test":
		level = zerolog.Disabled
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "nanobanana").
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}

	return logger
}
