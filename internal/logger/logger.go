package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config represents logger configuration.
type Config struct {
	AppEnv string
	Level  string
	Out    io.Writer
}

var defaultLevels = map[string]zerolog.Level{
	"development": zerolog.DebugLevel,
	"production":  zerolog.InfoLevel,
}

// New builds the root logger. Production writes JSON lines, anything else
// a human-readable console format.
func New(cfg Config) (zerolog.Logger, error) {
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	level, err := parseLevel(cfg.Level, cfg.AppEnv)
	if err != nil {
		return zerolog.Nop(), err
	}

	if cfg.AppEnv != "production" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// Component derives a child logger tagged with a component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func parseLevel(level, env string) (zerolog.Level, error) {
	if level == "" {
		if l, ok := defaultLevels[env]; ok {
			return l, nil
		}
		return zerolog.InfoLevel, nil
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}
