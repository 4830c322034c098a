// internal/logging/logging.go
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel   = "HARP_LOG_LEVEL"
	EnvLogNoColor = "HARP_LOG_NOCOLOR"
	EnvLogJSON    = "HARP_LOG_JSON"
)

// Init builds the process logger, installs it as the zerolog global and returns it.
func Init(app string) zerolog.Logger {
	return initWith(os.Stderr, app)
}

func initWith(out io.Writer, app string) zerolog.Logger {
	level := zerolog.InfoLevel
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		level = lvl
	}

	w := out
	if v, ok := parseBool(os.Getenv(EnvLogJSON)); !ok || !v {
		noColor, _ := parseBool(os.Getenv(EnvLogNoColor))
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    noColor,
		}
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// Component derives a child logger tagged with component. A nil parent yields a no-op logger.
func Component(parent *zerolog.Logger, component string) zerolog.Logger {
	if parent == nil {
		return zerolog.Nop()
	}
	return parent.With().Str("component", component).Logger()
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
