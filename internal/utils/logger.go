// internal/utils/logger.go
package utils

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	loggerMu   sync.RWMutex
	baseLogger = zerolog.New(defaultWriter()).With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

func defaultWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
}

// SetupLogging configures the process-wide base logger. level accepts the
// zerolog level names (debug, info, warn, error); unknown values fall back
// to info. When json is true events are emitted as structured JSON instead
// of the console format.
func SetupLogging(level string, json bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer = os.Stderr
	if !json {
		w = defaultWriter()
	}

	loggerMu.Lock()
	baseLogger = zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	loggerMu.Unlock()
}

// NewComponentLogger returns a logger tagged with the component name.
func NewComponentLogger(component string) zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return baseLogger.With().Str("component", component).Logger()
}
