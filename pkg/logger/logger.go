// Package logger builds the zerolog logger used for a run and carries it
// through contexts.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FormatJSON selects JSON lines; anything else gets the console writer.
const FormatJSON = "json"

// Options configures the logger
type Options struct {
	Level  string
	Format string
	Writer io.Writer
	// RunID is attached to every line. A random one is generated when empty.
	RunID string
}

// Logger is an alias so callers do not import zerolog just for the type
type Logger = zerolog.Logger

// New builds a logger writing to opt.Writer, or stderr when it is nil.
func New(opt Options) Logger {
	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if strings.ToLower(opt.Format) != FormatJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	runID := opt.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	return zerolog.New(w).
		Level(parseLevel(opt.Level)).
		With().
		Timestamp().
		Str("run", runID).
		Logger()
}

// WithContext stores l in ctx; packages read it back with zerolog.Ctx.
func WithContext(ctx context.Context, l Logger) context.Context {
	return l.WithContext(ctx)
}

// parseLevel supports string-only levels
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
