// Package logging carries a zerolog logger through context.Context and
// renders its events as colored console lines.
package logging

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type logKey struct{}

func init() {
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		return eris.ToString(err, zerolog.GlobalLevel() <= zerolog.TraceLevel)
	}
}

// WithLogger attaches the given logger to the context
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, logKey{}, logger)
}

// Log returns the logger stored in ctx, or the global logger when there is none
func Log(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(logKey{}).(*zerolog.Logger); ok {
			return logger
		}
	}

	return &log.Logger
}

// New creates a console logger writing to w. Debug events are only emitted
// when verbose is set.
func New(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(NewConsoleWriter(w)).Level(level)
}
