package mylog

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newStandardLogger
	}
}

type standardLogger struct {
	componentName string
	logger        zerolog.Logger
}

func newStandardLogger(componentName string) Logger {
	return newStandardLoggerTo(os.Stderr, componentName)
}

func newStandardLoggerTo(out io.Writer, componentName string) Logger {
	writer := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	return standardLogger{
		componentName: componentName,
		logger:        zerolog.New(writer).With().Timestamp().Str("component", componentName).Logger(),
	}
}

func (l standardLogger) Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...interface{}) {
	event := l.logger.WithLevel(toLevel(severity))
	if traceLabel != "" {
		event = event.Str("aggregate", traceLabel)
	}
	event.Msgf(format, a...)
}
