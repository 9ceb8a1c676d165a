package mylog

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/MarcGrol/storefront/lib/mycontext"
)

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
		New = newGloudLogger
	}
}

// Cloud Logging parses each stdout line as a JSON entry and adds the timestamp itself.
type structuredLogger struct {
	componentName string
	logger        zerolog.Logger
}

func newGloudLogger(componentName string) Logger {
	return newGcloudLoggerTo(os.Stdout, componentName)
}

func newGcloudLoggerTo(out io.Writer, componentName string) Logger {
	return structuredLogger{
		componentName: componentName,
		logger:        zerolog.New(out),
	}
}

func (l structuredLogger) Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...interface{}) {
	if toLevel(severity) < zerolog.GlobalLevel() {
		return
	}

	event := l.logger.Log().
		Str("component", l.componentName).
		Str("severity", string(severity))
	if traceLabel != "" {
		event = event.Dict("labels", zerolog.Dict().Str("aggregate", traceLabel))
	}
	if trace := mycontext.TraceFromContext(ctx); trace != "" {
		event = event.Str("logging.googleapis.com/trace", trace)
	}
	event.Msgf(l.componentName+":"+format, a...)
}
