// Package logger provides context-aware structured logging for the
// benchmark harness using logrus. Loggers travel through context.Context
// so every phase of a trial logs with the run, trial, and task
// identifiers already attached.
package logger

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// G is a convenience alias for GetLogger, providing quick access to context-aware logger retrieval.
	G = GetLogger
	// L is the global logger entry used as a fallback when no logger is found in context.
	L = logrus.NewEntry(newLogger())
)

type (
	loggerKey struct{}
)

// WithLogger attaches a logger entry to the given context, making it retrievable via GetLogger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	e := logger.WithContext(ctx)
	return context.WithValue(ctx, loggerKey{}, e)
}

// GetLogger retrieves the logger entry from the context. If no logger is found,
// it returns the global logger L with the context attached.
func GetLogger(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(loggerKey{})

	if logger == nil {
		return L.WithContext(ctx)
	}

	return logger.(*logrus.Entry)
}

// WithTrial attaches trial-scoped identifiers to the context logger.
// Empty values are omitted so the same helper serves run-level and
// task-level scopes.
func WithTrial(ctx context.Context, runID, trialID, taskID string) context.Context {
	fields := logrus.Fields{}
	if runID != "" {
		fields["run_id"] = runID
	}
	if trialID != "" {
		fields["trial_id"] = trialID
	}
	if taskID != "" {
		fields["task_id"] = taskID
	}
	return WithLogger(ctx, GetLogger(ctx).WithFields(fields))
}

func newLogger() *logrus.Logger {
	l := logrus.New()

	// Default to formatted text format
	setLoggerFormat(l, "fmt")

	return l
}

// setLoggerFormat sets the formatter for the given logger
func setLoggerFormat(logger *logrus.Logger, format string) {
	switch format {
	case "json":
		logger.Formatter = &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "logLevel",
				logrus.FieldKeyMsg:   "message",
			},
			TimestampFormat: time.RFC3339Nano,
		}
	case "text", "fmt":
		fallthrough
	default:
		logger.Formatter = &logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		}
	}
}

// SetLogLevel sets the log level for the global logger
func SetLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	L.Logger.SetLevel(logLevel)
	return nil
}

// SetLogFormat sets the log format for the global logger
func SetLogFormat(format string) {
	setLoggerFormat(L.Logger, format)
}

// SetLogOutput sets the output destination for the global logger, used to
// tee harness logs into the run output directory.
func SetLogOutput(w io.Writer) {
	L.Logger.SetOutput(w)
}
