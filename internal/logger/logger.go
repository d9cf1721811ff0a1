// Package logger provides the process-wide log sink. Every entry is appended
// to the log file through logrus; a console hook mirrors entries to the
// terminal with severity-coded prefixes. Error entries always reach stderr,
// whatever the verbosity.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// G is a convenience alias for GetLogger.
	G = GetLogger
	// L is the global logger entry used when no logger is found in context.
	L = logrus.NewEntry(newLogger())
)

type (
	loggerKey struct{}
)

// WithLogger attaches a logger entry to ctx, making it retrievable via GetLogger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	e := logger.WithContext(ctx)
	return context.WithValue(ctx, loggerKey{}, e)
}

// GetLogger retrieves the logger entry from ctx, falling back to L.
func GetLogger(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(loggerKey{})

	if logger == nil {
		return L.WithContext(ctx)
	}

	return logger.(*logrus.Entry)
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{
		TimestampFormat:  time.RFC3339,
		FullTimestamp:    true,
		DisableColors:    true,
		DisableQuote:     true,
		QuoteEmptyFields: true,
	}
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.DebugLevel)
	return l
}

// Options configures Setup.
type Options struct {
	// Path of the append-only log file. Empty disables the file sink.
	Path string
	// Verbose mirrors debug entries to the console.
	Verbose bool
	// Quiet suppresses info and warning entries on the console. Errors are still shown.
	Quiet bool
	// Stdout and Stderr default to os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Setup points the global logger at the log file and installs the console
// hook. The returned closer flushes and closes the file.
func Setup(opts Options) (io.Closer, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	l := L.Logger
	l.ReplaceHooks(make(logrus.LevelHooks))
	l.SetLevel(logrus.DebugLevel)
	l.AddHook(NewConsoleHook(opts.Stdout, opts.Stderr, opts.Verbose, opts.Quiet))

	if opts.Path == "" {
		l.SetOutput(io.Discard)
		return io.NopCloser(nil), nil
	}

	f, err := OpenLogFile(opts.Path)
	if err != nil {
		l.SetOutput(io.Discard)
		return io.NopCloser(nil), err
	}
	l.SetOutput(f)
	return f, nil
}

// OpenLogFile opens path for appending, creating it and its parent directory.
func OpenLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return f, nil
}

// SetLogLevel sets the minimum level written to the log file and console.
func SetLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	L.Logger.SetLevel(logLevel)
	return nil
}
