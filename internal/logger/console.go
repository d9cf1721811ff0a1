package logger

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// ConsoleHook mirrors log entries to the terminal with a severity prefix.
type ConsoleHook struct {
	stdout  io.Writer
	stderr  io.Writer
	verbose bool
	quiet   bool
	mu      sync.Mutex
}

// NewConsoleHook returns a hook writing to stdout and stderr.
func NewConsoleHook(stdout, stderr io.Writer, verbose, quiet bool) *ConsoleHook {
	return &ConsoleHook{stdout: stdout, stderr: stderr, verbose: verbose, quiet: quiet}
}

// Levels implements logrus.Hook.
func (h *ConsoleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *ConsoleHook) Fire(entry *logrus.Entry) error {
	w, prefix := h.route(entry.Level)
	if w == nil {
		return nil
	}

	msg := entry.Message
	if f, ok := entry.Data["path"]; ok {
		msg = fmt.Sprintf("%s (%v)", msg, f)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(w, "%s %s\n", prefix, msg)
	return err
}

func (h *ConsoleHook) route(level logrus.Level) (io.Writer, string) {
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return h.stderr, color.New(color.FgRed, color.Bold).Sprint("[ERROR]")
	case logrus.WarnLevel:
		if h.quiet {
			return nil, ""
		}
		return h.stdout, color.New(color.FgYellow, color.Bold).Sprint("[WARN]")
	case logrus.InfoLevel:
		if h.quiet {
			return nil, ""
		}
		return h.stdout, color.New(color.FgBlue).Sprint("[INFO]")
	default:
		if !h.verbose {
			return nil, ""
		}
		return h.stdout, color.New(color.Faint).Sprint("[DEBUG]")
	}
}
