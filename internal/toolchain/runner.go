package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Output captures the result of a command.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes external commands.
type Runner interface {
	// Run executes name with args and waits for it to finish. A non-zero exit
	// is reported as an error alongside the captured Output.
	Run(ctx context.Context, name string, args ...string) (*Output, error)
	// LookPath reports the resolved path of an executable.
	LookPath(name string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdout and Stderr receive a live copy of the command's output when set.
	Stdout io.Writer
	Stderr io.Writer
	// Env, when non-nil, replaces the process environment.
	Env []string
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Output, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if r.Env != nil {
		cmd.Env = r.Env
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = tee(r.Stdout, &stdoutBuf)
	cmd.Stderr = tee(r.Stderr, &stderrBuf)

	err := cmd.Run()
	out := &Output{Stdout: stdoutBuf.String(), Stderr: stderrBuf.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, &CommandError{Command: commandLine(name, args), Output: out}
		}
		out.ExitCode = -1
		return out, fmt.Errorf("running %s: %w", commandLine(name, args), err)
	}
	return out, nil
}

// LookPath implements Runner.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func tee(w io.Writer, buf *bytes.Buffer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(w, buf)
}

// CommandError reports a command that exited non-zero.
type CommandError struct {
	Command string
	Output  *Output
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.Output.ExitCode)
	if s := strings.TrimSpace(e.Output.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

func commandLine(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
