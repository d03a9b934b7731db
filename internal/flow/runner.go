package flow

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"flowbridge/internal/errors"
)

// Invocation is a single one-shot execution of the worker binary
type Invocation struct {
	Binary string
	Args   []string
	// Stdin is piped to the process when non-nil
	Stdin *string
	Dir   string
	Env   []string
	// File is the source file the invocation is about
	File string
}

// Output is the captured result of a successful invocation
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// CommandError is the structured failure of an invocation.
// ExitCode is -1 when the process never produced one (e.g. exec failed).
type CommandError struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	err      error
}

func (e *CommandError) Error() string {
	sub := "flow"
	if len(e.Args) > 0 {
		sub = "flow " + e.Args[0]
	}
	if e.ExitCode < 0 {
		return fmt.Sprintf("%s: %v", sub, e.err)
	}
	msg := fmt.Sprintf("%s exited with code %d", sub, e.ExitCode)
	if stderr := firstLine(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.err
}

// HasExitCode reports whether the process ran and exited with a code
func (e *CommandError) HasExitCode() bool {
	return e.ExitCode >= 0
}

// Runner runs an invocation to completion
type Runner interface {
	Run(ctx context.Context, inv *Invocation) (*Output, error)
}

// ExecRunner runs invocations as real OS processes
type ExecRunner struct{}

// Run blocks until the process exits. A non-zero exit, or a failure to run
// at all, is reported as *CommandError carrying whatever output was captured.
func (ExecRunner) Run(ctx context.Context, inv *Invocation) (*Output, error) {
	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	if inv.Stdin != nil {
		cmd.Stdin = strings.NewReader(*inv.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return &Output{ExitCode: 0, Stdout: stdout.String(), Stderr: stderr.String()}, nil
	}

	cmdErr := &CommandError{
		Args:     inv.Args,
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	return nil, cmdErr
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
