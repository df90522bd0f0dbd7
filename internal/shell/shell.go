package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Result is the outcome of a finished command
type Result struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// String returns stdout, which is what callers usually want to show
func (r *Result) String() string {
	if r == nil {
		return ""
	}
	return r.Stdout
}

// Runner executes external binaries and waits for them to finish.
// A nonzero exit status is reported through Result.ExitCode, not as an error;
// the error return is reserved for commands that could not be started.
type Runner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, path string, args ...string) (*Result, error)
}

// ExecRunner runs commands on the local host
type ExecRunner struct {
	// Sudo prefixes every command with sudo, as the storage tools need root
	Sudo bool
}

// NewExecRunner creates a runner for the local host
func NewExecRunner(sudo bool) *ExecRunner {
	return &ExecRunner{Sudo: sudo}
}

// LookPath resolves name against PATH (or returns it if it is already a path)
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes path with args and collects its output
func (r *ExecRunner) Run(ctx context.Context, path string, args ...string) (*Result, error) {
	name := path
	if r.Sudo {
		name = "sudo"
		args = append([]string{path}, args...)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.WithFields(log.Fields{"cmd": name, "args": strings.Join(args, " ")}).Debug("running command")

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		result.ExitCode = exitErr.ExitCode()
	default:
		return nil, fmt.Errorf("failed to run %s: %w", path, err)
	}

	return result, nil
}
