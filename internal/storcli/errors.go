package storcli

import (
	"fmt"
	"strings"
)

// BinaryNotFoundError is returned by New when the storcli binary cannot be located
type BinaryNotFoundError struct {
	Binary string
	Err    error
}

func (e *BinaryNotFoundError) Error() string {
	return fmt.Sprintf("storcli binary %q is missing: %v", e.Binary, e.Err)
}

func (e *BinaryNotFoundError) Unwrap() error { return e.Err }

// OutputError reports storcli output that could not be decoded or lacks an
// expected section. Output holds the raw text for diagnostics.
type OutputError struct {
	Command string
	Output  string
	Reason  string
	Err     error
}

func (e *OutputError) Error() string {
	msg := fmt.Sprintf("problem processing output of %q: %s", e.Command, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OutputError) Unwrap() error { return e.Err }

// CommandError reports a failed storcli command: a nonzero exit status, a
// failed Command Status block, or a usage banner printed with exit status 0.
type CommandError struct {
	Command     string
	ExitCode    int
	Stdout      string
	Stderr      string
	Description string
	Details     []string
}

func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "storcli command %q failed", e.Command)
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if e.Description != "" {
		b.WriteString(": ")
		b.WriteString(e.Description)
	}
	for _, d := range e.Details {
		b.WriteString("\n")
		b.WriteString(d)
	}
	if e.Description == "" && len(e.Details) == 0 {
		if out := strings.TrimSpace(e.Stderr + "\n" + e.Stdout); out != "" {
			b.WriteString(":\n")
			b.WriteString(out)
		}
	}
	return b.String()
}

// ConfigurationError reports invalid command parameters, detected before
// anything is executed
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + e.Msg
}
