// Package shelltest provides a scripted shell.Runner for tests.
package shelltest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sigreer/raidgod/internal/shell"
)

// Runner answers commands from a table keyed by the joined argument list
// (without the binary path), e.g. "/call show all J".
type Runner struct {
	mu sync.Mutex

	// Paths maps binary names to resolved paths. Names not present fail LookPath.
	Paths map[string]string
	// Responses maps a command to its result.
	Responses map[string]*shell.Result
	// Fallback answers commands missing from Responses. When nil such
	// commands fail to start.
	Fallback *shell.Result

	calls []string
}

// New returns a runner that resolves each of names to /usr/sbin/<name>
func New(names ...string) *Runner {
	r := &Runner{
		Paths:     make(map[string]string),
		Responses: make(map[string]*shell.Result),
	}
	for _, n := range names {
		r.Paths[n] = "/usr/sbin/" + n
	}
	return r
}

// On registers stdout for a command that exits 0
func (r *Runner) On(command, stdout string) *Runner {
	return r.OnResult(command, &shell.Result{Stdout: stdout})
}

// OnResult registers a full result for a command
func (r *Runner) OnResult(command string, result *shell.Result) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Responses[command] = result
	return r
}

// LookPath implements shell.Runner
func (r *Runner) LookPath(name string) (string, error) {
	if p, ok := r.Paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

// Run implements shell.Runner
func (r *Runner) Run(_ context.Context, _ string, args ...string) (*shell.Result, error) {
	command := strings.Join(args, " ")

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, command)

	if res, ok := r.Responses[command]; ok {
		copied := *res
		return &copied, nil
	}
	if r.Fallback != nil {
		copied := *r.Fallback
		return &copied, nil
	}
	return nil, fmt.Errorf("shelltest: no response for %q", command)
}

// Calls returns every command run so far, in order
func (r *Runner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Last returns the most recent command, or "" when nothing ran
func (r *Runner) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return ""
	}
	return r.calls[len(r.calls)-1]
}
