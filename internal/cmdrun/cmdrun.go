// Package cmdrun abstracts the execution of short-lived external commands so
// that callers (provisioning, device validation) can be tested against a stub
// instead of the real binaries.
package cmdrun

import (
	"context"
	"os/exec"
)

// Runner executes a command and returns its combined output. Implementations
// must block until the command terminates.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the host via os/exec.
type ExecRunner struct{}

// Run executes name with args and returns the combined stdout/stderr. The
// returned error is the exec error verbatim so callers can inspect exit state.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
