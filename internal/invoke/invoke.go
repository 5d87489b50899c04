// Package invoke launches the external preprocessing program and propagates
// its exit status. The subprocess is the last pipeline stage: its exit code
// becomes the launcher's own exit code.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/armon/circbuf"
	"github.com/mattn/go-shellwords"
	"github.com/prepflight/prepflight/internal/ctxlog"
)

// maxTailBytes bounds how much subprocess output is retained for the failure
// diagnostic. The full stream still goes to the process streams; this is only
// the tail embedded in the error.
const maxTailBytes = 32 * 1024

// Spec describes one invocation of the preprocessing program. It is built
// once from the resolved configuration and consumed exactly once.
type Spec struct {
	Interpreter string
	Script      string
	ConfigFile  string
	RawRoot     string
	OutputRoot  string
	Splits      []string
	ExtraArgs   string
	WorkDir     string
}

// SubprocessError reports a non-zero subprocess exit. Code is the subprocess
// exit code verbatim; Tail is the last portion of its combined output.
type SubprocessError struct {
	Code int
	Tail string
}

func (e *SubprocessError) Error() string {
	if e.Tail == "" {
		return fmt.Sprintf("invoke: preprocessing exited with code %d", e.Code)
	}
	return fmt.Sprintf("invoke: preprocessing exited with code %d; output tail:\n%s", e.Code, e.Tail)
}

// BuildArgs assembles the argument vector in a stable order so repeated runs
// produce identical logs: script, --config, --raw-dir, --output-dir,
// --splits (in declared order), then the extra pass-through tokens. The
// extra-args string is split with shell word rules, not passed as one token.
func (s *Spec) BuildArgs() ([]string, error) {
	args := []string{
		s.Script,
		"--config", s.ConfigFile,
		"--raw-dir", s.RawRoot,
		"--output-dir", s.OutputRoot,
		"--splits",
	}
	args = append(args, s.Splits...)

	if s.ExtraArgs != "" {
		extra, err := shellwords.Parse(s.ExtraArgs)
		if err != nil {
			return nil, fmt.Errorf("invoke: parse extra args %q: %w", s.ExtraArgs, err)
		}
		args = append(args, extra...)
	}

	return args, nil
}

// Run launches the subprocess and blocks until it terminates. Combined output
// is streamed to stdout/stderr while a bounded tail is kept for diagnostics.
// A non-zero exit is returned as a SubprocessError carrying the exact code.
// No timeout is applied here; cancellation belongs to the external
// scheduler's kill mechanism.
func Run(ctx context.Context, spec Spec, stdout, stderr io.Writer) error {
	logger := ctxlog.FromContext(ctx)

	args, err := spec.BuildArgs()
	if err != nil {
		return err
	}

	outTail, _ := circbuf.NewBuffer(maxTailBytes)

	cmd := exec.CommandContext(ctx, spec.Interpreter, args...)
	cmd.Dir = spec.WorkDir
	cmd.Stdout = io.MultiWriter(stdout, outTail)
	cmd.Stderr = io.MultiWriter(stderr, outTail)

	logger.Info("Launching preprocessing subprocess.",
		"interpreter", spec.Interpreter,
		"argv", strings.Join(args, " "),
	)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &SubprocessError{
				Code: exitErr.ExitCode(),
				Tail: strings.TrimSpace(string(outTail.Bytes())),
			}
		}
		return fmt.Errorf("invoke: start %s: %w", spec.Interpreter, err)
	}

	logger.Info("Preprocessing subprocess completed.", "exit_code", 0)
	return nil
}
