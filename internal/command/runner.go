// Package command runs external generator and build commands inside the
// project tree, one at a time, and classifies how they fail.
package command

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
	"git.home.luguber.info/inful/appstrap/internal/logfields"
	"git.home.luguber.info/inful/appstrap/internal/tree"
)

// Sentinel failure kinds, matched with errors.Is.
var (
	ErrExecutionFailure = stderrors.New("execution failure")
	ErrNonZeroExit      = stderrors.New("non-zero exit")
	ErrCommandTimeout   = stderrors.New("command timeout")
)

// waitDelay bounds how long Run waits for output pipes after the process is killed.
const waitDelay = 2 * time.Second

// DefaultTimeout bounds a command when neither the spec nor the runner sets one.
const DefaultTimeout = 10 * time.Minute

// Spec describes one command invocation.
type Spec struct {
	Executable string
	Args       []string
	// Dir is relative to the tree root; empty means the root itself.
	Dir               string
	ExpectedExitCodes []int
	Timeout           time.Duration
	Env               map[string]string
}

// String renders the command line for logs.
func (s Spec) String() string {
	return strings.TrimSpace(s.Executable + " " + strings.Join(s.Args, " "))
}

func (s Spec) expects(code int) bool {
	if len(s.ExpectedExitCodes) == 0 {
		return code == 0
	}
	return slices.Contains(s.ExpectedExitCodes, code)
}

// Output captures what a finished command produced.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes commands. Implementations must be safe for stubbing in tests.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Output, error)
}

// ExecRunner is the os/exec backed Runner bound to one project tree.
type ExecRunner struct {
	tree           *tree.Tree
	defaultTimeout time.Duration
	logger         *slog.Logger
}

// NewExecRunner returns a runner executing inside t. A zero timeout selects DefaultTimeout.
func NewExecRunner(t *tree.Tree, defaultTimeout time.Duration) *ExecRunner {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &ExecRunner{tree: t, defaultTimeout: defaultTimeout, logger: slog.Default()}
}

// WithLogger sets the logger that receives command output lines at debug level.
func (r *ExecRunner) WithLogger(logger *slog.Logger) *ExecRunner {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Run executes spec synchronously and returns once the process has exited.
func (r *ExecRunner) Run(ctx context.Context, spec Spec) (Output, error) {
	if spec.Executable == "" {
		return Output{}, errors.ValidationError("command has no executable").Build()
	}
	dir := r.tree.Root()
	if spec.Dir != "" {
		resolved, err := r.tree.Resolve(spec.Dir)
		if err != nil {
			return Output{}, err
		}
		dir = resolved
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// #nosec G204 -- commands come from the operator's recipe
	cmd := exec.CommandContext(runCtx, spec.Executable, spec.Args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	if len(spec.Env) > 0 {
		cmd.Env = cmd.Environ()
		for k, v := range spec.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	var stdout, stderr bytes.Buffer
	stdoutLog := newLineLogger(r.logger, spec.String(), "stdout")
	stderrLog := newLineLogger(r.logger, spec.String(), "stderr")
	cmd.Stdout = io.MultiWriter(&stdout, stdoutLog)
	cmd.Stderr = io.MultiWriter(&stderr, stderrLog)

	r.logger.Debug("Running command", logfields.Command(spec.String()), logfields.Path(dir))
	start := time.Now()
	err := cmd.Run()
	stdoutLog.Flush()
	stderrLog.Flush()
	out := Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}

	if stderrors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return out, failure(spec, ErrCommandTimeout, "command timed out").
			WithContext("timeout", timeout.String()).
			Build()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !stderrors.As(err, &exitErr) || ctx.Err() != nil {
			return out, errors.CommandError("command could not be executed").
				WithCause(fmt.Errorf("%w: %w", ErrExecutionFailure, err)).
				WithContext("command", spec.String()).
				Build()
		}
	}
	if !spec.expects(out.ExitCode) {
		return out, failure(spec, ErrNonZeroExit, "command exited with unexpected status").
			WithContext("exit_code", out.ExitCode).
			WithContext("stderr", tail(out.Stderr, 2048)).
			Build()
	}

	r.logger.Debug("Command finished", logfields.Command(spec.String()), logfields.ExitCode(out.ExitCode), logfields.Duration(out.Duration))
	return out, nil
}

func failure(spec Spec, kind error, message string) *errors.ErrorBuilder {
	return errors.CommandError(message).
		WithCause(fmt.Errorf("%w: %s", kind, spec.String())).
		WithContext("command", spec.String())
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
