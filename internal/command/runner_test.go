package command

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
	"git.home.luguber.info/inful/appstrap/internal/tree"
)

func newRunner(t *testing.T) (*ExecRunner, string) {
	t.Helper()
	tr, err := tree.New(t.TempDir(), nil)
	require.NoError(t, err)
	return NewExecRunner(tr, 0), tr.Root()
}

func TestRunCapturesOutput(t *testing.T) {
	r, root := newRunner(t)

	out, err := r.Run(t.Context(), Spec{Executable: "sh", Args: []string{"-c", "echo hello; echo oops >&2; pwd"}})
	require.NoError(t, err)
	assert.Equal(t, 0, out.ExitCode)
	assert.Contains(t, out.Stdout, "hello")
	assert.Contains(t, out.Stdout, filepath.Base(root))
	assert.Contains(t, out.Stderr, "oops")
}

func TestRunStreamsOutputLinesAtDebug(t *testing.T) {
	r, _ := newRunner(t)
	var logs bytes.Buffer
	r.WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

	out, err := r.Run(t.Context(), Spec{Executable: "sh", Args: []string{"-c", "echo first; echo warn >&2; printf last"}})
	require.NoError(t, err)
	assert.Equal(t, "first\nlast", out.Stdout, "output is still captured")
	assert.Equal(t, "warn\n", out.Stderr)

	text := logs.String()
	assert.Contains(t, text, "msg=first")
	assert.Contains(t, text, "msg=last", "a trailing partial line is flushed")
	assert.Contains(t, text, "msg=warn")
	assert.Contains(t, text, "stream=stderr")
	assert.Contains(t, text, "stream=stdout")
}

func TestRunDoesNotLogOutputAboveDebug(t *testing.T) {
	r, _ := newRunner(t)
	var logs bytes.Buffer
	r.WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo})))

	out, err := r.Run(t.Context(), Spec{Executable: "sh", Args: []string{"-c", "echo quiet"}})
	require.NoError(t, err)
	assert.Equal(t, "quiet\n", out.Stdout)
	assert.Empty(t, logs.String())
}

func TestRunInSubdirectoryWithEnv(t *testing.T) {
	r, root := newRunner(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0o750))

	out, err := r.Run(t.Context(), Spec{
		Executable: "sh",
		Args:       []string{"-c", "echo $GREETING > greeting.txt"},
		Dir:        "app",
		Env:        map[string]string{"GREETING": "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, out.ExitCode)

	// #nosec G304 -- test file
	data, err := os.ReadFile(filepath.Join(root, "app", "greeting.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(data))
}

func TestRunNonZeroExit(t *testing.T) {
	r, _ := newRunner(t)

	out, err := r.Run(t.Context(), Spec{Executable: "sh", Args: []string{"-c", "echo broken >&2; exit 3"}})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrNonZeroExit))
	assert.True(t, errors.HasCategory(err, errors.CategoryCommand))
	assert.Equal(t, 3, out.ExitCode)

	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	stderrTail, _ := classified.Context().GetString("stderr")
	assert.Equal(t, "broken", stderrTail)
}

func TestRunExpectedExitCodes(t *testing.T) {
	r, _ := newRunner(t)

	out, err := r.Run(t.Context(), Spec{Executable: "sh", Args: []string{"-c", "exit 1"}, ExpectedExitCodes: []int{0, 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, out.ExitCode)

	_, err = r.Run(t.Context(), Spec{Executable: "true", ExpectedExitCodes: []int{2}})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrNonZeroExit))
}

func TestRunMissingExecutable(t *testing.T) {
	r, _ := newRunner(t)

	_, err := r.Run(t.Context(), Spec{Executable: "appstrap-definitely-not-installed"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrExecutionFailure))
	assert.False(t, stderrors.Is(err, ErrNonZeroExit))
}

func TestRunTimeout(t *testing.T) {
	r, _ := newRunner(t)

	start := time.Now()
	_, err := r.Run(t.Context(), Spec{Executable: "sleep", Args: []string{"5"}, Timeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrCommandTimeout))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunCanceledContext(t *testing.T) {
	r, _ := newRunner(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := r.Run(ctx, Spec{Executable: "sleep", Args: []string{"5"}})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrExecutionFailure))
}

func TestRunValidation(t *testing.T) {
	r, _ := newRunner(t)

	_, err := r.Run(t.Context(), Spec{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	_, err = r.Run(t.Context(), Spec{Executable: "true", Dir: "../elsewhere"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestSpecString(t *testing.T) {
	assert.Equal(t, "bin/rails generate devise:install", Spec{Executable: "bin/rails", Args: []string{"generate", "devise:install"}}.String())
	assert.Equal(t, "bundle", Spec{Executable: "bundle"}.String())
}
