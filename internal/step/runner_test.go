package step

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/appstrap/internal/command"
	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
	"git.home.luguber.info/inful/appstrap/internal/metrics"
	"git.home.luguber.info/inful/appstrap/internal/mutate"
	helpers "git.home.luguber.info/inful/appstrap/internal/testutil/testutils"
	"git.home.luguber.info/inful/appstrap/internal/tree"
	"git.home.luguber.info/inful/appstrap/internal/vcs"
)

type fakeSink struct {
	commits []vcs.CommitRecord
	err     error
}

func (f *fakeSink) CommitAll(_ context.Context, step, message string) (vcs.CommitRecord, error) {
	if f.err != nil {
		return vcs.CommitRecord{}, f.err
	}
	rec := vcs.CommitRecord{Step: step, Message: message, Hash: "deadbeefcafe", Timestamp: time.Now()}
	f.commits = append(f.commits, rec)
	return rec, nil
}

type stubCommands struct {
	calls []string
	err   error
}

func (s *stubCommands) Run(_ context.Context, spec command.Spec) (command.Output, error) {
	s.calls = append(s.calls, spec.String())
	if s.err != nil {
		return command.Output{ExitCode: 1}, s.err
	}
	return command.Output{}, nil
}

type recordingAction struct {
	name string
	seen *[]string
	err  error
}

func (a recordingAction) Describe() string { return a.name }

func (a recordingAction) Apply(context.Context, *Env) error {
	*a.seen = append(*a.seen, a.name)
	return a.err
}

type countingRecorder struct {
	metrics.NoopRecorder
	results map[string]metrics.ResultLabel
	cmds    int
}

func (c *countingRecorder) IncStepResult(step string, result metrics.ResultLabel) {
	c.results[step] = result
}

func (c *countingRecorder) ObserveCommandDuration(string, time.Duration, bool) { c.cmds++ }

func newEnv(t *testing.T) (Env, *tree.Tree, *stubCommands) {
	t.Helper()
	tr, err := tree.New(t.TempDir(), nil)
	require.NoError(t, err)
	cmds := &stubCommands{}
	return Env{Mutator: mutate.New(tr), Commands: cmds}, tr, cmds
}

func commandFailure() error {
	return errors.CommandError("command exited with unexpected status").
		WithCause(command.ErrNonZeroExit).
		Build()
}

func TestExecuteRunsActionsInOrderAndCommitsOnce(t *testing.T) {
	gitRepo, tr := helpers.SetupGitTree(t)
	sink, err := vcs.Open(tr, vcs.Options{Author: vcs.Author{Name: "T", Email: "t@example.com"}})
	require.NoError(t, err)
	cmds := &stubCommands{}
	runner := NewRunner(Env{Mutator: mutate.New(tr), Commands: cmds}, sink)

	s := Step{
		Name:    "pundit",
		Message: "Pundit installed",
		Actions: []Action{
			Mutation{Request: mutate.Request{Target: "Gemfile", Op: mutate.OpAppend, Payload: "gem 'pundit'\n"}},
			Command{Spec: command.Spec{Executable: "bin/rails", Args: []string{"generate", "pundit:install"}}},
			Mutation{Request: mutate.Request{
				Target:  "app/controllers/application_controller.rb",
				Op:      mutate.OpAppend,
				Payload: "include Pundit::Authorization\n",
			}},
		},
	}

	rec, err := runner.Execute(t.Context(), s)
	require.NoError(t, err)
	assert.Equal(t, "pundit", rec.Step)
	assert.Equal(t, []string{"Gemfile", "app/controllers/application_controller.rb"}, rec.FilesChanged)
	assert.Equal(t, []string{"bin/rails generate pundit:install"}, cmds.calls)
	assert.Equal(t, []string{"Pundit installed"}, helpers.CommitMessages(t, gitRepo))
}

func TestExecuteShortCircuitsWithoutCommit(t *testing.T) {
	env, tr, _ := newEnv(t)
	helpers.WriteFile(t, tr.Root(), "config/routes.rb", "Rails.application.routes.draw do\nend\n")
	sink := &fakeSink{}
	runner := NewRunner(env, sink)

	var seen []string
	s := Step{
		Name: "sidekiq",
		Actions: []Action{
			recordingAction{name: "first", seen: &seen},
			Mutation{Request: mutate.Request{Target: "config/routes.rb", Op: mutate.OpInsertAfter, Marker: "Draw do\n", Payload: "x\n"}},
			recordingAction{name: "third", seen: &seen},
		},
	}

	_, err := runner.Execute(t.Context(), s)
	require.Error(t, err)

	var stepErr *StepError
	require.True(t, stderrors.As(err, &stepErr))
	assert.Equal(t, "sidekiq", stepErr.StepName)
	assert.Contains(t, stepErr.Action, "config/routes.rb")
	assert.True(t, stderrors.Is(err, mutate.ErrMarkerNotFound))
	assert.Equal(t, []string{"first"}, seen)
	assert.Empty(t, sink.commits)
}

func TestExecuteBestEffortToleratesCommandFailures(t *testing.T) {
	env, tr, cmds := newEnv(t)
	cmds.err = commandFailure()
	rec := &countingRecorder{results: map[string]metrics.ResultLabel{}}
	env.Recorder = rec
	sink := &fakeSink{}
	runner := NewRunner(env, sink)

	s := Step{
		Name:       "lint",
		BestEffort: true,
		Actions: []Action{
			Command{Spec: command.Spec{Executable: "bundle", Args: []string{"exec", "rubocop", "-A"}}},
			Mutation{Request: mutate.Request{Target: ".rubocop.yml", Op: mutate.OpAppend, Payload: "AllCops: {}\n"}},
		},
	}
	_, err := runner.Execute(t.Context(), s)
	require.NoError(t, err)
	require.Len(t, sink.commits, 1)
	assert.FileExists(t, filepath.Join(tr.Root(), ".rubocop.yml"))
	assert.Equal(t, metrics.ResultCommitted, rec.results["lint"])
	assert.Equal(t, 1, rec.cmds)

	s.BestEffort = false
	_, err = runner.Execute(t.Context(), s)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, command.ErrNonZeroExit))
	assert.Equal(t, metrics.ResultFailed, rec.results["lint"])
}

func TestExecuteBestEffortStillFailsOnMutationErrors(t *testing.T) {
	env, _, _ := newEnv(t)
	runner := NewRunner(env, &fakeSink{})

	s := Step{
		Name:       "optional",
		BestEffort: true,
		Actions: []Action{
			Mutation{Request: mutate.Request{Target: "missing.rb", Op: mutate.OpDelete}},
		},
	}
	_, err := runner.Execute(t.Context(), s)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, mutate.ErrTargetMissing))
}

func TestExecuteCommitFailure(t *testing.T) {
	env, _, _ := newEnv(t)
	runner := NewRunner(env, &fakeSink{err: errors.CommitError("failed to commit").Build()})

	_, err := runner.Execute(t.Context(), Step{Name: "empty"})
	require.Error(t, err)
	var stepErr *StepError
	require.True(t, stderrors.As(err, &stepErr))
	assert.Empty(t, stepErr.Action)
	assert.True(t, errors.HasCategory(err, errors.CategoryCommit))
	assert.Contains(t, err.Error(), `step "empty" failed: `)
	assert.Contains(t, err.Error(), "failed to commit")
}

func TestExecuteStopsOnCanceledContext(t *testing.T) {
	env, _, _ := newEnv(t)
	sink := &fakeSink{}
	runner := NewRunner(env, sink)

	var seen []string
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := runner.Execute(ctx, Step{Name: "late", Actions: []Action{recordingAction{name: "a", seen: &seen}}})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
	assert.Empty(t, seen)
	assert.Empty(t, sink.commits)
}

func TestDescribe(t *testing.T) {
	s := Step{
		Name: "routes",
		Actions: []Action{
			Mutation{Request: mutate.Request{Target: "config/routes.rb", Op: mutate.OpInsertAfter, Marker: "draw do\n", Payload: "root to: 'home#index'\n"}},
			Command{Spec: command.Spec{Executable: "bin/rails", Args: []string{"db:migrate"}}},
			Say{Message: "done"},
		},
	}
	assert.Equal(t, []string{
		`insert into config/routes.rb after "draw do\n"`,
		"run bin/rails db:migrate",
		"say done",
		`commit "routes"`,
	}, Describe(s))
	assert.Equal(t, "committed", StateCommitted.String())
}
