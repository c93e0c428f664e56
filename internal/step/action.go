package step

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/appstrap/internal/command"
	"git.home.luguber.info/inful/appstrap/internal/logfields"
	"git.home.luguber.info/inful/appstrap/internal/metrics"
	"git.home.luguber.info/inful/appstrap/internal/mutate"
)

// Env carries the collaborators actions run against.
type Env struct {
	Mutator  *mutate.Mutator
	Commands command.Runner
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Action is one unit of work inside a step.
type Action interface {
	// Describe returns a one-line human readable summary, used for dry runs and logs.
	Describe() string
	Apply(ctx context.Context, env *Env) error
}

// Mutation applies a single file mutation.
type Mutation struct {
	Request mutate.Request
}

func (m Mutation) Describe() string { return m.Request.Describe() }

func (m Mutation) Apply(ctx context.Context, env *Env) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := env.Mutator.Apply(m.Request)
	return err
}

// Command runs an external command in the project tree.
type Command struct {
	Spec command.Spec
}

func (c Command) Describe() string { return "run " + c.Spec.String() }

func (c Command) Apply(ctx context.Context, env *Env) error {
	env.Logger.Info("Running command", logfields.Command(c.Spec.String()))
	out, err := env.Commands.Run(ctx, c.Spec)
	env.Recorder.ObserveCommandDuration(c.Spec.Executable, out.Duration, err == nil)
	if err != nil {
		return err
	}
	env.Logger.Debug("Command finished",
		logfields.Command(c.Spec.String()),
		logfields.ExitCode(out.ExitCode),
		logfields.Duration(out.Duration))
	return nil
}

// Say logs a progress message.
type Say struct {
	Message string
}

func (s Say) Describe() string { return "say " + s.Message }

func (s Say) Apply(_ context.Context, env *Env) error {
	env.Logger.Info(s.Message)
	return nil
}
