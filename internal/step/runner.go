package step

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strconv"
	"time"

	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
	"git.home.luguber.info/inful/appstrap/internal/logfields"
	"git.home.luguber.info/inful/appstrap/internal/metrics"
	"git.home.luguber.info/inful/appstrap/internal/vcs"
)

// Runner executes steps against one Env and commits through one sink.
type Runner struct {
	env  *Env
	sink vcs.Sink
	now  func() time.Time
}

// NewRunner returns a Runner. A nil Recorder or Logger in env is replaced by
// a no-op recorder and slog.Default.
func NewRunner(env Env, sink vcs.Sink) *Runner {
	if env.Recorder == nil {
		env.Recorder = metrics.NoopRecorder{}
	}
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	return &Runner{env: &env, sink: sink, now: time.Now}
}

// Logger returns the logger actions log to.
func (r *Runner) Logger() *slog.Logger {
	return r.env.Logger
}

// Recorder returns the metrics recorder in use.
func (r *Runner) Recorder() metrics.Recorder {
	return r.env.Recorder
}

// Execute runs the actions of s in order and commits the result. The first
// failing action aborts the step with a *StepError and no commit is made.
func (r *Runner) Execute(ctx context.Context, s Step) (vcs.CommitRecord, error) {
	log := r.env.Logger.With(logfields.Step(s.Name))
	start := r.now()
	state := StateRunning
	defer func() {
		r.env.Recorder.ObserveStepDuration(s.Name, r.now().Sub(start))
		r.env.Recorder.IncStepResult(s.Name, resultLabel(ctx, state))
	}()

	log.Info("Step started", slog.Int("actions", len(s.Actions)))
	env := *r.env
	env.Logger = log

	for i, action := range s.Actions {
		if err := ctx.Err(); err != nil {
			state = StateFailed
			return vcs.CommitRecord{}, &StepError{StepName: s.Name, Action: action.Describe(), Cause: err}
		}
		log.Debug("Applying action", slog.Int("index", i), logfields.Action(action.Describe()))
		if err := action.Apply(ctx, &env); err != nil {
			if s.BestEffort && tolerated(ctx, err) {
				log.Warn("Action failed in best-effort step, continuing",
					logfields.Action(action.Describe()),
					logfields.Error(err))
				continue
			}
			state = StateFailed
			log.Error("Step failed", logfields.Action(action.Describe()), logfields.Error(err))
			return vcs.CommitRecord{}, &StepError{StepName: s.Name, Action: action.Describe(), Cause: err}
		}
	}

	rec, err := r.sink.CommitAll(ctx, s.Name, s.CommitMessage())
	if err != nil {
		state = StateFailed
		log.Error("Step commit failed", logfields.Error(err))
		return vcs.CommitRecord{}, &StepError{StepName: s.Name, Cause: err}
	}
	state = StateCommitted
	log.Info("Step committed",
		logfields.Commit(rec.ShortHash()),
		logfields.Files(len(rec.FilesChanged)),
		logfields.Duration(r.now().Sub(start)))
	return rec, nil
}

// tolerated reports whether a best-effort step may continue past err. Only
// command failures qualify; a canceled run never does.
func tolerated(ctx context.Context, err error) bool {
	if ctx.Err() != nil || stderrors.Is(err, context.Canceled) {
		return false
	}
	return errors.HasCategory(err, errors.CategoryCommand)
}

func resultLabel(ctx context.Context, state State) metrics.ResultLabel {
	switch {
	case state == StateCommitted:
		return metrics.ResultCommitted
	case ctx.Err() != nil:
		return metrics.ResultCanceled
	default:
		return metrics.ResultFailed
	}
}

// Describe lists what executing s would do, one line per action plus the commit.
func Describe(s Step) []string {
	lines := make([]string, 0, len(s.Actions)+1)
	for _, a := range s.Actions {
		lines = append(lines, a.Describe())
	}
	return append(lines, "commit "+strconv.Quote(s.CommitMessage()))
}
