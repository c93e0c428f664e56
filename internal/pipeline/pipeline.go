package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/appstrap/internal/checkpoint"
	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
	"git.home.luguber.info/inful/appstrap/internal/logfields"
	"git.home.luguber.info/inful/appstrap/internal/metrics"
	"git.home.luguber.info/inful/appstrap/internal/step"
	"git.home.luguber.info/inful/appstrap/internal/vcs"
)

// Pipeline runs steps in order through a step.Runner.
type Pipeline struct {
	steps    []step.Step
	runner   *step.Runner
	dryRun   bool
	fromStep string
	store    checkpoint.Store
	fresh    bool
	runID    string
	recorder metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
	statuses []StepStatus
}

// StepStatus is the state of one step in the most recent run or plan.
type StepStatus struct {
	Name      string
	State     step.State
	DependsOn []string
	// Commit is the hash recorded for a committed or checkpointed step.
	Commit string
	// Reason explains a skip.
	Reason string
}

// Option configures pipeline behavior.
type Option func(*Pipeline)

// WithDryRun logs what every step would do without touching the tree.
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) {
		p.dryRun = dryRun
	}
}

// WithFromStep skips every step declared before name.
func WithFromStep(name string) Option {
	return func(p *Pipeline) {
		p.fromStep = name
	}
}

// WithCheckpoints skips steps the store has recorded as completed and
// records each newly committed step. With fresh set, existing checkpoints
// are cleared before the run.
func WithCheckpoints(store checkpoint.Store, fresh bool) Option {
	return func(p *Pipeline) {
		p.store = store
		p.fresh = fresh
	}
}

// WithRunID sets the identifier journaled with each commit.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		p.runID = id
	}
}

// WithRecorder injects a metrics recorder for pipeline-level observations.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithLogger injects the logger used for pipeline progress.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New validates steps and options and returns a Pipeline. runner may be nil
// only for a dry run.
func New(steps []step.Step, runner *step.Runner, options ...Option) (*Pipeline, error) {
	p := &Pipeline{
		steps:    steps,
		runner:   runner,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range options {
		opt(p)
	}

	if err := Validate(steps); err != nil {
		return nil, err
	}
	if p.fromStep != "" && p.indexOf(p.fromStep) < 0 {
		return nil, errors.ValidationError(fmt.Sprintf("unknown step %q", p.fromStep)).
			WithContext("from_step", p.fromStep).
			Build()
	}
	if runner == nil && !p.dryRun {
		return nil, errors.InternalError("pipeline requires a step runner").Build()
	}
	if p.runID == "" {
		p.runID = checkpoint.NewRunID()
	}
	return p, nil
}

// RunID returns the identifier of this pipeline's run.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Statuses returns the per-step states of the last Run or Plan.
func (p *Pipeline) Statuses() []StepStatus {
	return p.statuses
}

func (p *Pipeline) indexOf(name string) int {
	for i, s := range p.steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func (p *Pipeline) startIndex() int {
	if p.fromStep == "" {
		return 0
	}
	return p.indexOf(p.fromStep)
}

// Plan reports what Run would do without running anything: steps before
// the from-step and checkpointed steps are skipped, the rest pending.
func (p *Pipeline) Plan(ctx context.Context) ([]StepStatus, error) {
	statuses := p.initialStatuses()
	start := p.startIndex()
	for i := range statuses {
		if i < start {
			statuses[i].State = step.StateSkipped
			statuses[i].Reason = "before --from-step"
			continue
		}
		cp, ok, err := p.checkpointFor(ctx, statuses[i].Name)
		if err != nil {
			return nil, err
		}
		if ok {
			statuses[i].State = step.StateSkipped
			statuses[i].Commit = cp.Hash
			statuses[i].Reason = "checkpoint"
		}
	}
	p.statuses = statuses
	return statuses, nil
}

func (p *Pipeline) initialStatuses() []StepStatus {
	statuses := make([]StepStatus, len(p.steps))
	for i, s := range p.steps {
		statuses[i] = StepStatus{Name: s.Name, State: step.StatePending, DependsOn: s.DependsOn}
	}
	return statuses
}

// checkpointFor looks up a checkpoint unless checkpoints are disabled or
// ignored by a fresh run.
func (p *Pipeline) checkpointFor(ctx context.Context, name string) (checkpoint.Checkpoint, bool, error) {
	if p.store == nil || p.fresh {
		return checkpoint.Checkpoint{}, false, nil
	}
	return p.store.Completed(ctx, name)
}

// Run executes the steps in order and returns one CommitRecord per step
// committed in this run. On the first failing step it stops and returns a
// *PipelineError carrying the commits made so far.
func (p *Pipeline) Run(ctx context.Context) ([]vcs.CommitRecord, error) {
	log := p.logger.With(logfields.RunID(p.runID))
	start := p.now()
	outcome := metrics.OutcomeFailed
	defer func() {
		p.recorder.ObservePipelineDuration(p.now().Sub(start))
		p.recorder.IncPipelineOutcome(outcome)
	}()

	if p.store != nil && p.fresh && !p.dryRun {
		if err := p.store.Clear(ctx); err != nil {
			return nil, err
		}
		log.Info("Cleared checkpoints for fresh run")
	}

	p.statuses = p.initialStatuses()
	begin := p.startIndex()
	commits := make([]vcs.CommitRecord, 0, len(p.steps))
	log.Info("Pipeline started", slog.Int("steps", len(p.steps)), slog.Bool("dry_run", p.dryRun))

	// completed holds steps committed in this run or recorded by a checkpoint.
	completed := make(map[string]bool, len(p.steps))

	for i, s := range p.steps {
		status := &p.statuses[i]
		stepLog := log.With(logfields.Step(s.Name), logfields.StepIndex(i))

		cp, done, err := p.checkpointFor(ctx, s.Name)
		if err != nil {
			status.State = step.StateFailed
			return commits, &PipelineError{FailedStep: s.Name, Partial: commits, Cause: err}
		}
		if done {
			completed[s.Name] = true
		}

		if i < begin {
			status.State = step.StateSkipped
			status.Reason = "before --from-step"
			stepLog.Debug("Skipping step before start step")
			continue
		}
		if done {
			status.State = step.StateSkipped
			status.Commit = cp.Hash
			status.Reason = "checkpoint"
			p.recorder.IncStepResult(s.Name, metrics.ResultSkipped)
			stepLog.Info("Skipping completed step", logfields.Commit(shortHash(cp.Hash)))
			continue
		}

		if missing := missingDependency(s, completed); missing != "" {
			status.State = step.StateFailed
			return commits, &PipelineError{FailedStep: s.Name, Partial: commits, Cause: errors.ValidationError(
				fmt.Sprintf("step %q depends on %q, which has not completed", s.Name, missing)).
				WithContext("step", s.Name).
				WithContext("dependency", missing).
				Build()}
		}

		if p.dryRun {
			for _, line := range step.Describe(s) {
				stepLog.Info("Would " + line)
			}
			completed[s.Name] = true
			continue
		}

		if err := ctx.Err(); err != nil {
			status.State = step.StateFailed
			outcome = metrics.OutcomeCanceled
			return commits, &PipelineError{FailedStep: s.Name, Partial: commits, Cause: &step.StepError{StepName: s.Name, Cause: err}}
		}

		status.State = step.StateRunning
		rec, err := p.runner.Execute(ctx, s)
		if err != nil {
			status.State = step.StateFailed
			if ctx.Err() != nil {
				outcome = metrics.OutcomeCanceled
			}
			return commits, &PipelineError{FailedStep: s.Name, Partial: commits, Cause: err}
		}
		status.State = step.StateCommitted
		status.Commit = rec.Hash
		commits = append(commits, rec)
		completed[s.Name] = true

		if p.store != nil {
			if err := p.store.Record(ctx, p.runID, rec); err != nil {
				return commits, &PipelineError{FailedStep: s.Name, Partial: commits, Cause: err}
			}
		}
	}

	if p.dryRun {
		outcome = metrics.OutcomeDryRun
	} else {
		outcome = metrics.OutcomeSuccess
	}
	log.Info("Pipeline finished",
		slog.Int("committed", len(commits)),
		logfields.Duration(p.now().Sub(start)))
	return commits, nil
}

// missingDependency returns the first dependency of s not in completed.
func missingDependency(s step.Step, completed map[string]bool) string {
	for _, dep := range s.DependsOn {
		if !completed[dep] {
			return dep
		}
	}
	return ""
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
