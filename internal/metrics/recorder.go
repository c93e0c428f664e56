package metrics

import "time"

// ResultLabel enumerates step result categories for counters.
type ResultLabel string

const (
	ResultCommitted ResultLabel = "committed"
	ResultSkipped   ResultLabel = "skipped"
	ResultFailed    ResultLabel = "failed"
	ResultCanceled  ResultLabel = "canceled"
)

// OutcomeLabel enumerates final pipeline outcomes.
type OutcomeLabel string

const (
	OutcomeSuccess  OutcomeLabel = "success"
	OutcomeFailed   OutcomeLabel = "failed"
	OutcomeCanceled OutcomeLabel = "canceled"
	OutcomeDryRun   OutcomeLabel = "dry_run"
)

// Recorder defines observability hooks for pipeline, step and command metrics.
type Recorder interface {
	ObserveStepDuration(step string, d time.Duration)
	IncStepResult(step string, result ResultLabel)
	ObserveCommandDuration(executable string, d time.Duration, success bool)
	ObservePipelineDuration(d time.Duration)
	IncPipelineOutcome(outcome OutcomeLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStepDuration(string, time.Duration)          {}
func (NoopRecorder) IncStepResult(string, ResultLabel)                  {}
func (NoopRecorder) ObserveCommandDuration(string, time.Duration, bool) {}
func (NoopRecorder) ObservePipelineDuration(time.Duration)              {}
func (NoopRecorder) IncPipelineOutcome(OutcomeLabel)                    {}
