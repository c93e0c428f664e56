package pipeline

import (
	"fmt"

	"git.home.luguber.info/inful/appstrap/internal/vcs"
)

// PipelineError reports the step a run halted at and the commits made
// before it. It unwraps to the step's error.
type PipelineError struct {
	FailedStep string
	Partial    []vcs.CommitRecord
	Cause      error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline halted at step %q after %d committed step(s): %v",
		e.FailedStep, len(e.Partial), e.Cause)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}
