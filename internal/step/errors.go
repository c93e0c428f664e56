package step

import "fmt"

// StepError reports which step failed and why. It unwraps to the cause, so
// errors.Is matches the underlying mutation, command or commit kind.
type StepError struct {
	StepName string
	// Action is the description of the failing action, empty when the commit failed.
	Action string
	Cause  error
}

func (e *StepError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("step %q failed at %s: %v", e.StepName, e.Action, e.Cause)
	}
	return fmt.Sprintf("step %q failed: %v", e.StepName, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}
