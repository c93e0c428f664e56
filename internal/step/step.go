package step

import "fmt"

// State is the lifecycle state of a step within one run.
type State int

const (
	StatePending State = iota
	StateRunning
	StateCommitted
	StateFailed
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Step is one logical setup step. It must not be modified once a pipeline
// has started.
type Step struct {
	Name string
	// Message is the commit message; the step name is used when empty.
	Message   string
	Actions   []Action
	DependsOn []string
	// BestEffort steps log command failures at warn level and continue with
	// the next action instead of failing.
	BestEffort bool
}

// CommitMessage returns the message used for the step's commit.
func (s Step) CommitMessage() string {
	if s.Message != "" {
		return s.Message
	}
	return s.Name
}
