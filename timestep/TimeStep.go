// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either a first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType describes how an episode ended. An episode may end because
// a terminal state was reached, because the timestep limit was
// reached, or because the environment aborted the episode and reported
// it as failed.
type EndType int

const (
	// NotEnded is the EndType of any timestep before the episode ends
	NotEnded EndType = iota

	// TerminalStateReached denotes that the episode ended in a
	// terminal state
	TerminalStateReached

	// Timeout denotes that the episode ended because the episode
	// step limit was reached
	Timeout

	// Failed denotes that the environment aborted the episode and
	// reported it as a failure
	Failed
)

func (e EndType) String() string {
	switch e {
	case TerminalStateReached:
		return "TerminalStateReached"
	case Timeout:
		return "Timeout"
	case Failed:
		return "Failed"
	default:
		return "NotEnded"
	}
}

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType    StepType
	Reward      float64
	Discount    float64
	Observation *mat.VecDense
	Number      int
	EndType     EndType
}

// New constructs a new TimeStep
func New(t StepType, r, d float64, o *mat.VecDense, n int) TimeStep {
	return TimeStep{t, r, d, o, n, NotEnded}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

// SetEnd records how the episode containing this timestep ended
func (t *TimeStep) SetEnd(e EndType) {
	t.EndType = e
}

// TerminatedEarly returns whether the episode was aborted and reported
// as failed before completing its task
func (t *TimeStep) TerminatedEarly() bool {
	return t.EndType == Failed
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number)
}
