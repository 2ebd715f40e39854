package manipulation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// TaskType enumerates the manipulation task families. The reward
// strategy is selected by task type; unknown types are a configuration
// error.
type TaskType string

const (
	ReachTask  TaskType = "reach"
	SwitchTask TaskType = "switch"
	PressTask  TaskType = "press"
	PokeTask   TaskType = "poke"
	PnPTask    TaskType = "pnp"
)

// Sequential returns whether subtasks of this task type complete in
// declaration order. Pick-and-place graphs (tower stacking) are
// sequential; single-goal tasks are evaluated independently.
func (t TaskType) Sequential() bool {
	return t == PnPTask
}

// Distance is the base metric between positions in the workspace
type Distance string

const (
	Euclidean Distance = "euclidean"
	Manhattan Distance = "manhattan"
)

// Between returns the distance between two points under the metric
func (d Distance) Between(a, b r3.Vec) float64 {
	diff := r3.Sub(a, b)
	if d == Manhattan {
		return math.Abs(diff.X) + math.Abs(diff.Y) + math.Abs(diff.Z)
	}
	return r3.Norm(diff)
}

// Success-distance thresholds. The reach threshold follows the
// original task family's 0.1 m goal radius; placement is tighter.
const (
	ReachThreshold float64 = 0.1
	PlaceThreshold float64 = 0.05
	GraspThreshold float64 = 0.1

	// SuccessBonus is granted on the step a success predicate first
	// holds
	SuccessBonus float64 = 1.0
)

// State is the per-step view a reward strategy computes from: the
// robot state and the live registry, scoped by the task graph to the
// active subtask.
type State struct {
	EndEffector Pose
	Registry    *Registry
	Graph       *TaskGraph
	Contacts    []Contact
	StepNumber  int
}

// trackedPosition returns the position the active subtask's init side
// constrains: the init object's position, or the end effector when the
// subtask declared no physical init object.
func (s *State) trackedPosition() r3.Vec {
	if obj := s.Registry.InitObject(s.Graph.Current()); obj != nil {
		return obj.Pose.Position
	}
	return s.EndEffector.Position
}

// goalPosition returns the position of the active subtask's goal: the
// goal object's position, or the centre of the goal sampling region
// when no goal object exists.
func (s *State) goalPosition() r3.Vec {
	subtask := s.Graph.Current()
	if obj := s.Registry.GoalObject(subtask); obj != nil {
		return obj.Pose.Position
	}
	return s.Graph.Subtask(subtask).Goal.Region.Centre()
}

// Outcome is the result of one reward computation
type Outcome struct {
	// Reward is the stepwise reward signal
	Reward float64

	// Success reports that the active subtask's success predicate
	// holds on this step
	Success bool

	// Fail aborts the episode and reports it as failed
	Fail bool

	// Info describes episode-ending events in human-readable form
	Info string
}

// Reward computes the stepwise reward and success signal for a task.
// Strategies may be stateful (potential-based shaping); Reset must be
// called between episodes.
type Reward interface {
	Compute(s *State) Outcome
	Reset()

	// Min and Max bound the attainable reward on a single step
	Min() float64
	Max() float64
}

// NewReward returns the reward strategy for a task type. When sparse
// is set, the shaped strategy's success predicate is kept but the
// stepwise signal collapses to -1 until success. NewReward returns an
// error for which IsInvalidConfig reports true on an unknown task
// type or metric.
func NewReward(task TaskType, metric Distance, sparse bool) (Reward, error) {
	if metric != Euclidean && metric != Manhattan {
		return nil, &Error{
			Op: "newReward",
			Err: fmt.Errorf("%w: distance_type %q", errInvalidConfig,
				metric),
		}
	}

	var reward Reward
	switch task {
	case ReachTask:
		reward = NewReach(metric)
	case SwitchTask, PressTask:
		reward = NewSwitch(metric)
	case PokeTask:
		reward = NewPoke(metric)
	case PnPTask:
		reward = NewPickAndPlace(metric)
	default:
		return nil, &Error{
			Op:  "newReward",
			Err: fmt.Errorf("%w: task_type %q", errInvalidConfig, task),
		}
	}

	if sparse {
		reward = NewSparse(reward)
	}
	return reward, nil
}

// Reach implements potential-based shaping on the distance between
// the tracked position and the goal: the change in distance between
// consecutive steps, normalized by the previous distance. When the
// graph's active subtask changes, the shaping re-anchors so the first
// step of a subtask is never compared against the previous subtask's
// distance.
type Reach struct {
	metric   Distance
	subtask  int
	prevDist float64
	hasPrev  bool
}

// NewReach returns a new Reach reward under the given metric
func NewReach(metric Distance) *Reach {
	return &Reach{metric: metric}
}

// Compute returns the normalized decrease in goal distance
func (r *Reach) Compute(s *State) Outcome {
	if current := s.Graph.Current(); r.subtask != current {
		r.subtask = current
		r.hasPrev = false
	}

	dist := r.metric.Between(s.trackedPosition(), s.goalPosition())

	if !r.hasPrev {
		r.prevDist = dist
		r.hasPrev = true
	}

	var reward float64
	if r.prevDist > 0 {
		reward = (r.prevDist - dist) / r.prevDist
	}
	r.prevDist = dist

	return Outcome{
		Reward:  reward,
		Success: dist < ReachThreshold,
	}
}

// Reset clears the stored previous distance. Call between episodes.
func (r *Reach) Reset() {
	r.subtask = 0
	r.prevDist = 0
	r.hasPrev = false
}

// Min returns the minimum attainable reward on a single step
func (r *Reach) Min() float64 { return math.Inf(-1) }

// Max returns the maximum attainable reward on a single step
func (r *Reach) Max() float64 { return 1.0 }

// Switch implements the single-goal switch/press reward: the negative
// goal distance on every step, plus a bonus on the step the distance
// first falls below the success threshold.
type Switch struct {
	metric Distance
}

// NewSwitch returns a new Switch reward under the given metric
func NewSwitch(metric Distance) *Switch {
	return &Switch{metric: metric}
}

// Compute returns the negative goal distance, plus the success bonus
// when the goal is reached
func (w *Switch) Compute(s *State) Outcome {
	dist := w.metric.Between(s.trackedPosition(), s.goalPosition())

	reward := -dist
	success := dist < ReachThreshold
	if success {
		reward += SuccessBonus
	}

	return Outcome{Reward: reward, Success: success}
}

// Reset is a no-op: Switch is stateless
func (w *Switch) Reset() {}

// Min returns the minimum attainable reward on a single step
func (w *Switch) Min() float64 { return math.Inf(-1) }

// Max returns the maximum attainable reward on a single step
func (w *Switch) Max() float64 { return SuccessBonus }

// Sparse wraps another reward strategy, keeping its success predicate
// and episode-ending behaviour but collapsing the stepwise signal to
// -1, or 0 on success.
type Sparse struct {
	inner Reward
}

// NewSparse returns a sparse view of another reward strategy
func NewSparse(inner Reward) *Sparse {
	return &Sparse{inner: inner}
}

// Compute returns -1, or 0 on the step the wrapped strategy reports
// success
func (sp *Sparse) Compute(s *State) Outcome {
	out := sp.inner.Compute(s)

	out.Reward = -1.0
	if out.Success {
		out.Reward = 0.0
	}
	return out
}

// Reset resets the wrapped strategy
func (sp *Sparse) Reset() { sp.inner.Reset() }

// Min returns the minimum attainable reward on a single step
func (sp *Sparse) Min() float64 { return -1.0 }

// Max returns the maximum attainable reward on a single step
func (sp *Sparse) Max() float64 { return 0.0 }
