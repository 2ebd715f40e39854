package manipulation

import "fmt"

// NullObject is the object name declaring that a task entry has no
// physical object. A null init side places no positional constraint on
// the reward beyond the end effector itself.
const NullObject = "null"

// SubtaskState tracks a subtask through its lifecycle. A subtask is
// Pending until it becomes the current target, Active while the policy
// works on it, and Done once its success predicate holds. Done is
// terminal within an episode.
type SubtaskState int

const (
	Pending SubtaskState = iota
	Active
	Done
)

func (s SubtaskState) String() string {
	switch s {
	case Active:
		return "Active"
	case Done:
		return "Done"
	default:
		return "Pending"
	}
}

// ObjectRef is one side of a subtask: a named object (or NullObject),
// its sampling region, and its placement flags.
type ObjectRef struct {
	Name    string
	Class   int
	Fixed   bool
	RandRot bool
	Region  Region
}

// Null returns whether the reference declares no physical object
func (o ObjectRef) Null() bool {
	return o.Name == NullObject
}

// RotationDomain returns the rotation domain poses for this object are
// drawn from. Fixed objects stay upright and only rotate about the
// vertical axis.
func (o ObjectRef) RotationDomain() RotationDomain {
	if !o.RandRot {
		return RotationNone
	}
	if o.Fixed {
		return RotationYaw
	}
	return RotationFull
}

// Subtask is one (init-object, goal-object) pair with independent
// sampling and success criteria
type Subtask struct {
	Init ObjectRef
	Goal ObjectRef
}

// TaskGraph holds the ordered subtasks of a task and tracks their
// completion. Sequential graphs (e.g. tower stacking) activate
// subtasks in declaration order; independent graphs (single-goal tasks
// like switch or poke) treat every unfinished subtask as available and
// target the first of them.
type TaskGraph struct {
	subtasks   []Subtask
	states     []SubtaskState
	sequential bool
	current    int
}

// NewTaskGraph constructs a TaskGraph over the given subtasks.
// NewTaskGraph returns an error for which IsInvalidConfig reports true
// when no subtasks are given.
func NewTaskGraph(subtasks []Subtask, sequential bool) (*TaskGraph, error) {
	if len(subtasks) == 0 {
		return nil, &Error{
			Op:  "newTaskGraph",
			Err: fmt.Errorf("%w: task_objects is empty", errInvalidConfig),
		}
	}

	graph := &TaskGraph{
		subtasks:   subtasks,
		states:     make([]SubtaskState, len(subtasks)),
		sequential: sequential,
	}
	graph.Reset()
	return graph, nil
}

// Reset returns the graph to its initial state. Sequential graphs
// activate only the first subtask; independent graphs activate every
// subtask at once.
func (g *TaskGraph) Reset() {
	for i := range g.states {
		if g.sequential {
			g.states[i] = Pending
		} else {
			g.states[i] = Active
		}
	}
	g.states[0] = Active
	g.current = 0
}

// Len returns the number of subtasks
func (g *TaskGraph) Len() int {
	return len(g.subtasks)
}

// Subtask returns the i-th subtask
func (g *TaskGraph) Subtask(i int) Subtask {
	return g.subtasks[i]
}

// State returns the lifecycle state of the i-th subtask
func (g *TaskGraph) State(i int) SubtaskState {
	return g.states[i]
}

// Current returns the index of the active subtask. After AllDone
// reports true, Current keeps returning the final subtask.
func (g *TaskGraph) Current() int {
	return g.current
}

// MarkDone transitions a subtask from Active to Done and activates the
// next unfinished subtask. Done subtasks are never revisited within an
// episode.
func (g *TaskGraph) MarkDone(i int) error {
	if i < 0 || i >= len(g.subtasks) {
		return &Error{
			Op:  "markDone",
			Err: fmt.Errorf("no subtask %v", i),
		}
	}
	if g.states[i] != Active {
		return &Error{
			Op: "markDone",
			Err: fmt.Errorf("subtask %v is %v, expected %v", i,
				g.states[i], Active),
		}
	}

	g.states[i] = Done
	g.advance()
	return nil
}

// advance activates the next unfinished subtask. Sequential graphs
// walk declaration order; independent graphs pick the first subtask
// that is not Done.
func (g *TaskGraph) advance() {
	for i := range g.states {
		if g.states[i] == Done {
			continue
		}

		g.states[i] = Active
		g.current = i
		return
	}
	// Everything is done; current stays on the last finished subtask
}

// AllDone returns whether every subtask has completed
func (g *TaskGraph) AllDone() bool {
	for _, s := range g.states {
		if s != Done {
			return false
		}
	}
	return true
}
