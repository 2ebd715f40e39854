package manipulation

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"
)

// StateKind enumerates the observation encodings. The enumeration is
// closed: unknown kinds are a configuration error at construction,
// never a runtime dispatch fallback.
type StateKind string

const (
	EndEffXYZ StateKind = "endeff_xyz"
	EndEff6D  StateKind = "endeff_6D"
	ObjXYZ    StateKind = "obj_xyz"
	Obj6D     StateKind = "obj_6D"
	VAE       StateKind = "vae"
	Yolact    StateKind = "yolact"
	Voxel     StateKind = "voxel"
	Dope      StateKind = "dope"

	JointsXYZ    StateKind = "joints_xyz"
	JointsAngles StateKind = "joints_angles"
	Touch        StateKind = "touch"
	Distractor   StateKind = "distractor"
)

// PerceptionKind returns whether the encoding delegates to an injected
// perception collaborator
func (k StateKind) PerceptionKind() bool {
	switch k {
	case VAE, Yolact, Voxel, Dope:
		return true
	}
	return false
}

var actualKinds = map[StateKind]bool{
	EndEffXYZ: true, EndEff6D: true, ObjXYZ: true, Obj6D: true,
	VAE: true, Yolact: true, Voxel: true, Dope: true,
}

var goalKinds = map[StateKind]bool{
	ObjXYZ: true, Obj6D: true,
	VAE: true, Yolact: true, Voxel: true, Dope: true,
}

// additionalOrder fixes the canonical order of additional observation
// channels. The composed vector layout depends only on the set of
// configured channels, never on their declaration order.
var additionalOrder = []StateKind{
	JointsXYZ, JointsAngles, EndEffXYZ, EndEff6D, Touch, Distractor,
}

// Composer builds the observation vector: the actual-state encoding,
// then the goal-state encoding, then the additional channels in
// canonical order. Output length is constant for a fixed
// configuration regardless of object count or declaration order.
type Composer struct {
	actual     StateKind
	goal       StateKind
	additional []StateKind

	perception map[StateKind]Perception

	numJoints      int
	numTouch       int
	numDistractors int
}

// NewComposer validates the observation selection and returns a new
// Composer. Unknown or misplaced kinds yield an error for which
// IsUnsupportedObservationKind reports true; perception kinds without
// an injected collaborator yield an error for which IsInvalidConfig
// reports true.
func NewComposer(actual, goal StateKind, additional []StateKind,
	perception map[StateKind]Perception, numJoints, numTouch,
	numDistractors int) (*Composer, error) {
	if !actualKinds[actual] {
		return nil, &Error{
			Op: "newComposer",
			Err: fmt.Errorf("%w: actual_state %q",
				errUnsupportedObservationKind, actual),
		}
	}
	if !goalKinds[goal] {
		return nil, &Error{
			Op: "newComposer",
			Err: fmt.Errorf("%w: goal_state %q",
				errUnsupportedObservationKind, goal),
		}
	}

	// Canonicalize additional_obs: membership check, deduplication,
	// fixed order independent of declaration order
	declared := make(map[StateKind]bool, len(additional))
	for _, kind := range additional {
		valid := false
		for _, known := range additionalOrder {
			if kind == known {
				valid = true
				break
			}
		}
		if !valid {
			return nil, &Error{
				Op: "newComposer",
				Err: fmt.Errorf("%w: additional_obs %q",
					errUnsupportedObservationKind, kind),
			}
		}
		declared[kind] = true
	}

	canonical := make([]StateKind, 0, len(declared))
	for _, kind := range additionalOrder {
		if declared[kind] {
			canonical = append(canonical, kind)
		}
	}

	composer := &Composer{
		actual:         actual,
		goal:           goal,
		additional:     canonical,
		perception:     perception,
		numJoints:      numJoints,
		numTouch:       numTouch,
		numDistractors: numDistractors,
	}

	for _, kind := range []StateKind{actual, goal} {
		if kind.PerceptionKind() && perception[kind] == nil {
			return nil, &Error{
				Op: "newComposer",
				Err: fmt.Errorf("%w: no %q perception collaborator "+
					"injected", errInvalidConfig, kind),
			}
		}
	}

	return composer, nil
}

// Len returns the constant length of composed observation vectors
func (c *Composer) Len() int {
	length := c.width(c.actual) + c.width(c.goal)
	for _, kind := range c.additional {
		length += c.width(kind)
	}
	return length
}

// width returns the fixed dimensionality of an encoding block
func (c *Composer) width(kind StateKind) int {
	switch kind {
	case EndEffXYZ, ObjXYZ:
		return 3
	case EndEff6D, Obj6D:
		return 6
	case JointsXYZ:
		return 3 * c.numJoints
	case JointsAngles:
		return c.numJoints
	case Touch:
		return c.numTouch
	case Distractor:
		return 3 * c.numDistractors
	default: // perception kinds
		return c.perception[kind].Width()
	}
}

// Compose builds the observation vector for the active subtask from
// the live registry and robot state
func (c *Composer) Compose(registry *Registry, graph *TaskGraph,
	physics Physics) (*mat.VecDense, error) {
	subtask := graph.Current()
	data := make([]float64, 0, c.Len())

	actual, err := c.encodeState(c.actual, registry.InitObject(subtask),
		physics)
	if err != nil {
		return nil, err
	}
	data = append(data, actual...)

	goal, err := c.encodeGoal(registry, graph, physics)
	if err != nil {
		return nil, err
	}
	data = append(data, goal...)

	for _, kind := range c.additional {
		block, err := c.encodeAdditional(kind, registry, physics)
		if err != nil {
			return nil, err
		}
		data = append(data, block...)
	}

	return mat.NewVecDense(len(data), data), nil
}

// encodeState encodes the actual-state block. A nil object (a null
// init entry) yields a zero block for object-relative kinds.
func (c *Composer) encodeState(kind StateKind, obj *Object,
	physics Physics) ([]float64, error) {
	switch kind {
	case EndEffXYZ:
		return physics.EndEffector().FlatXYZ(), nil
	case EndEff6D:
		return physics.EndEffector().Flat6D(), nil
	case ObjXYZ:
		if obj == nil {
			return make([]float64, 3), nil
		}
		return obj.Pose.FlatXYZ(), nil
	case Obj6D:
		if obj == nil {
			return make([]float64, 6), nil
		}
		return obj.Pose.Flat6D(), nil
	}

	return c.encodePerception(kind, obj)
}

// encodeGoal encodes the goal-state block. A goal side without a
// physical object encodes the centre of its sampling region.
func (c *Composer) encodeGoal(registry *Registry, graph *TaskGraph,
	physics Physics) ([]float64, error) {
	subtask := graph.Current()
	obj := registry.GoalObject(subtask)

	if obj == nil && !c.goal.PerceptionKind() {
		centre := graph.Subtask(subtask).Goal.Region.Centre()
		block := make([]float64, c.width(c.goal))
		block[0], block[1], block[2] = centre.X, centre.Y, centre.Z
		return block, nil
	}

	return c.encodeState(c.goal, obj, physics)
}

func (c *Composer) encodeAdditional(kind StateKind, registry *Registry,
	physics Physics) ([]float64, error) {
	switch kind {
	case EndEffXYZ:
		return physics.EndEffector().FlatXYZ(), nil

	case EndEff6D:
		return physics.EndEffector().Flat6D(), nil

	case JointsXYZ:
		block := make([]float64, 3*c.numJoints)
		for i, pos := range physics.JointPositions() {
			if i >= c.numJoints {
				break
			}
			block[3*i], block[3*i+1], block[3*i+2] = pos.X, pos.Y, pos.Z
		}
		return block, nil

	case JointsAngles:
		block := make([]float64, c.numJoints)
		copy(block, physics.JointAngles())
		return block, nil

	case Touch:
		block := make([]float64, c.numTouch)
		copy(block, physics.TouchSensors())
		return block, nil

	case Distractor:
		// Zero-padded to the configured count so the layout is
		// stable across episodes
		block := make([]float64, 3*c.numDistractors)
		for i, obj := range registry.Distractors() {
			if i >= c.numDistractors {
				break
			}
			copy(block[3*i:3*i+3], obj.Pose.FlatXYZ())
		}
		return block, nil
	}

	return nil, &Error{
		Op: "compose",
		Err: fmt.Errorf("%w: additional_obs %q",
			errUnsupportedObservationKind, kind),
	}
}

// encodePerception forwards an injected encoder's output. On a miss,
// or for a nil object, the composer substitutes a zero vector of the
// encoder's width and logs the fallback; training throughput is never
// interrupted by a transient miss.
func (c *Composer) encodePerception(kind StateKind,
	obj *Object) ([]float64, error) {
	encoder := c.perception[kind]
	zero := make([]float64, encoder.Width())

	if obj == nil {
		return zero, nil
	}

	encoded, err := encoder.Encode(obj)
	if err != nil {
		if IsPerceptionMiss(err) {
			log.Printf("compose: %v encoder miss for object %v, "+
				"substituting zero vector", kind, obj.Name)
			return zero, nil
		}
		return nil, err
	}

	data, ok := encoded.Data().([]float64)
	if !ok || len(data) != encoder.Width() {
		return nil, &Error{
			Op: "compose",
			Err: fmt.Errorf("%v encoder returned tensor of shape %v, "+
				"want %v float64s", kind, encoded.Shape(), encoder.Width()),
		}
	}

	out := make([]float64, len(data))
	copy(out, data)
	return out, nil
}
