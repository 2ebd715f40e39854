package manipulation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DistractorSpec configures one distractor: an optionally moving
// object that is task-irrelevant but observable. Moveable distractors
// oscillate per-dimension between movement endpoints, either at
// constant speed (triangle wave) or sinusoidally.
type DistractorSpec struct {
	Name          string
	Moveable      bool
	ConstantSpeed bool

	// Position is where the distractor spawns. Moving dimensions
	// oscillate between their endpoints instead.
	Position [3]float64

	// MovementDims is how many dimensions the distractor moves in
	// (1 to 3, taken in x, y, z order)
	MovementDims int

	// MovementEndpoints holds 2*MovementDims scalars: the per-
	// dimension oscillation bounds, min before max
	MovementEndpoints []float64

	// Speed is the fraction of an oscillation period covered per step
	Speed float64
}

// Validate checks the spec, returning an error for which
// IsInvalidConfig reports true on a malformed field
func (d DistractorSpec) Validate() error {
	if !d.Moveable {
		return nil
	}

	if d.MovementDims < 1 || d.MovementDims > 3 {
		return &Error{
			Op: "distractorSpec",
			Err: fmt.Errorf("%w: movement_dims %v outside [1, 3]",
				errInvalidConfig, d.MovementDims),
		}
	}
	if len(d.MovementEndpoints) != 2*d.MovementDims {
		return &Error{
			Op: "distractorSpec",
			Err: fmt.Errorf("%w: movement_endpoints has %v scalars, "+
				"want %v", errInvalidConfig, len(d.MovementEndpoints),
				2*d.MovementDims),
		}
	}
	for dim := 0; dim < d.MovementDims; dim++ {
		lo := d.MovementEndpoints[2*dim]
		hi := d.MovementEndpoints[2*dim+1]
		if lo > hi {
			return &Error{
				Op: "distractorSpec",
				Err: fmt.Errorf("%w: movement_endpoints dimension %v "+
					"has min %v > max %v", errInvalidConfig, dim, lo, hi),
			}
		}
	}
	return nil
}

// distractorMover advances one distractor's scripted oscillation. The
// motion is kinematic: the mover writes poses straight into the
// registry object rather than through the physics collaborator.
type distractorMover struct {
	spec   DistractorSpec
	object *Object
	origin r3.Vec
	phase  float64
}

func newDistractorMover(spec DistractorSpec,
	object *Object) *distractorMover {
	return &distractorMover{
		spec:   spec,
		object: object,
		origin: object.Pose.Position,
	}
}

// spawnPose returns the pose a distractor starts the episode at
func (d DistractorSpec) spawnPose() Pose {
	return Pose{
		Position: r3.Vec{
			X: d.Position[0],
			Y: d.Position[1],
			Z: d.Position[2],
		},
		Rotation: IdentityRotation(),
	}
}

// step advances the oscillation by one environment step
func (m *distractorMover) step() {
	if !m.spec.Moveable {
		return
	}

	speed := m.spec.Speed
	if speed == 0 {
		speed = 0.01
	}
	m.phase += speed

	position := m.origin
	for dim := 0; dim < m.spec.MovementDims; dim++ {
		lo := m.spec.MovementEndpoints[2*dim]
		hi := m.spec.MovementEndpoints[2*dim+1]

		var t float64
		if m.spec.ConstantSpeed {
			t = triangle(m.phase)
		} else {
			t = (1 - math.Cos(2*math.Pi*m.phase)) / 2
		}

		value := lo + t*(hi-lo)
		switch dim {
		case 0:
			position.X = value
		case 1:
			position.Y = value
		case 2:
			position.Z = value
		}
	}

	m.object.Pose.Position = position
}

// triangle maps phase to a [0, 1] triangle wave with period 1
func triangle(phase float64) float64 {
	_, frac := math.Modf(phase)
	if frac < 0 {
		frac += 1
	}
	if frac < 0.5 {
		return 2 * frac
	}
	return 2 * (1 - frac)
}
