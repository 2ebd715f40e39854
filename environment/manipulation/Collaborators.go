package manipulation

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gorgonia.org/tensor"
)

// Contact reports a contact point between two bodies as measured by
// the physics collaborator
type Contact struct {
	A, B  uuid.UUID
	Force float64
}

// Physics is the boundary to the physics/robot collaborator. The
// manipulation environment never simulates dynamics itself; it spawns
// bodies, applies actions, and reads poses and contacts back through
// this interface.
//
// Implementations own body lifetimes between Clear calls. Pose returns
// false when the collaborator no longer tracks the body, which the
// environment reports as a failed episode.
type Physics interface {
	// ApplyAction forwards a robot action to the simulation for a
	// single physics step
	ApplyAction(action *mat.VecDense) error

	// Spawn creates a body for the object at the object's pose
	Spawn(obj *Object) error

	// Clear removes all spawned bodies between episodes
	Clear()

	Pose(id uuid.UUID) (Pose, bool)
	EndEffector() Pose
	JointPositions() []r3.Vec
	JointAngles() []float64
	TouchSensors() []float64
	Contacts() []Contact
}

// Scene is the boundary to the rendering collaborator, consumed only
// by the randomizer pipeline.
type Scene interface {
	// BodyNames returns the names of all visual bodies in the scene
	BodyNames() []string

	SetTexture(body string, texture int)
	SetColor(body string, rgba [4]float64)
	SetLight(direction r3.Vec, intensity float64)
	MoveCamera(yaw, pitch, distance float64)
}

// Perception is the boundary to a perception collaborator (vae,
// yolact, voxel or dope feature extractor). Encode returns the feature
// tensor for an object, or an error for which IsPerceptionMiss
// reports true when the extractor found no detection.
type Perception interface {
	Encode(obj *Object) (*tensor.Dense, error)

	// Width is the flattened length of every tensor Encode returns
	Width() int
}

// PerceptionMiss returns the error perception collaborators should
// report when no detection was found
func PerceptionMiss(op string) error {
	return &Error{Op: op, Err: errPerceptionMiss}
}
