// Package kinematic provides a physics stand-in for the manipulation
// environment: bodies have no dynamics, the end effector moves
// kinematically under velocity actions, and grasping is magnetic.
// It is useful for sanity-checking task, reward, and curriculum
// configurations without a simulator attached.
package kinematic

import (
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gomanip/environment/manipulation"
)

// graspRadius is how close the end effector must be to a body before
// a closing gripper attaches it
const graspRadius float64 = 0.1

// Physics is a kinematic stand-in for a physics collaborator.
// Actions are [dx, dy, dz, grip] vectors: the first three components
// are end-effector displacements per physics step, the fourth closes
// the gripper when positive. A closing gripper within graspRadius of a
// body attaches it; the attached body follows the end effector until
// the gripper opens.
type Physics struct {
	gripperID   uuid.UUID
	endEffector manipulation.Pose
	home        r3.Vec
	stepSize    float64

	bodies   map[uuid.UUID]*body
	attached uuid.UUID
	holding  bool
}

type body struct {
	pose  manipulation.Pose
	fixed bool
}

// New returns a kinematic Physics whose end effector starts at (and
// resets to) home, moving at most stepSize per action component per
// physics step
func New(home r3.Vec, stepSize float64) *Physics {
	return &Physics{
		gripperID: uuid.New(),
		endEffector: manipulation.Pose{
			Position: home,
			Rotation: manipulation.IdentityRotation(),
		},
		home:     home,
		stepSize: stepSize,
		bodies:   make(map[uuid.UUID]*body),
	}
}

// ApplyAction moves the end effector by the clipped action displacement
// and updates the gripper state
func (p *Physics) ApplyAction(action *mat.VecDense) error {
	if action.Len() != 4 {
		return fmt.Errorf("applyAction: expected 4 action dimensions, "+
			"got %v", action.Len())
	}

	delta := r3.Vec{
		X: clip(action.AtVec(0)) * p.stepSize,
		Y: clip(action.AtVec(1)) * p.stepSize,
		Z: clip(action.AtVec(2)) * p.stepSize,
	}
	p.endEffector.Position = r3.Add(p.endEffector.Position, delta)

	grip := action.AtVec(3) > 0
	switch {
	case grip && !p.holding:
		p.tryAttach()
	case !grip && p.holding:
		p.holding = false
	}

	if p.holding {
		if b, ok := p.bodies[p.attached]; ok {
			b.pose.Position = p.endEffector.Position
		}
	}
	return nil
}

// tryAttach attaches the nearest moveable body within grasp range
func (p *Physics) tryAttach() {
	best := graspRadius
	for id, b := range p.bodies {
		if b.fixed {
			continue
		}
		dist := r3.Norm(r3.Sub(b.pose.Position, p.endEffector.Position))
		if dist < best {
			best = dist
			p.attached = id
			p.holding = true
		}
	}
}

// Spawn creates a body for the object at the object's pose
func (p *Physics) Spawn(obj *manipulation.Object) error {
	p.bodies[obj.ID] = &body{pose: obj.Pose, fixed: obj.Fixed}
	return nil
}

// Clear removes all spawned bodies and returns the end effector home
func (p *Physics) Clear() {
	p.bodies = make(map[uuid.UUID]*body)
	p.holding = false
	p.endEffector.Position = p.home
}

// Pose returns the pose of a tracked body
func (p *Physics) Pose(id uuid.UUID) (manipulation.Pose, bool) {
	b, ok := p.bodies[id]
	if !ok {
		return manipulation.Pose{}, false
	}
	return b.pose, true
}

// EndEffector returns the current end-effector pose
func (p *Physics) EndEffector() manipulation.Pose {
	return p.endEffector
}

// JointPositions synthesizes a three-joint chain interpolated between
// the workspace origin and the end effector
func (p *Physics) JointPositions() []r3.Vec {
	joints := make([]r3.Vec, 3)
	for i := range joints {
		t := float64(i+1) / 3
		joints[i] = r3.Scale(t, p.endEffector.Position)
	}
	return joints
}

// JointAngles returns a zero angle per synthesized joint
func (p *Physics) JointAngles() []float64 {
	return make([]float64, 3)
}

// TouchSensors returns a single sensor reading 1 while holding a body
func (p *Physics) TouchSensors() []float64 {
	if p.holding {
		return []float64{1}
	}
	return []float64{0}
}

// Contacts reports the gripper-body contact while holding
func (p *Physics) Contacts() []manipulation.Contact {
	if !p.holding {
		return nil
	}
	return []manipulation.Contact{
		{A: p.gripperID, B: p.attached, Force: 1},
	}
}

// Holding returns whether the gripper currently holds a body
func (p *Physics) Holding() bool {
	return p.holding
}

func clip(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

var _ manipulation.Physics = (*Physics)(nil)
