package manipulation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Poke phase constants. The aim point sits behind the poked object on
// the line through the goal, so the end effector approaches from the
// side opposite the goal before pushing through.
const (
	// pokeAimOffset is how far behind the poked object the aim point
	// sits, along the object-to-goal line
	pokeAimOffset float64 = 0.2

	// pokeAlignThreshold is how close the end effector must be to the
	// aim line before the poke phase takes over
	pokeAlignThreshold float64 = 0.1

	// pokeGain scales the poke-phase shaping relative to the aim
	// phase
	pokeGain float64 = 5.0

	// pokeMotionEps is the displacement below which the poked object
	// counts as stationary
	pokeMotionEps float64 = 1e-4

	// pokeStrengthLimit fails the episode when the object is pushed
	// further than this past the goal
	pokeStrengthLimit float64 = 0.5
)

// pokePhase identifies which sub-behaviour owns the current step
type pokePhase int

const (
	aimPhase pokePhase = iota
	pushPhase
)

// Poke implements the two-phase poking reward. While the end effector
// is not aligned with the object-to-goal line, the aim phase shapes
// the end effector toward an aim point behind the object; once aligned
// (or once the object has been touched), the push phase shapes the
// object toward the goal. Shaping state re-anchors whenever the
// owning phase changes, so neither phase is rewarded for the other's
// progress.
type Poke struct {
	metric Distance

	touched   bool
	lastPhase pokePhase
	havePhase bool

	lastAimDist  float64
	lastPushDist float64

	prevObject r3.Vec
	hasPrev    bool
}

// NewPoke returns a new Poke reward under the given metric
func NewPoke(metric Distance) *Poke {
	return &Poke{metric: metric}
}

// Compute returns the shaping reward of the phase that owns this step
func (p *Poke) Compute(s *State) Outcome {
	object := s.trackedPosition()
	goal := s.goalPosition()
	gripper := s.EndEffector.Position

	if !p.hasPrev {
		p.prevObject = object
		p.hasPrev = true
	}

	moving := p.metric.Between(object, p.prevObject) > pokeMotionEps
	if moving {
		p.touched = true
	}

	phase := p.decide(object, goal, gripper)

	var reward float64
	switch phase {
	case aimPhase:
		aim := aimPoint(object, goal)
		dist := p.metric.Between(gripper, aim)

		if !p.havePhase || p.lastPhase != aimPhase {
			p.lastAimDist = dist
		}
		reward = p.lastAimDist - dist
		p.lastAimDist = dist

	case pushPhase:
		dist := p.metric.Between(object, goal)

		if !p.havePhase || p.lastPhase != pushPhase {
			p.lastPushDist = dist
		}
		reward = pokeGain * (p.lastPushDist - dist)
		p.lastPushDist = dist
	}

	p.lastPhase = phase
	p.havePhase = true
	p.prevObject = object

	pushDist := p.metric.Between(object, goal)

	// A poke ends when the object comes to rest after being touched
	if p.touched && !moving && phase == pushPhase {
		if pushDist < ReachThreshold {
			return Outcome{Reward: reward, Success: true,
				Info: "good poke"}
		}
		return Outcome{Reward: reward, Fail: true, Info: "bad poke"}
	}

	// Pushing the object far past the goal is unrecoverable
	if pushDist > pokeStrengthLimit && p.touched {
		return Outcome{Reward: reward, Fail: true,
			Info: "too strong poke"}
	}

	return Outcome{Reward: reward}
}

// decide returns the phase owning the current step. Once the object
// has been touched, the push phase keeps ownership.
func (p *Poke) decide(object, goal, gripper r3.Vec) pokePhase {
	if p.touched {
		return pushPhase
	}
	if distanceToAimLine(object, goal, gripper) < pokeAlignThreshold {
		return pushPhase
	}
	return aimPhase
}

// aimPoint returns the point pokeAimOffset behind the object on the
// line through the goal
func aimPoint(object, goal r3.Vec) r3.Vec {
	direction := r3.Sub(goal, object)
	norm := r3.Norm(direction)
	if norm == 0 {
		return object
	}
	return r3.Add(object, r3.Scale(-pokeAimOffset/norm, direction))
}

// distanceToAimLine returns the distance from the gripper to the ray
// extending behind the object away from the goal
func distanceToAimLine(object, goal, gripper r3.Vec) float64 {
	direction := r3.Sub(object, goal)
	norm := r3.Norm(direction)
	if norm == 0 {
		return r3.Norm(r3.Sub(gripper, object))
	}

	unit := r3.Scale(1/norm, direction)
	rel := r3.Sub(gripper, object)

	along := r3.Dot(rel, unit)
	if along < 0 {
		// Gripper is on the goal side of the object
		return r3.Norm(rel)
	}

	projected := r3.Add(object, r3.Scale(along, unit))
	return r3.Norm(r3.Sub(gripper, projected))
}

// Reset clears all phase and shaping state. Call between episodes.
func (p *Poke) Reset() {
	p.touched = false
	p.havePhase = false
	p.lastAimDist = 0
	p.lastPushDist = 0
	p.hasPrev = false
	p.prevObject = r3.Vec{}
}

// Min returns the minimum attainable reward on a single step
func (p *Poke) Min() float64 { return math.Inf(-1) }

// Max returns the maximum attainable reward on a single step
func (p *Poke) Max() float64 { return math.Inf(1) }
