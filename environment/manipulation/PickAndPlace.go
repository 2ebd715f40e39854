package manipulation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// pnpStage identifies which sub-behaviour owns the current step of a
// pick-and-place subtask
type pnpStage int

const (
	findStage pnpStage = iota
	moveStage
	placeStage
)

func (s pnpStage) String() string {
	switch s {
	case moveStage:
		return "move"
	case placeStage:
		return "place"
	default:
		return "find"
	}
}

// PickAndPlace implements the staged pick-and-place reward. Each
// subtask passes through three stages: find (end effector approaches
// the object), move (the grasped object travels above the goal in the
// XY plane), and place (the object descends onto the goal). Every
// stage shapes the decrease of its own distance, re-anchoring when
// the owning stage changes.
//
// With a multi-subtask graph, the reward is computed against the
// active subtask only. When the graph advances, all stage and shaping
// state resets, so completed subtasks never contribute to later
// rewards.
type PickAndPlace struct {
	metric Distance

	subtask    int
	hasSubtask bool

	grasped   bool
	lastStage pnpStage
	hasStage  bool

	lastFindDist  float64
	lastMoveDist  float64
	lastHeight    float64
	lastPlaceDist float64
}

// NewPickAndPlace returns a new PickAndPlace reward under the given
// metric
func NewPickAndPlace(metric Distance) *PickAndPlace {
	return &PickAndPlace{metric: metric}
}

// Compute returns the shaping reward of the stage that owns this step
// of the active subtask
func (p *PickAndPlace) Compute(s *State) Outcome {
	current := s.Graph.Current()
	if !p.hasSubtask || p.subtask != current {
		// New active subtask: nothing carries over
		p.anchor(current)
	}

	object := s.trackedPosition()
	goal := s.goalPosition()
	gripper := s.EndEffector.Position

	// A null init side leaves only the end effector to constrain, so
	// the subtask degenerates to reaching the goal
	if s.Registry.InitObject(current) == nil {
		dist := p.metric.Between(gripper, goal)
		if !p.hasStage {
			p.lastPlaceDist = dist
			p.hasStage = true
		}
		reward := p.lastPlaceDist - dist
		p.lastPlaceDist = dist
		return Outcome{Reward: reward, Success: dist < PlaceThreshold}
	}

	stage := p.decide(object, goal, gripper)

	var reward float64
	switch stage {
	case findStage:
		dist := p.metric.Between(gripper, object)
		if !p.hasStage || p.lastStage != findStage {
			p.lastFindDist = dist
		}
		reward = p.lastFindDist - dist
		p.lastFindDist = dist

	case moveStage:
		dist := p.metric.Between(flatten(object), flatten(goal))
		height := object.Z
		if !p.hasStage || p.lastStage != moveStage {
			p.lastMoveDist = dist
			p.lastHeight = height
		}
		reward = (p.lastMoveDist - dist) + math.Abs(p.lastHeight-height)
		p.lastMoveDist = dist
		p.lastHeight = height

	case placeStage:
		dist := p.metric.Between(object, goal)
		if !p.hasStage || p.lastStage != placeStage {
			p.lastPlaceDist = dist
		}
		reward = p.lastPlaceDist - dist
		p.lastPlaceDist = dist

		if dist < PlaceThreshold {
			p.lastStage = stage
			p.hasStage = true
			return Outcome{Reward: reward, Success: true,
				Info: "object placed at goal"}
		}
	}

	p.lastStage = stage
	p.hasStage = true
	return Outcome{Reward: reward}
}

// decide returns the stage owning the current step
func (p *PickAndPlace) decide(object, goal, gripper r3.Vec) pnpStage {
	if p.metric.Between(gripper, object) < GraspThreshold {
		p.grasped = true
	}

	aboveGoal := p.metric.Between(flatten(object),
		flatten(goal)) < GraspThreshold

	switch {
	case p.grasped && aboveGoal:
		return placeStage
	case p.grasped:
		return moveStage
	default:
		return findStage
	}
}

// anchor resets all stage state for a newly active subtask
func (p *PickAndPlace) anchor(subtask int) {
	p.subtask = subtask
	p.hasSubtask = true
	p.grasped = false
	p.hasStage = false
	p.lastFindDist = 0
	p.lastMoveDist = 0
	p.lastHeight = 0
	p.lastPlaceDist = 0
}

// flatten projects a point onto the XY plane
func flatten(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y}
}

// Reset clears all subtask, stage, and shaping state. Call between
// episodes.
func (p *PickAndPlace) Reset() {
	p.hasSubtask = false
	p.anchor(0)
	p.hasSubtask = false
}

// Min returns the minimum attainable reward on a single step
func (p *PickAndPlace) Min() float64 { return math.Inf(-1) }

// Max returns the maximum attainable reward on a single step
func (p *PickAndPlace) Max() float64 { return math.Inf(1) }
