// Package manipulation implements a configuration-driven robotic
// manipulation environment. A declarative task description (objects
// and their sampling regions, observation and reward selectors,
// randomization toggles, and multi-stage task graphs) is assembled
// into a live episode: objects are sampled and spawned through the
// physics collaborator, the scene is randomized, and every step feeds
// registry state into the observation composer and the reward
// strategy, advancing the task graph and the curriculum router on
// subtask completion.
//
// The physics engine, rendering pipeline, and perception models are
// collaborators reached through interfaces; this package owns only
// the orchestration of an episode.
package manipulation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gomanip/environment"
	"github.com/samuelfneumann/gomanip/timestep"
)

// Options bundles the scalar settings of a manipulation environment
type Options struct {
	// ActionRepeat is how many times the physics collaborator is
	// invoked per logical environment step
	ActionRepeat int

	// MaxEpisodeSteps cuts episodes off after this many steps
	MaxEpisodeSteps int

	// ActionDims is the length of action vectors
	ActionDims int

	Discount float64

	Distractors []DistractorSpec
}

// validate checks the options, returning an error for which
// IsInvalidConfig reports true on a malformed field
func (o Options) validate() error {
	if o.ActionRepeat < 1 {
		return &Error{
			Op: "newManipulation",
			Err: fmt.Errorf("%w: action_repeat %v < 1", errInvalidConfig,
				o.ActionRepeat),
		}
	}
	if o.MaxEpisodeSteps < 1 {
		return &Error{
			Op: "newManipulation",
			Err: fmt.Errorf("%w: max_episode_steps %v < 1",
				errInvalidConfig, o.MaxEpisodeSteps),
		}
	}
	if o.ActionDims < 1 {
		return &Error{
			Op: "newManipulation",
			Err: fmt.Errorf("%w: action_dims %v < 1", errInvalidConfig,
				o.ActionDims),
		}
	}
	if o.Discount < 0 || o.Discount > 1 {
		return &Error{
			Op: "newManipulation",
			Err: fmt.Errorf("%w: discount %v outside [0, 1]",
				errInvalidConfig, o.Discount),
		}
	}

	for _, spec := range o.Distractors {
		if err := spec.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Manipulation drives the reset/step lifecycle of a manipulation
// episode. It implements environment.Environment.
//
// A Manipulation instance is single-owner: it holds its own registry,
// reward state, curriculum state, and RNG streams, so independent
// instances (seeded with per-instance offsets) may run in parallel
// with no shared mutable state.
type Manipulation struct {
	graph    *TaskGraph
	reward   Reward
	composer *Composer
	router   *Router
	pipeline *Pipeline
	sampler  *Sampler
	physics  Physics
	scene    Scene
	opts     Options

	registry  *Registry
	movers    []*distractorMover
	stepLimit environment.Ender

	firstObs *mat.VecDense
	lastStep timestep.TimeStep
	info     string
}

// New constructs a Manipulation environment from its components.
// The environment starts unreset; call Reset before the first Step.
func New(graph *TaskGraph, reward Reward, composer *Composer,
	router *Router, pipeline *Pipeline, sampler *Sampler,
	physics Physics, scene Scene, opts Options) (*Manipulation, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if physics == nil {
		return nil, &Error{
			Op:  "newManipulation",
			Err: fmt.Errorf("%w: no physics collaborator", errInvalidConfig),
		}
	}

	return &Manipulation{
		graph:     graph,
		reward:    reward,
		composer:  composer,
		router:    router,
		pipeline:  pipeline,
		sampler:   sampler,
		physics:   physics,
		scene:     scene,
		opts:      opts,
		registry:  NewRegistry(),
		stepLimit: environment.NewStepLimit(opts.MaxEpisodeSteps),
	}, nil
}

// Reset starts a new episode: every task entry is sampled and spawned,
// the scene is randomized, and all reward and curriculum state is
// zeroed. Reset returns the first timestep of the episode.
func (m *Manipulation) Reset() (timestep.TimeStep, error) {
	m.physics.Clear()
	m.registry.Reset()
	m.graph.Reset()
	m.reward.Reset()
	m.router.Reset()
	m.movers = nil
	m.info = ""

	for i := 0; i < m.graph.Len(); i++ {
		subtask := m.graph.Subtask(i)

		if err := m.spawn(subtask.Init, InitObject, i); err != nil {
			return timestep.TimeStep{}, err
		}
		if err := m.spawn(subtask.Goal, GoalObject, i); err != nil {
			return timestep.TimeStep{}, err
		}
	}

	for _, spec := range m.opts.Distractors {
		obj := m.registry.Add(spec.Name, 0, DistractorObject, -1, false,
			spec.spawnPose())
		if err := m.physics.Spawn(obj); err != nil {
			return timestep.TimeStep{}, &Error{Op: "reset", Err: err}
		}
		m.movers = append(m.movers, newDistractorMover(spec, obj))
	}
	for _, mover := range m.movers {
		mover.step() // place moving distractors on their tracks
	}

	if m.pipeline != nil && m.scene != nil {
		m.pipeline.Apply(m.scene)
	}

	obs, err := m.composer.Compose(m.registry, m.graph, m.physics)
	if err != nil {
		return timestep.TimeStep{}, err
	}

	m.firstObs = obs
	m.lastStep = timestep.New(timestep.First, 0, m.opts.Discount, obs, 0)
	return m.lastStep, nil
}

// spawn samples a pose for a task entry and creates its object, doing
// nothing for null entries
func (m *Manipulation) spawn(ref ObjectRef, kind ObjectKind,
	subtask int) error {
	if ref.Null() {
		return nil
	}

	pose := m.sampler.Sample(ref.Region, ref.RotationDomain())
	obj := m.registry.Add(ref.Name, ref.Class, kind, subtask, ref.Fixed,
		pose)

	if err := m.physics.Spawn(obj); err != nil {
		return &Error{Op: "reset", Err: err}
	}
	return nil
}

// Step applies an action (action_repeat times through the physics
// collaborator), recomputes the registry, and returns the next
// timestep along with whether it ends the episode.
//
// A PhysicsDesync aborts the episode: the returned timestep is
// terminal with end type timestep.Failed and the error is returned for
// the training harness to record a failed episode.
func (m *Manipulation) Step(action *mat.VecDense) (timestep.TimeStep,
	bool, error) {
	for i := 0; i < m.opts.ActionRepeat; i++ {
		if err := m.physics.ApplyAction(action); err != nil {
			step := m.terminal(timestep.Failed, "action rejected by physics")
			return step, true, &Error{Op: "step", Err: err}
		}
	}

	for _, mover := range m.movers {
		mover.step()
	}

	if err := m.registry.Refresh(m.physics); err != nil {
		step := m.terminal(timestep.Failed, "physics desync")
		return step, true, err
	}

	state := &State{
		EndEffector: m.physics.EndEffector(),
		Registry:    m.registry,
		Graph:       m.graph,
		Contacts:    m.physics.Contacts(),
		StepNumber:  m.lastStep.Number + 1,
	}
	out := m.reward.Compute(state)

	if out.Success && m.graph.State(m.graph.Current()) == Active {
		if err := m.graph.MarkDone(m.graph.Current()); err != nil {
			return timestep.TimeStep{}, false, err
		}
		m.router.OnSubtaskDone(m.graph.Current())
	}
	if out.Info != "" {
		m.info = out.Info
	}

	obs, err := m.composer.Compose(m.registry, m.graph, m.physics)
	if err != nil {
		return timestep.TimeStep{}, false, err
	}

	step := timestep.New(timestep.Mid, out.Reward, m.opts.Discount, obs,
		m.lastStep.Number+1)

	last := true
	switch {
	case out.Fail:
		step.StepType = timestep.Last
		step.SetEnd(timestep.Failed)

	case m.graph.AllDone():
		step.StepType = timestep.Last
		step.SetEnd(timestep.TerminalStateReached)
		if m.info == "" {
			m.info = "task completed successfully"
		}

	case m.stepLimit.End(&step):
		if m.info == "" {
			m.info = "episode step limit reached"
		}

	default:
		last = false
	}

	// Network switches and per-frame jitter happen strictly between
	// steps
	m.router.Commit()
	if m.pipeline != nil && m.scene != nil {
		m.pipeline.Jitter(m.scene)
	}

	m.lastStep = step
	return step, last, nil
}

// terminal builds an episode-aborting timestep carrying the last
// observation
func (m *Manipulation) terminal(end timestep.EndType,
	info string) timestep.TimeStep {
	m.info = info

	step := timestep.New(timestep.Last, 0, m.opts.Discount,
		m.lastStep.Observation, m.lastStep.Number+1)
	step.SetEnd(end)

	m.lastStep = step
	return step
}

// Info returns a human-readable description of how the current or
// most recent episode ended, or "" while in progress
func (m *Manipulation) Info() string {
	return m.info
}

// ActiveNetwork returns the id of the policy governing the current
// step
func (m *Manipulation) ActiveNetwork() int {
	return m.router.ActiveNetwork()
}

// Registry exposes the live object registry
func (m *Manipulation) Registry() *Registry {
	return m.registry
}

// Start returns the initial observation of the current episode
func (m *Manipulation) Start() *mat.VecDense {
	return m.firstObs
}

// GetReward returns the reward of the most recent step. The
// manipulation reward is a function of live registry state, not of
// the argument vectors, so all arguments are ignored.
func (m *Manipulation) GetReward(_, _, _ mat.Vector) float64 {
	return m.lastStep.Reward
}

// AtGoal returns whether every subtask has completed
func (m *Manipulation) AtGoal(_ mat.Matrix) bool {
	return m.graph.AllDone()
}

// Min returns the minimum attainable reward on a single step
func (m *Manipulation) Min() float64 { return m.reward.Min() }

// Max returns the maximum attainable reward on a single step
func (m *Manipulation) Max() float64 { return m.reward.Max() }

// End determines whether a timestep ends the episode, either by task
// completion or by the step limit, modifying the timestep in-place
func (m *Manipulation) End(t *timestep.TimeStep) bool {
	if m.graph.AllDone() {
		t.StepType = timestep.Last
		t.SetEnd(timestep.TerminalStateReached)
		return true
	}
	return m.stepLimit.End(t)
}

// RewardSpec returns the reward specification of the environment
func (m *Manipulation) RewardSpec() environment.Spec {
	return environment.NewContinuousSpec(1, environment.Reward,
		m.reward.Min(), m.reward.Max())
}

// DiscountSpec returns the discount specification of the environment
func (m *Manipulation) DiscountSpec() environment.Spec {
	return environment.NewContinuousSpec(1, environment.Discount, 0,
		m.opts.Discount)
}

// ObservationSpec returns the observation specification of the
// environment. Observation length is constant for a fixed
// configuration.
func (m *Manipulation) ObservationSpec() environment.Spec {
	return environment.NewContinuousSpec(m.composer.Len(),
		environment.Observation, math.Inf(-1), math.Inf(1))
}

// ActionSpec returns the action specification of the environment.
// Actions are continuous and clipped by the robot collaborator.
func (m *Manipulation) ActionSpec() environment.Spec {
	return environment.NewContinuousSpec(m.opts.ActionDims,
		environment.Action, -1, 1)
}
