// Package experiment implements functionality for running an experiment
package experiment

import (
	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/gomanip/environment"
	"github.com/samuelfneumann/gomanip/experiment/tracker"
	ts "github.com/samuelfneumann/gomanip/timestep"
)

// Experiment outlines structs that can run experiments. Experiments
// track environment TimeSteps, caching each TimeStep in RAM to be
// later saved to disk. The Save() function will then take all cached
// data and save it to disk. This is usually performed after an
// experiment has been run. The Run() method will run all episodes
// until the maximum timestep limit is reached, or some other ending
// condition is reached. The RunEpisode() function will run a single
// episode.
//
// In order to save data, Experiments use Trackers. Trackers determine
// which data generated during the experiment is saved. Experiments
// will send each TimeStep to Trackers using the Tracker's Track()
// method. The Tracker then determines which data from the TimeStep it
// caches and saves. New Trackers can be registered with an Experiment
// through the constructor or through an Experiment's Register()
// function.
type Experiment interface {
	Run() error
	RunEpisode() (bool, error) // Returns whether the step limit was hit

	// Save all tracked data to disk
	Save()

	// Adds a new tracker.Tracker to the (possibly already running)
	// experiment. Useful if you want to track data only after a
	// specified event.
	Register(t tracker.Tracker)
}

// Policy selects actions from observations. A Policy is an external
// collaborator: its internals (neural networks, replay, learning
// updates) live outside this module. Multi-network curricula supply
// one Policy per network; the environment's curriculum router decides
// which one acts on each step.
type Policy interface {
	// SelectAction returns the action to take at the given timestep
	SelectAction(t ts.TimeStep) *mat.VecDense

	// ObserveFirst observes the first timestep of an episode
	ObserveFirst(t ts.TimeStep)

	// Observe observes the timestep that followed the last selected
	// action
	Observe(action mat.Vector, t ts.TimeStep)
}

// Environment is the environment surface an experiment runs on: the
// usual reset/step lifecycle plus the curriculum and episode-outcome
// accessors of the manipulation environment.
type Environment interface {
	env.Environment

	// ActiveNetwork returns the id of the policy that should act on
	// the current step
	ActiveNetwork() int

	// Info describes how the most recent episode ended
	Info() string
}
