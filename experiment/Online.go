package experiment

import (
	"fmt"
	"time"

	"github.com/samuelfneumann/progressbar"

	"github.com/samuelfneumann/gomanip/experiment/tracker"
	ts "github.com/samuelfneumann/gomanip/timestep"
)

// Stats aggregates episode outcomes over an experiment
type Stats struct {
	Episodes  int
	Successes int
	Failures  int
	Timeouts  int
}

// SuccessRate returns the fraction of completed episodes that ended in
// task success
func (s Stats) SuccessRate() float64 {
	if s.Episodes == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Episodes)
}

func (s Stats) String() string {
	return fmt.Sprintf("episodes: %v  success rate: %.2f  failures: %v  "+
		"timeouts: %v", s.Episodes, s.SuccessRate(), s.Failures, s.Timeouts)
}

// Online is an Experiment that runs policies online only. No offline
// evaluation is performed. With a multi-network curriculum, the
// environment's router selects which of the policies acts on each
// step; every policy observes every timestep so off-policy learners
// can consume the full stream.
type Online struct {
	environment Environment
	policies    []Policy

	maxSteps     uint
	currentSteps uint
	trackers     []tracker.Tracker

	stats Stats
}

// NewOnline creates and returns a new online experiment on a given
// environment with the given policies, one per configured network. The
// steps parameter determines how many timesteps the experiment is run
// for, and the t parameter is a slice of tracker.Tracker which
// determine what data is saved.
func NewOnline(e Environment, policies []Policy, steps uint,
	t ...tracker.Tracker) (*Online, error) {
	if len(policies) == 0 {
		return nil, fmt.Errorf("newOnline: no policies given")
	}

	return &Online{
		environment: e,
		policies:    policies,
		maxSteps:    steps,
		trackers:    t,
	}, nil
}

// Register registers a tracker.Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// RunEpisode runs a single episode of the experiment, returning
// whether the experiment's timestep limit was reached
func (o *Online) RunEpisode() (bool, error) {
	step, err := o.environment.Reset()
	if err != nil {
		return false, fmt.Errorf("runEpisode: could not reset "+
			"environment: %v", err)
	}

	for _, policy := range o.policies {
		policy.ObserveFirst(step)
	}
	o.track(step)

	for !step.Last() && o.currentSteps < o.maxSteps {
		o.currentSteps++

		// The router's choice is stable for the whole step
		policy := o.policies[o.environment.ActiveNetwork()]
		action := policy.SelectAction(step)

		var last bool
		step, last, err = o.environment.Step(action)
		if err != nil && !step.TerminatedEarly() {
			return false, fmt.Errorf("runEpisode: could not step "+
				"environment: %v", err)
		}

		o.track(step)
		for _, p := range o.policies {
			p.Observe(action, step)
		}

		if last {
			break
		}
	}

	if step.Last() {
		o.record(step)
	}
	return o.currentSteps >= o.maxSteps, nil
}

// record aggregates the outcome of a finished episode
func (o *Online) record(step ts.TimeStep) {
	o.stats.Episodes++
	switch step.EndType {
	case ts.TerminalStateReached:
		o.stats.Successes++
	case ts.Failed:
		o.stats.Failures++
	case ts.Timeout:
		o.stats.Timeouts++
	}
}

// Run runs the entire experiment for all timesteps
func (o *Online) Run() error {
	bar := progressbar.New(80, int(o.maxSteps), time.Second, false)
	bar.Display()
	defer bar.Close()

	ended := false
	for !ended {
		before := o.currentSteps

		var err error
		ended, err = o.RunEpisode()
		if err != nil {
			return err
		}

		for i := before; i < o.currentSteps; i++ {
			bar.Increment()
		}
	}
	return nil
}

// Stats returns the aggregated episode outcomes seen so far
func (o *Online) Stats() Stats {
	return o.stats
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() {
	for _, t := range o.trackers {
		t.Save()
	}
}

// track tracks the current timestep by caching its data in each
// tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tr := range o.trackers {
		tr.Track(t)
	}
}
