package main

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gomanip/environment/envconfig"
	"github.com/samuelfneumann/gomanip/environment/manipulation"
	"github.com/samuelfneumann/gomanip/environment/manipulation/kinematic"
	"github.com/samuelfneumann/gomanip/experiment"
	"github.com/samuelfneumann/gomanip/experiment/trackers"
	ts "github.com/samuelfneumann/gomanip/timestep"
)

// towerConfig builds a four-subtask tower stacking task: blocks
// tower1..tower4 are each carried onto the tower target, one network
// per subtask.
func towerConfig() envconfig.Config {
	blockArea := [6]float64{-0.5, 0.5, -0.5, 0.5, 0.1, 0.1}

	subtasks := make([]envconfig.TaskObjectConfig, 4)
	for i := range subtasks {
		subtasks[i] = envconfig.TaskObjectConfig{
			Init: envconfig.PlacementConfig{
				ObjName:      fmt.Sprintf("tower%v", i+1),
				SamplingArea: blockArea,
			},
			Goal: envconfig.PlacementConfig{
				ObjName: "towertarget",
				Fixed:   true,
				SamplingArea: [6]float64{
					0.3, 0.3, 0.3, 0.3,
					0.1 * float64(i+1), 0.1 * float64(i+1),
				},
			},
		}
	}

	return envconfig.Config{
		TaskType:    string(manipulation.PnPTask),
		TaskObjects: subtasks,
		Observation: envconfig.ObservationConfig{
			ActualState:   string(manipulation.ObjXYZ),
			GoalState:     string(manipulation.ObjXYZ),
			AdditionalObs: []string{"endeff_xyz", "touch"},
		},
		Robot: envconfig.RobotConfig{
			ActionDims:      4,
			NumJoints:       3,
			NumTouchSensors: 1,
		},
		NumNetworks:     4,
		MaxEpisodeSteps: 500,
		ActionRepeat:    1,
		Discount:        0.99,
	}
}

// scriptedPolicy is a hand-coded pick-and-place controller over the
// [object, goal, endeff, touch] observation layout: approach the
// active object, close the gripper, carry to the goal, release when
// the held body is no longer the tracked one.
type scriptedPolicy struct{}

func (s scriptedPolicy) SelectAction(step ts.TimeStep) *mat.VecDense {
	obs := step.Observation
	object := r3.Vec{X: obs.AtVec(0), Y: obs.AtVec(1), Z: obs.AtVec(2)}
	goal := r3.Vec{X: obs.AtVec(3), Y: obs.AtVec(4), Z: obs.AtVec(5)}
	gripper := r3.Vec{X: obs.AtVec(6), Y: obs.AtVec(7), Z: obs.AtVec(8)}
	holding := obs.AtVec(9) > 0.5

	target := object
	grip := -1.0
	switch {
	case holding && r3.Norm(r3.Sub(gripper, object)) > 0.1:
		// Holding a block from a finished subtask: drop it and head
		// for the next one
		target = object

	case holding:
		target = goal
		grip = 1.0

	case r3.Norm(r3.Sub(gripper, object)) < 0.05:
		grip = 1.0
	}

	direction := r3.Sub(target, gripper)
	if norm := r3.Norm(direction); norm > 1 {
		direction = r3.Scale(1/norm, direction)
	}

	return mat.NewVecDense(4, []float64{
		direction.X, direction.Y, direction.Z, grip,
	})
}

func (s scriptedPolicy) ObserveFirst(ts.TimeStep)        {}
func (s scriptedPolicy) Observe(mat.Vector, ts.TimeStep) {}

func main() {
	var seed uint64 = 192382

	physics := kinematic.New(r3.Vec{Z: 0.5}, 0.05)
	collab := envconfig.Collaborators{Physics: physics}

	env, _, err := towerConfig().Create(collab, seed)
	if err != nil {
		panic(fmt.Sprintf("could not create environment: %v", err))
	}

	// One policy per network; the curriculum router picks the active
	// one on every step
	policies := make([]experiment.Policy, 4)
	for i := range policies {
		policies[i] = scriptedPolicy{}
	}

	returns := trackers.NewReturn("./data.bin")
	lengths := trackers.NewEpisodeLength("./episode_lengths.bin")
	e, err := experiment.NewOnline(env, policies, 100_000, returns, lengths)
	if err != nil {
		panic(fmt.Sprintf("could not create experiment: %v", err))
	}

	if err := e.Run(); err != nil {
		panic(fmt.Sprintf("experiment failed: %v", err))
	}
	e.Save()

	fmt.Println(e.Stats())
	fmt.Println("last episode:", env.Info())
}
