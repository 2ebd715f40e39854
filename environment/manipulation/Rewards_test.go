package manipulation

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// pointGoal builds a subtask whose goal is a bare region pinned at a
// single point
func pointGoal(t *testing.T, initName string, goal r3.Vec) Subtask {
	t.Helper()
	return Subtask{
		Init: ObjectRef{
			Name:   initName,
			Region: region(t, [6]float64{-1, 1, -1, 1, 0, 1}),
		},
		Goal: ObjectRef{
			Name: NullObject,
			Region: region(t, [6]float64{
				goal.X, goal.X, goal.Y, goal.Y, goal.Z, goal.Z,
			}),
		},
	}
}

func rewardScene(t *testing.T, subtasks []Subtask,
	sequential bool) (*Registry, *TaskGraph) {
	t.Helper()

	graph, err := NewTaskGraph(subtasks, sequential)
	if err != nil {
		t.Fatalf("could not create graph: %v", err)
	}

	registry := NewRegistry()
	for i, subtask := range subtasks {
		if subtask.Init.Null() {
			continue
		}
		registry.Add(subtask.Init.Name, 0, InitObject, i, false, Pose{
			Rotation: IdentityRotation(),
		})
	}
	return registry, graph
}

func state(registry *Registry, graph *TaskGraph, gripper r3.Vec) *State {
	return &State{
		EndEffector: Pose{Position: gripper,
			Rotation: IdentityRotation()},
		Registry: registry,
		Graph:    graph,
	}
}

func TestNewRewardInvalid(t *testing.T) {
	if _, err := NewReward("juggle", Euclidean, false); err == nil {
		t.Error("no error for an unknown task type")
	} else if !IsInvalidConfig(err) {
		t.Errorf("IsInvalidConfig(%v) = false", err)
	}

	if _, err := NewReward(ReachTask, "chebyshev", false); err == nil {
		t.Error("no error for an unknown distance metric")
	} else if !IsInvalidConfig(err) {
		t.Errorf("IsInvalidConfig(%v) = false", err)
	}
}

func TestDistanceMetrics(t *testing.T) {
	a := r3.Vec{X: 1, Y: 2, Z: 3}
	b := r3.Vec{X: 4, Y: 6, Z: 3}

	if got := Euclidean.Between(a, b); got != 5 {
		t.Errorf("euclidean distance is %v, want 5", got)
	}
	if got := Manhattan.Between(a, b); got != 7 {
		t.Errorf("manhattan distance is %v, want 7", got)
	}
}

// TestSwitchNullInit covers the single-subtask switch scenario with a
// null init object: nothing is spawned for the init side and the
// reward depends only on the end-effector-to-goal distance.
func TestSwitchNullInit(t *testing.T) {
	goalRegion := region(t, [6]float64{-0.3, 0, 0.4, 0.6, 0.1, 0.1})
	subtasks := []Subtask{{
		Init: ObjectRef{Name: NullObject},
		Goal: ObjectRef{Name: NullObject, Region: goalRegion},
	}}
	registry, graph := rewardScene(t, subtasks, false)

	if got := len(registry.Objects()); got != 0 {
		t.Fatalf("registry tracks %v objects for a null-init task", got)
	}

	reward := NewSwitch(Euclidean)
	centre := goalRegion.Centre()

	far := state(registry, graph, r3.Vec{X: 1, Y: 1, Z: 1})
	out := reward.Compute(far)
	wantReward := -Euclidean.Between(far.EndEffector.Position, centre)
	if math.Abs(out.Reward-wantReward) > 1e-12 {
		t.Errorf("reward is %v, want %v", out.Reward, wantReward)
	}
	if out.Success {
		t.Error("success reported far from the goal")
	}

	near := state(registry, graph,
		r3.Add(centre, r3.Vec{X: 0.05}))
	out = reward.Compute(near)
	if !out.Success {
		t.Error("no success within the reach threshold")
	}
	if math.Abs(out.Reward-(-0.05+SuccessBonus)) > 1e-12 {
		t.Errorf("success reward is %v, want %v", out.Reward,
			-0.05+SuccessBonus)
	}
}

func TestReachNormalizedShaping(t *testing.T) {
	goal := r3.Vec{X: 1}
	registry, graph := rewardScene(t,
		[]Subtask{pointGoal(t, NullObject, goal)}, false)

	reward := NewReach(Euclidean)

	// The first step anchors the potential
	out := reward.Compute(state(registry, graph, r3.Vec{}))
	if out.Reward != 0 {
		t.Errorf("anchoring step rewarded %v, want 0", out.Reward)
	}

	// Halving the distance yields half the previous potential
	out = reward.Compute(state(registry, graph, r3.Vec{X: 0.5}))
	if math.Abs(out.Reward-0.5) > 1e-12 {
		t.Errorf("reward is %v, want 0.5", out.Reward)
	}

	// Moving away is penalized
	out = reward.Compute(state(registry, graph, r3.Vec{}))
	if out.Reward >= 0 {
		t.Errorf("reward is %v for moving away from the goal", out.Reward)
	}
}

// TestReachReanchorsOnSubtaskChange checks that with a multi-subtask
// graph, the first step of a newly active subtask anchors against its
// own goal distance instead of comparing against the previous
// subtask's.
func TestReachReanchorsOnSubtaskChange(t *testing.T) {
	subtasks := []Subtask{
		pointGoal(t, NullObject, r3.Vec{X: 1}),
		pointGoal(t, NullObject, r3.Vec{X: -1}),
	}
	registry, graph := rewardScene(t, subtasks, true)

	reward := NewReach(Euclidean)
	reward.Compute(state(registry, graph, r3.Vec{}))
	reward.Compute(state(registry, graph, r3.Vec{X: 0.9}))

	if err := graph.MarkDone(0); err != nil {
		t.Fatalf("could not advance the graph: %v", err)
	}

	out := reward.Compute(state(registry, graph, r3.Vec{X: 0.9}))
	if out.Reward != 0 {
		t.Errorf("first step of subtask 1 rewarded %v, want 0", out.Reward)
	}
}

func TestSparseReward(t *testing.T) {
	goal := r3.Vec{X: 1}
	registry, graph := rewardScene(t,
		[]Subtask{pointGoal(t, NullObject, goal)}, false)

	reward, err := NewReward(SwitchTask, Euclidean, true)
	if err != nil {
		t.Fatalf("could not create reward: %v", err)
	}

	out := reward.Compute(state(registry, graph, r3.Vec{}))
	if out.Reward != -1 || out.Success {
		t.Errorf("got (%v, %v) far from the goal, want (-1, false)",
			out.Reward, out.Success)
	}

	out = reward.Compute(state(registry, graph, r3.Vec{X: 0.95}))
	if out.Reward != 0 || !out.Success {
		t.Errorf("got (%v, %v) at the goal, want (0, true)",
			out.Reward, out.Success)
	}
}

// TestPickAndPlaceNoDoubleReward checks that with a sequential
// multi-subtask graph, a completed subtask never contributes to the
// rewards of later subtasks.
func TestPickAndPlaceNoDoubleReward(t *testing.T) {
	goal := r3.Vec{X: 0.3, Y: 0.3, Z: 0.1}
	subtasks := []Subtask{
		pointGoal(t, "tower1", goal),
		pointGoal(t, "tower2", goal),
	}
	registry, graph := rewardScene(t, subtasks, true)

	first := registry.InitObject(0)
	second := registry.InitObject(1)
	first.Pose.Position = r3.Vec{X: -0.5}
	second.Pose.Position = r3.Vec{X: 0.5}

	reward := NewPickAndPlace(Euclidean)

	// Anchor, then carry the first block onto the goal
	reward.Compute(state(registry, graph, r3.Vec{X: -0.4}))
	first.Pose.Position = goal
	out := reward.Compute(state(registry, graph, goal))
	if !out.Success {
		t.Fatal("no success with the first block placed at the goal")
	}

	if err := graph.MarkDone(0); err != nil {
		t.Fatalf("could not advance the graph: %v", err)
	}

	// First step of the new subtask re-anchors: no reward leaks over
	// from the completed one
	out = reward.Compute(state(registry, graph, r3.Vec{X: 0.4}))
	if out.Reward != 0 {
		t.Errorf("first step of subtask 1 rewarded %v, want 0", out.Reward)
	}
	if out.Success {
		t.Error("success reported before the second block moved")
	}

	// Moving the already-placed block must not affect the reward of
	// the active subtask
	baseline := reward.Compute(state(registry, graph, r3.Vec{X: 0.4}))
	first.Pose.Position = r3.Vec{X: -2, Y: -2}
	moved := reward.Compute(state(registry, graph, r3.Vec{X: 0.4}))
	if baseline.Reward != moved.Reward {
		t.Errorf("moving a completed block changed the reward from %v "+
			"to %v", baseline.Reward, moved.Reward)
	}
}

// TestPickAndPlaceNullInit checks that a null init side degenerates to
// reaching the goal with the end effector.
func TestPickAndPlaceNullInit(t *testing.T) {
	goal := r3.Vec{X: 0.3}
	subtasks := []Subtask{pointGoal(t, NullObject, goal)}
	registry, graph := rewardScene(t, subtasks, true)

	reward := NewPickAndPlace(Euclidean)

	reward.Compute(state(registry, graph, r3.Vec{}))
	out := reward.Compute(state(registry, graph,
		r3.Add(goal, r3.Vec{X: 0.01})))
	if !out.Success {
		t.Error("no success with the end effector at the goal")
	}
	if out.Reward <= 0 {
		t.Errorf("reward is %v for approaching the goal", out.Reward)
	}
}

func TestPokeOutcomes(t *testing.T) {
	goal := r3.Vec{X: 0.5}

	setup := func() (*Registry, *TaskGraph, *Poke, *Object) {
		subtasks := []Subtask{pointGoal(t, "cube", goal)}
		registry, graph := rewardScene(t, subtasks, false)
		cube := registry.InitObject(0)
		cube.Pose.Position = r3.Vec{}
		return registry, graph, NewPoke(Euclidean), cube
	}

	t.Run("good poke", func(t *testing.T) {
		registry, graph, poke, cube := setup()

		// Approach from behind the cube, then push it near the goal
		poke.Compute(state(registry, graph, r3.Vec{X: -0.3, Y: 0.4}))
		poke.Compute(state(registry, graph, r3.Vec{X: -0.15}))
		cube.Pose.Position = r3.Vec{X: 0.45}
		poke.Compute(state(registry, graph, r3.Vec{X: -0.05}))

		// The cube comes to rest within the reach threshold
		out := poke.Compute(state(registry, graph, r3.Vec{X: -0.05}))
		if !out.Success {
			t.Fatalf("no success for a settled cube near the goal: %+v",
				out)
		}
		if out.Info != "good poke" {
			t.Errorf("episode info is %q, want %q", out.Info, "good poke")
		}
	})

	t.Run("bad poke", func(t *testing.T) {
		registry, graph, poke, cube := setup()

		poke.Compute(state(registry, graph, r3.Vec{X: -0.15}))
		cube.Pose.Position = r3.Vec{X: 0.2}
		poke.Compute(state(registry, graph, r3.Vec{X: -0.05}))

		// The cube stops well short of the goal
		out := poke.Compute(state(registry, graph, r3.Vec{X: -0.05}))
		if !out.Fail {
			t.Fatalf("no failure for a cube settled far from the goal: "+
				"%+v", out)
		}
		if out.Info != "bad poke" {
			t.Errorf("episode info is %q, want %q", out.Info, "bad poke")
		}
	})

	t.Run("too strong poke", func(t *testing.T) {
		registry, graph, poke, cube := setup()

		poke.Compute(state(registry, graph, r3.Vec{X: -0.15}))
		cube.Pose.Position = r3.Vec{X: 0.3}
		poke.Compute(state(registry, graph, r3.Vec{X: -0.05}))

		// The cube sails far past the goal
		cube.Pose.Position = r3.Vec{X: 1.2}
		out := poke.Compute(state(registry, graph, r3.Vec{X: -0.05}))
		if !out.Fail {
			t.Fatalf("no failure for an overshooting cube: %+v", out)
		}
		if out.Info != "too strong poke" {
			t.Errorf("episode info is %q, want %q", out.Info,
				"too strong poke")
		}
	})
}

func TestRewardResetClearsShaping(t *testing.T) {
	goal := r3.Vec{X: 1}
	registry, graph := rewardScene(t,
		[]Subtask{pointGoal(t, NullObject, goal)}, false)

	reward := NewReach(Euclidean)
	reward.Compute(state(registry, graph, r3.Vec{}))
	reward.Compute(state(registry, graph, r3.Vec{X: 0.5}))

	reward.Reset()

	// After a reset the first step anchors again instead of comparing
	// against the previous episode
	out := reward.Compute(state(registry, graph, r3.Vec{X: 0.9}))
	if out.Reward != 0 {
		t.Errorf("first step after reset rewarded %v, want 0", out.Reward)
	}
}
