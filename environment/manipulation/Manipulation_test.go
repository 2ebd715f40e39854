package manipulation

import (
	"testing"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gomanip/timestep"
)

// fakePhysics implements Physics for tests. Spawned bodies are tracked
// in a pose map which tests may mutate directly; bodies added to
// missing simulate a desynchronized simulator.
type fakePhysics struct {
	endEffector Pose
	poses       map[uuid.UUID]Pose
	missing     map[uuid.UUID]bool
	spawned     []*Object
	applied     int
	contacts    []Contact
}

func newFakePhysics() *fakePhysics {
	return &fakePhysics{
		endEffector: Pose{Rotation: IdentityRotation()},
		poses:       make(map[uuid.UUID]Pose),
		missing:     make(map[uuid.UUID]bool),
	}
}

func (f *fakePhysics) ApplyAction(action *mat.VecDense) error {
	f.applied++
	return nil
}

func (f *fakePhysics) Spawn(obj *Object) error {
	f.spawned = append(f.spawned, obj)
	f.poses[obj.ID] = obj.Pose
	return nil
}

func (f *fakePhysics) Clear() {
	f.spawned = nil
	f.poses = make(map[uuid.UUID]Pose)
	f.missing = make(map[uuid.UUID]bool)
}

func (f *fakePhysics) Pose(id uuid.UUID) (Pose, bool) {
	if f.missing[id] {
		return Pose{}, false
	}
	pose, ok := f.poses[id]
	return pose, ok
}

func (f *fakePhysics) EndEffector() Pose        { return f.endEffector }
func (f *fakePhysics) JointPositions() []r3.Vec { return make([]r3.Vec, 3) }
func (f *fakePhysics) JointAngles() []float64   { return make([]float64, 3) }
func (f *fakePhysics) TouchSensors() []float64  { return []float64{0} }
func (f *fakePhysics) Contacts() []Contact      { return f.contacts }

// fakeReward succeeds exactly on the configured step numbers
type fakeReward struct {
	successAt map[int]bool
}

func (f *fakeReward) Compute(s *State) Outcome {
	return Outcome{Reward: 1, Success: f.successAt[s.StepNumber]}
}

func (f *fakeReward) Reset()       {}
func (f *fakeReward) Min() float64 { return 0 }
func (f *fakeReward) Max() float64 { return 1 }

func region(t *testing.T, bounds [6]float64) Region {
	t.Helper()
	r, err := NewRegion(bounds)
	if err != nil {
		t.Fatalf("could not create region: %v", err)
	}
	return r
}

func towerSubtasks(t *testing.T, n int) []Subtask {
	t.Helper()
	subtasks := make([]Subtask, n)
	for i := range subtasks {
		subtasks[i] = Subtask{
			Init: ObjectRef{
				Name:   "tower",
				Region: region(t, [6]float64{-0.5, 0.5, -0.5, 0.5, 0.1, 0.1}),
			},
			Goal: ObjectRef{
				Name:   NullObject,
				Region: region(t, [6]float64{0.3, 0.3, 0.3, 0.3, 0.1, 0.1}),
			},
		}
	}
	return subtasks
}

func newTestEnv(t *testing.T, subtasks []Subtask, reward Reward,
	numNetworks int, maxSteps int) (*Manipulation, *fakePhysics) {
	t.Helper()

	graph, err := NewTaskGraph(subtasks, true)
	if err != nil {
		t.Fatalf("could not create task graph: %v", err)
	}

	composer, err := NewComposer(ObjXYZ, ObjXYZ,
		[]StateKind{EndEffXYZ}, nil, 3, 1, 0)
	if err != nil {
		t.Fatalf("could not create composer: %v", err)
	}

	router, err := NewRouter(numNetworks, len(subtasks), nil)
	if err != nil {
		t.Fatalf("could not create router: %v", err)
	}

	physics := newFakePhysics()
	env, err := New(graph, reward, composer, router, nil,
		NewSampler(42), physics, nil, Options{
			ActionRepeat:    1,
			MaxEpisodeSteps: maxSteps,
			ActionDims:      4,
			Discount:        0.99,
		})
	if err != nil {
		t.Fatalf("could not create environment: %v", err)
	}
	return env, physics
}

func TestResetSpawnsTaskObjects(t *testing.T) {
	subtasks := towerSubtasks(t, 2)
	env, physics := newTestEnv(t, subtasks, &fakeReward{}, 1, 100)

	first, err := env.Reset()
	if err != nil {
		t.Fatalf("could not reset: %v", err)
	}

	// Two init objects; null goals spawn nothing
	if len(physics.spawned) != 2 {
		t.Errorf("spawned %v bodies, want 2", len(physics.spawned))
	}
	for i := range subtasks {
		if env.Registry().InitObject(i) == nil {
			t.Errorf("no init object for subtask %v", i)
		}
		if env.Registry().GoalObject(i) != nil {
			t.Errorf("null goal of subtask %v was spawned", i)
		}
	}

	if !first.First() {
		t.Errorf("first timestep has type %v", first.StepType)
	}
	if first.Number != 0 {
		t.Errorf("first timestep has number %v", first.Number)
	}
}

func TestResetSamplesWithinRegions(t *testing.T) {
	subtasks := towerSubtasks(t, 3)
	env, _ := newTestEnv(t, subtasks, &fakeReward{}, 1, 100)

	if _, err := env.Reset(); err != nil {
		t.Fatalf("could not reset: %v", err)
	}

	for i, subtask := range subtasks {
		obj := env.Registry().InitObject(i)
		if !subtask.Init.Region.Contains(obj.Pose.Position) {
			t.Errorf("subtask %v init object sampled at %v, outside its "+
				"region", i, obj.Pose.Position)
		}
	}
}

func TestStepActionRepeat(t *testing.T) {
	subtasks := towerSubtasks(t, 1)
	graph, _ := NewTaskGraph(subtasks, true)
	composer, _ := NewComposer(ObjXYZ, ObjXYZ, nil, nil, 0, 0, 0)
	router, _ := NewRouter(1, 1, nil)

	physics := newFakePhysics()
	env, err := New(graph, &fakeReward{}, composer, router, nil,
		NewSampler(1), physics, nil, Options{
			ActionRepeat:    3,
			MaxEpisodeSteps: 10,
			ActionDims:      4,
			Discount:        1,
		})
	if err != nil {
		t.Fatalf("could not create environment: %v", err)
	}

	if _, err := env.Reset(); err != nil {
		t.Fatalf("could not reset: %v", err)
	}
	if _, _, err := env.Step(mat.NewVecDense(4, nil)); err != nil {
		t.Fatalf("could not step: %v", err)
	}

	if physics.applied != 3 {
		t.Errorf("physics stepped %v times, want 3", physics.applied)
	}
}

func TestStepTimeout(t *testing.T) {
	env, _ := newTestEnv(t, towerSubtasks(t, 1), &fakeReward{}, 1, 3)

	if _, err := env.Reset(); err != nil {
		t.Fatalf("could not reset: %v", err)
	}

	var step timestep.TimeStep
	var last bool
	var err error
	for i := 0; i < 3; i++ {
		step, last, err = env.Step(mat.NewVecDense(4, nil))
		if err != nil {
			t.Fatalf("could not step: %v", err)
		}
	}

	if !last || !step.Last() {
		t.Fatalf("episode did not end at the step limit")
	}
	if step.EndType != timestep.Timeout {
		t.Errorf("episode ended with %v, want %v", step.EndType,
			timestep.Timeout)
	}
}

func TestPhysicsDesyncAbortsEpisode(t *testing.T) {
	env, physics := newTestEnv(t, towerSubtasks(t, 1), &fakeReward{}, 1, 100)

	if _, err := env.Reset(); err != nil {
		t.Fatalf("could not reset: %v", err)
	}

	obj := env.Registry().InitObject(0)
	physics.missing[obj.ID] = true

	step, last, err := env.Step(mat.NewVecDense(4, nil))
	if err == nil {
		t.Fatal("expected an error from a desynchronized simulator")
	}
	if !IsPhysicsDesync(err) {
		t.Errorf("IsPhysicsDesync(%v) = false", err)
	}
	if !last || step.EndType != timestep.Failed {
		t.Errorf("episode ended with (%v, %v), want a failed terminal step",
			last, step.EndType)
	}
	if !step.TerminatedEarly() {
		t.Error("failed episode not reported as terminated early")
	}
}

func TestTaskCompletionEndsEpisode(t *testing.T) {
	reward := &fakeReward{successAt: map[int]bool{1: true}}
	env, _ := newTestEnv(t, towerSubtasks(t, 1), reward, 1, 100)

	if _, err := env.Reset(); err != nil {
		t.Fatalf("could not reset: %v", err)
	}

	step, last, err := env.Step(mat.NewVecDense(4, nil))
	if err != nil {
		t.Fatalf("could not step: %v", err)
	}

	if !last || step.EndType != timestep.TerminalStateReached {
		t.Fatalf("episode ended with (%v, %v), want terminal success",
			last, step.EndType)
	}
	if !env.AtGoal(nil) {
		t.Error("AtGoal() = false after all subtasks completed")
	}
	if env.Info() == "" {
		t.Error("no episode outcome recorded")
	}
}

// TestRouterSwitchesAtStepBoundary checks the four-block tower
// curriculum: after the first subtask completes, the active network
// must change from 0 to 1 exactly at the boundary of the step where
// success was detected.
func TestRouterSwitchesAtStepBoundary(t *testing.T) {
	reward := &fakeReward{successAt: map[int]bool{3: true}}
	env, _ := newTestEnv(t, towerSubtasks(t, 4), reward, 4, 100)

	if _, err := env.Reset(); err != nil {
		t.Fatalf("could not reset: %v", err)
	}

	for i := 1; i <= 2; i++ {
		if _, _, err := env.Step(mat.NewVecDense(4, nil)); err != nil {
			t.Fatalf("could not step: %v", err)
		}
		if env.ActiveNetwork() != 0 {
			t.Fatalf("network switched to %v before any subtask "+
				"completed", env.ActiveNetwork())
		}
	}

	// Success is detected on step 3
	if _, _, err := env.Step(mat.NewVecDense(4, nil)); err != nil {
		t.Fatalf("could not step: %v", err)
	}

	if env.ActiveNetwork() != 1 {
		t.Errorf("active network is %v after the first subtask, want 1",
			env.ActiveNetwork())
	}
}

func TestObservationLengthStableAcrossEpisode(t *testing.T) {
	env, _ := newTestEnv(t, towerSubtasks(t, 2), &fakeReward{}, 1, 100)

	first, err := env.Reset()
	if err != nil {
		t.Fatalf("could not reset: %v", err)
	}
	want := first.Observation.Len()

	for i := 0; i < 5; i++ {
		step, _, err := env.Step(mat.NewVecDense(4, nil))
		if err != nil {
			t.Fatalf("could not step: %v", err)
		}
		if step.Observation.Len() != want {
			t.Fatalf("observation length changed from %v to %v", want,
				step.Observation.Len())
		}
	}
}
