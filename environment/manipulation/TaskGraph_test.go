package manipulation

import "testing"

func TestNewTaskGraphEmpty(t *testing.T) {
	_, err := NewTaskGraph(nil, true)
	if err == nil {
		t.Fatal("no error for an empty subtask list")
	}
	if !IsInvalidConfig(err) {
		t.Errorf("IsInvalidConfig(%v) = false", err)
	}
}

func TestSequentialGraphActivatesInOrder(t *testing.T) {
	graph, err := NewTaskGraph(towerSubtasks(t, 3), true)
	if err != nil {
		t.Fatalf("could not create graph: %v", err)
	}

	wantStates := []SubtaskState{Active, Pending, Pending}
	for i, want := range wantStates {
		if graph.State(i) != want {
			t.Errorf("subtask %v is %v at reset, want %v", i,
				graph.State(i), want)
		}
	}

	if err := graph.MarkDone(0); err != nil {
		t.Fatalf("could not mark subtask done: %v", err)
	}
	if graph.Current() != 1 {
		t.Errorf("current subtask is %v, want 1", graph.Current())
	}
	if graph.State(1) != Active {
		t.Errorf("subtask 1 is %v, want %v", graph.State(1), Active)
	}
}

func TestIndependentGraphActivatesAll(t *testing.T) {
	graph, err := NewTaskGraph(towerSubtasks(t, 3), false)
	if err != nil {
		t.Fatalf("could not create graph: %v", err)
	}

	for i := 0; i < graph.Len(); i++ {
		if graph.State(i) != Active {
			t.Errorf("subtask %v is %v at reset, want %v", i,
				graph.State(i), Active)
		}
	}
}

func TestMarkDoneRequiresActive(t *testing.T) {
	graph, err := NewTaskGraph(towerSubtasks(t, 3), true)
	if err != nil {
		t.Fatalf("could not create graph: %v", err)
	}

	// Subtask 2 is still Pending
	if err := graph.MarkDone(2); err == nil {
		t.Error("no error marking a pending subtask done")
	}

	if err := graph.MarkDone(0); err != nil {
		t.Fatalf("could not mark subtask done: %v", err)
	}
	if err := graph.MarkDone(0); err == nil {
		t.Error("no error marking a done subtask done again")
	}
}

func TestAllDone(t *testing.T) {
	graph, err := NewTaskGraph(towerSubtasks(t, 2), true)
	if err != nil {
		t.Fatalf("could not create graph: %v", err)
	}

	if graph.AllDone() {
		t.Fatal("AllDone() = true at reset")
	}

	for i := 0; i < graph.Len(); i++ {
		if err := graph.MarkDone(i); err != nil {
			t.Fatalf("could not mark subtask %v done: %v", i, err)
		}
	}
	if !graph.AllDone() {
		t.Error("AllDone() = false after completing every subtask")
	}

	graph.Reset()
	if graph.AllDone() {
		t.Error("AllDone() = true after reset")
	}
	if graph.Current() != 0 {
		t.Errorf("current subtask is %v after reset, want 0",
			graph.Current())
	}
}

func TestObjectRefRotationDomain(t *testing.T) {
	tests := []struct {
		name string
		ref  ObjectRef
		want RotationDomain
	}{
		{"no random rotation", ObjectRef{Name: "cube"}, RotationNone},
		{"free object", ObjectRef{Name: "cube", RandRot: true},
			RotationFull},
		{"fixed object stays upright",
			ObjectRef{Name: "switch", Fixed: true, RandRot: true},
			RotationYaw},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.ref.RotationDomain(); got != test.want {
				t.Errorf("RotationDomain() = %v, want %v", got, test.want)
			}
		})
	}
}
