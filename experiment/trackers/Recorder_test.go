package trackers

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gomanip/experiment/tracker"
	"github.com/samuelfneumann/gomanip/timestep"
)

// episode feeds one complete episode of the given length to a tracker
func episode(t *testing.T, r tracker.Tracker, length int) {
	t.Helper()

	obs := mat.NewVecDense(3, []float64{1, 2, 3})
	r.Track(timestep.New(timestep.First, 0, 1, obs, 0))
	for i := 1; i <= length; i++ {
		step := timestep.New(timestep.Mid, 0.5, 1, obs, i)
		if i == length {
			step.StepType = timestep.Last
			step.SetEnd(timestep.TerminalStateReached)
		}
		r.Track(step)
	}
}

func TestRecorderRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "dataset.bin")

	recorder, err := NewRecorder(filename, 2)
	if err != nil {
		t.Fatalf("could not create recorder: %v", err)
	}

	episode(t, recorder, 3)
	episode(t, recorder, 2)
	episode(t, recorder, 4)
	recorder.Save()

	records := LoadRecords(filename)

	// 3 episodes with a first step each
	want := (3 + 1) + (2 + 1) + (4 + 1)
	if len(records) != want {
		t.Fatalf("loaded %v records, want %v", len(records), want)
	}

	if records[0].Episode != 0 || records[0].Step != 0 {
		t.Errorf("first record is episode %v step %v",
			records[0].Episode, records[0].Step)
	}
	last := records[len(records)-1]
	if last.Episode != 2 || last.EndType != timestep.TerminalStateReached {
		t.Errorf("last record is episode %v ending %v", last.Episode,
			last.EndType)
	}
	if len(last.Observation) != 3 {
		t.Errorf("observation has %v entries, want 3",
			len(last.Observation))
	}
}
