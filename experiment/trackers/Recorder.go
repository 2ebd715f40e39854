package trackers

import (
	"encoding/gob"
	"log"
	"os"

	"github.com/samuelfneumann/gomanip/experiment/tracker"
	ts "github.com/samuelfneumann/gomanip/timestep"
)

// Record is one dataset row: the flattened observation and the reward
// seen on a single timestep, together with the episode it belongs to
// and how that episode ended (NotEnded for all but final steps).
type Record struct {
	Episode     int
	Step        int
	Observation []float64
	Reward      float64
	EndType     ts.EndType
}

// Recorder is a dataset sink: it converts every tracked timestep into
// a Record and appends batches of records to a gob file, flushing once
// every flushEvery episodes so that long data-generation runs do not
// accumulate the whole dataset in RAM.
type Recorder struct {
	filename   string
	flushEvery int

	episode int
	pending []Record

	file    *os.File
	encoder *gob.Encoder
}

// NewRecorder returns a Recorder writing to filename, flushing its
// cache every flushEvery finished episodes
func NewRecorder(filename string, flushEvery int) (*Recorder, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	if flushEvery < 1 {
		flushEvery = 1
	}

	return &Recorder{
		filename:   filename,
		flushEvery: flushEvery,
		file:       file,
		encoder:    gob.NewEncoder(file),
	}, nil
}

// Track converts a timestep into a Record. Finished episodes advance
// the episode counter and may trigger a flush.
func (r *Recorder) Track(step ts.TimeStep) {
	record := Record{
		Episode: r.episode,
		Step:    step.Number,
		Reward:  step.Reward,
		EndType: step.EndType,
	}
	if step.Observation != nil {
		record.Observation = make([]float64, step.Observation.Len())
		copy(record.Observation, step.Observation.RawVector().Data)
	}
	r.pending = append(r.pending, record)

	if step.Last() {
		r.episode++
		if r.episode%r.flushEvery == 0 {
			r.flush()
		}
	}
}

// flush appends the pending records to the dataset file
func (r *Recorder) flush() {
	if len(r.pending) == 0 {
		return
	}
	if err := r.encoder.Encode(r.pending); err != nil {
		log.Fatalf("could not encode dataset records: %v", err)
	}
	r.pending = r.pending[:0]
}

// Save flushes any pending records and closes the dataset file
func (r *Recorder) Save() {
	r.flush()
	if err := r.file.Close(); err != nil {
		log.Fatalf("could not close dataset file: %v", err)
	}
}

// LoadRecords loads every Record batch saved by a Recorder
func LoadRecords(filename string) []Record {
	file, err := os.Open(filename)
	if err != nil {
		log.Fatalf("could not open dataset file: %v", err)
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	var records []Record
	for {
		var batch []Record
		if err := dec.Decode(&batch); err != nil {
			break
		}
		records = append(records, batch...)
	}
	return records
}

var _ tracker.Tracker = (*Recorder)(nil)
