package manipulation

import (
	"fmt"

	"github.com/google/uuid"
)

// ObjectKind distinguishes the roles task-relevant entities play in an
// episode
type ObjectKind int

const (
	InitObject ObjectKind = iota
	GoalObject
	DistractorObject
)

func (k ObjectKind) String() string {
	switch k {
	case InitObject:
		return "init"
	case GoalObject:
		return "goal"
	default:
		return "distractor"
	}
}

// Object is a live task-relevant entity: an init object, a goal
// object, or a distractor. Objects are created at episode reset from
// the task specification and respawned at the next reset.
type Object struct {
	ID      uuid.UUID
	Name    string
	Class   int
	Kind    ObjectKind
	Subtask int
	Fixed   bool
	Pose    Pose
}

// Registry tracks the live objects of the current episode. A Registry
// is episode-local: Reset drops every object, and the episode
// controller repopulates it from freshly sampled poses.
type Registry struct {
	objects []*Object
	byID    map[uuid.UUID]*Object
}

// NewRegistry returns a new, empty Registry
func NewRegistry() *Registry {
	return &Registry{byID: make(map[uuid.UUID]*Object)}
}

// Reset removes every tracked object
func (r *Registry) Reset() {
	r.objects = r.objects[:0]
	r.byID = make(map[uuid.UUID]*Object)
}

// Add registers a new object, assigning it a fresh identity, and
// returns it
func (r *Registry) Add(name string, class int, kind ObjectKind,
	subtask int, fixed bool, pose Pose) *Object {
	obj := &Object{
		ID:      uuid.New(),
		Name:    name,
		Class:   class,
		Kind:    kind,
		Subtask: subtask,
		Fixed:   fixed,
		Pose:    pose,
	}

	r.objects = append(r.objects, obj)
	r.byID[obj.ID] = obj
	return obj
}

// Objects returns all tracked objects in registration order
func (r *Registry) Objects() []*Object {
	return r.objects
}

// ByID returns the object with the given identity
func (r *Registry) ByID(id uuid.UUID) (*Object, bool) {
	obj, ok := r.byID[id]
	return obj, ok
}

// InitObject returns the init object of a subtask, or nil when the
// subtask declared no physical init object
func (r *Registry) InitObject(subtask int) *Object {
	return r.find(InitObject, subtask)
}

// GoalObject returns the goal object of a subtask, or nil when the
// subtask's goal is a bare region
func (r *Registry) GoalObject(subtask int) *Object {
	return r.find(GoalObject, subtask)
}

// Distractors returns all tracked distractors in registration order
func (r *Registry) Distractors() []*Object {
	var distractors []*Object
	for _, obj := range r.objects {
		if obj.Kind == DistractorObject {
			distractors = append(distractors, obj)
		}
	}
	return distractors
}

func (r *Registry) find(kind ObjectKind, subtask int) *Object {
	for _, obj := range r.objects {
		if obj.Kind == kind && obj.Subtask == subtask {
			return obj
		}
	}
	return nil
}

// Refresh re-reads the pose of every moveable object from the physics
// collaborator. Fixed objects and distractors keep their scripted
// poses. Refresh returns an error for which IsPhysicsDesync reports
// true when a pose is unavailable; the episode must then be aborted
// and reported as failed.
func (r *Registry) Refresh(physics Physics) error {
	for _, obj := range r.objects {
		if obj.Fixed || obj.Kind == DistractorObject {
			continue
		}

		pose, ok := physics.Pose(obj.ID)
		if !ok {
			return &Error{
				Op: "refresh",
				Err: fmt.Errorf("%w: %v object %v (%v)",
					errPhysicsDesync, obj.Kind, obj.Name, obj.ID),
			}
		}
		obj.Pose = pose
	}
	return nil
}
