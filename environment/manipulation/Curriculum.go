package manipulation

import "fmt"

// Router selects which of several trained policies governs the robot
// based on the active subtask. The mapping from subtask index to
// network id is fixed 1:1 in declaration order unless a custom mapping
// is configured. Switches are atomic at episode-step boundaries: a
// completed subtask is recorded during the step, but the active
// network only changes when Commit is called between steps, so two
// networks never act within the same step.
type Router struct {
	numNetworks int
	mapping     []int

	active int
	next   int
}

// NewRouter returns a Router over numNetworks policies and
// numSubtasks subtasks. A nil mapping yields the identity mapping
// (subtask i drives network i, clamped to the last network when there
// are more subtasks than networks). NewRouter returns an error for
// which IsInvalidConfig reports true when a custom mapping is
// malformed.
func NewRouter(numNetworks, numSubtasks int, mapping []int) (*Router, error) {
	if numNetworks < 1 {
		return nil, &Error{
			Op: "newRouter",
			Err: fmt.Errorf("%w: num_networks %v < 1", errInvalidConfig,
				numNetworks),
		}
	}

	if mapping == nil {
		mapping = make([]int, numSubtasks)
		for i := range mapping {
			if i < numNetworks {
				mapping[i] = i
			} else {
				mapping[i] = numNetworks - 1
			}
		}
	}

	if len(mapping) != numSubtasks {
		return nil, &Error{
			Op: "newRouter",
			Err: fmt.Errorf("%w: network_mapping has %v entries for %v "+
				"subtasks", errInvalidConfig, len(mapping), numSubtasks),
		}
	}
	for i, network := range mapping {
		if network < 0 || network >= numNetworks {
			return nil, &Error{
				Op: "newRouter",
				Err: fmt.Errorf("%w: network_mapping[%v] = %v outside "+
					"[0, %v)", errInvalidConfig, i, network, numNetworks),
			}
		}
	}

	router := &Router{numNetworks: numNetworks, mapping: mapping}
	router.Reset()
	return router, nil
}

// Reset returns the router to the first subtask's network. Call
// between episodes.
func (r *Router) Reset() {
	r.active = r.mapping[0]
	r.next = r.active
}

// NumNetworks returns the number of configured policies
func (r *Router) NumNetworks() int {
	return r.numNetworks
}

// ActiveNetwork returns the id of the policy governing the current
// step. The returned id is stable for the whole step.
func (r *Router) ActiveNetwork() int {
	return r.active
}

// OnSubtaskDone records that a subtask completed and that the network
// of the now-active subtask should take over. The switch takes effect
// at the next Commit.
func (r *Router) OnSubtaskDone(activeSubtask int) {
	if activeSubtask < 0 || activeSubtask >= len(r.mapping) {
		return
	}
	r.next = r.mapping[activeSubtask]
}

// Commit applies any recorded network switch. The episode controller
// calls Commit exactly once per step, after the reward and task graph
// have been updated, so switches happen only at step boundaries.
func (r *Router) Commit() {
	r.active = r.next
}
