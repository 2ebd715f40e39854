// Package envconfig provides the declarative configuration schema for
// manipulation environments. Configurations in this package are JSON
// serializable: a task description (objects and sampling areas,
// observation and reward selectors, randomization toggles, curriculum
// settings) is unmarshalled into a Config, validated fail-fast, and
// assembled into a live environment by Create.
package envconfig

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/gomanip/environment"
	"github.com/samuelfneumann/gomanip/environment/manipulation"
	ts "github.com/samuelfneumann/gomanip/timestep"
)

// PlacementConfig describes one side of a task entry: a named object
// (or "null" for no physical object), its 6-scalar sampling area
// [xmin, xmax, ymin, ymax, zmin, zmax], and its placement flags.
type PlacementConfig struct {
	ObjName      string     `json:"obj_name"`
	Class        int        `json:"class"`
	Fixed        bool       `json:"fixed"`
	RandRot      bool       `json:"rand_rot"`
	SamplingArea [6]float64 `json:"sampling_area"`
}

// TaskObjectConfig is one subtask: an (init, goal) object pair
type TaskObjectConfig struct {
	Init PlacementConfig `json:"init"`
	Goal PlacementConfig `json:"goal"`
}

// ObservationConfig selects the observation encodings
type ObservationConfig struct {
	ActualState   string   `json:"actual_state"`
	GoalState     string   `json:"goal_state"`
	AdditionalObs []string `json:"additional_obs"`
}

// RobotConfig describes the robot collaborator's dimensions
type RobotConfig struct {
	ActionDims      int `json:"action_dims"`
	NumJoints       int `json:"num_joints"`
	NumTouchSensors int `json:"num_touch_sensors"`
}

// DistractorConfig describes one task-irrelevant object
type DistractorConfig struct {
	Name              string     `json:"name"`
	Moveable          bool       `json:"moveable"`
	ConstantSpeed     bool       `json:"constant_speed"`
	Position          [3]float64 `json:"position"`
	MovementDims      int        `json:"movement_dims"`
	MovementEndpoints []float64  `json:"movement_endpoints"`
	Speed             float64    `json:"speed"`
}

// TextureConfig toggles texture randomization
type TextureConfig struct {
	Enabled     bool     `json:"enabled"`
	Exclude     []string `json:"exclude"`
	NumTextures int      `json:"num_textures"`
}

// ColorConfig toggles color randomization. ColorDict carries fixed
// per-body RGBA assignments which always win over randomization.
type ColorConfig struct {
	Enabled   bool                  `json:"enabled"`
	Exclude   []string              `json:"exclude"`
	ColorDict map[string][4]float64 `json:"color_dict"`
}

// LightConfig toggles light randomization
type LightConfig struct {
	Enabled   bool       `json:"enabled"`
	Intensity [2]float64 `json:"intensity"`
	PerFrame  bool       `json:"per_frame"`
}

// CameraConfig toggles camera randomization
type CameraConfig struct {
	Enabled  bool       `json:"enabled"`
	Yaw      [2]float64 `json:"yaw"`
	Pitch    [2]float64 `json:"pitch"`
	Distance [2]float64 `json:"distance"`
	PerFrame bool       `json:"per_frame"`
}

// RandomizationConfig groups the independently toggled randomizers
type RandomizationConfig struct {
	Texture TextureConfig `json:"texture"`
	Color   ColorConfig   `json:"color"`
	Light   LightConfig   `json:"light"`
	Camera  CameraConfig  `json:"camera"`
}

// Config is the full declarative description of a manipulation
// environment. Zero values of optional fields take documented
// defaults; required fields fail validation when absent.
type Config struct {
	TaskType    string             `json:"task_type"`
	TaskObjects []TaskObjectConfig `json:"task_objects"`

	Observation ObservationConfig `json:"observation"`
	Robot       RobotConfig       `json:"robot"`

	// DistanceType defaults to "euclidean"
	DistanceType string `json:"distance_type"`
	SparseReward bool   `json:"sparse_reward"`

	// NumNetworks defaults to 1 (single-policy training). The
	// curriculum router switches between networks on subtask
	// completion when NumNetworks > 1.
	NumNetworks int `json:"num_networks"`

	// NetworkMapping optionally overrides the 1:1 subtask-to-network
	// mapping. Must have one entry per subtask when present.
	NetworkMapping []int `json:"network_mapping,omitempty"`

	MaxEpisodeSteps int     `json:"max_episode_steps"`
	ActionRepeat    int     `json:"action_repeat"`
	Discount        float64 `json:"discount"`

	Distractors []DistractorConfig `json:"distractors,omitempty"`

	Randomization RandomizationConfig `json:"randomization"`
}

// FromJSON unmarshals and validates a Config
func FromJSON(data []byte) (Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("fromJSON: %v", err)
	}

	c = c.withDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// withDefaults fills the documented defaults of optional fields
func (c Config) withDefaults() Config {
	if c.DistanceType == "" {
		c.DistanceType = string(manipulation.Euclidean)
	}
	if c.NumNetworks == 0 {
		c.NumNetworks = 1
	}
	if c.ActionRepeat == 0 {
		c.ActionRepeat = 1
	}
	if c.Discount == 0 {
		c.Discount = 1.0
	}
	return c
}

// invalidConfig builds a construction-time configuration error naming
// the offending key
func invalidConfig(key string, format string, args ...interface{}) error {
	detail := fmt.Sprintf(format, args...)
	return manipulation.InvalidConfig("config",
		fmt.Sprintf("%v: %v", key, detail))
}

// Validate fails fast on a malformed configuration, returning an error
// for which manipulation.IsInvalidConfig reports true and which names
// the offending key. Validate checks the schema only; cross-component
// consistency (e.g. perception collaborators for perception
// observation kinds) is checked by Create.
func (c Config) Validate() error {
	switch manipulation.TaskType(c.TaskType) {
	case manipulation.ReachTask, manipulation.SwitchTask,
		manipulation.PressTask, manipulation.PokeTask, manipulation.PnPTask:
	default:
		return invalidConfig("task_type", "unknown value %q", c.TaskType)
	}

	if len(c.TaskObjects) == 0 {
		return invalidConfig("task_objects", "no subtasks declared")
	}
	for i, entry := range c.TaskObjects {
		if entry.Init.ObjName == "" {
			return invalidConfig(
				fmt.Sprintf("task_objects[%v].init.obj_name", i),
				"missing")
		}
		if entry.Goal.ObjName == "" {
			return invalidConfig(
				fmt.Sprintf("task_objects[%v].goal.obj_name", i),
				"missing")
		}
	}

	if c.Observation.ActualState == "" {
		return invalidConfig("observation.actual_state", "missing")
	}
	if c.Observation.GoalState == "" {
		return invalidConfig("observation.goal_state", "missing")
	}

	metric := manipulation.Distance(c.DistanceType)
	if metric != manipulation.Euclidean && metric != manipulation.Manhattan {
		return invalidConfig("distance_type", "unknown value %q",
			c.DistanceType)
	}

	if c.NumNetworks < 1 {
		return invalidConfig("num_networks", "%v < 1", c.NumNetworks)
	}
	if c.NetworkMapping != nil &&
		len(c.NetworkMapping) != len(c.TaskObjects) {
		return invalidConfig("network_mapping",
			"%v entries for %v subtasks", len(c.NetworkMapping),
			len(c.TaskObjects))
	}

	if c.MaxEpisodeSteps < 1 {
		return invalidConfig("max_episode_steps", "%v < 1",
			c.MaxEpisodeSteps)
	}
	if c.ActionRepeat < 1 {
		return invalidConfig("action_repeat", "%v < 1", c.ActionRepeat)
	}
	if c.Robot.ActionDims < 1 {
		return invalidConfig("robot.action_dims", "%v < 1",
			c.Robot.ActionDims)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return invalidConfig("discount", "%v outside [0, 1]", c.Discount)
	}

	if c.Randomization.Texture.Enabled &&
		c.Randomization.Texture.NumTextures < 1 {
		return invalidConfig("randomization.texture.num_textures",
			"%v < 1", c.Randomization.Texture.NumTextures)
	}

	return nil
}

// Collaborators are the boundary dependencies of an environment: the
// physics engine, the renderable scene, and optional perception
// encoders keyed by observation kind. Scene may be nil when no
// randomizer is enabled; Perception entries are required only for
// configured perception observation kinds.
type Collaborators struct {
	Physics    manipulation.Physics
	Scene      manipulation.Scene
	Perception map[manipulation.StateKind]manipulation.Perception
}

// Create assembles the environment described by the Config and resets
// it, returning the environment together with the first timestep of
// its first episode. The seed drives all sampling and randomization;
// parallel instances must use distinct seeds (base seed plus instance
// offset).
func (c Config) Create(collab Collaborators,
	seed uint64) (*manipulation.Manipulation, ts.TimeStep, error) {
	c = c.withDefaults()
	if err := c.Validate(); err != nil {
		return nil, ts.TimeStep{}, err
	}

	taskType := manipulation.TaskType(c.TaskType)
	metric := manipulation.Distance(c.DistanceType)

	subtasks := make([]manipulation.Subtask, len(c.TaskObjects))
	for i, entry := range c.TaskObjects {
		init, err := entry.Init.ref()
		if err != nil {
			return nil, ts.TimeStep{}, err
		}
		goal, err := entry.Goal.ref()
		if err != nil {
			return nil, ts.TimeStep{}, err
		}
		subtasks[i] = manipulation.Subtask{Init: init, Goal: goal}
	}

	graph, err := manipulation.NewTaskGraph(subtasks, taskType.Sequential())
	if err != nil {
		return nil, ts.TimeStep{}, err
	}

	reward, err := manipulation.NewReward(taskType, metric, c.SparseReward)
	if err != nil {
		return nil, ts.TimeStep{}, err
	}

	composer, err := manipulation.NewComposer(
		manipulation.StateKind(c.Observation.ActualState),
		manipulation.StateKind(c.Observation.GoalState),
		additionalKinds(c.Observation.AdditionalObs),
		collab.Perception,
		c.Robot.NumJoints,
		c.Robot.NumTouchSensors,
		len(c.Distractors),
	)
	if err != nil {
		return nil, ts.TimeStep{}, err
	}

	router, err := manipulation.NewRouter(c.NumNetworks,
		len(c.TaskObjects), c.NetworkMapping)
	if err != nil {
		return nil, ts.TimeStep{}, err
	}

	distractors := make([]manipulation.DistractorSpec, len(c.Distractors))
	for i, d := range c.Distractors {
		distractors[i] = manipulation.DistractorSpec{
			Name:              d.Name,
			Moveable:          d.Moveable,
			ConstantSpeed:     d.ConstantSpeed,
			Position:          d.Position,
			MovementDims:      d.MovementDims,
			MovementEndpoints: d.MovementEndpoints,
			Speed:             d.Speed,
		}
	}

	environment, err := manipulation.New(
		graph,
		reward,
		composer,
		router,
		c.Randomization.pipeline(seed+1),
		manipulation.NewSampler(seed),
		collab.Physics,
		collab.Scene,
		manipulation.Options{
			ActionRepeat:    c.ActionRepeat,
			MaxEpisodeSteps: c.MaxEpisodeSteps,
			ActionDims:      c.Robot.ActionDims,
			Discount:        c.Discount,
			Distractors:     distractors,
		},
	)
	if err != nil {
		return nil, ts.TimeStep{}, err
	}

	first, err := environment.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, err
	}
	return environment, first, nil
}

// ref converts a placement to an object reference, validating its
// sampling area
func (p PlacementConfig) ref() (manipulation.ObjectRef, error) {
	region, err := manipulation.NewRegion(p.SamplingArea)
	if err != nil {
		return manipulation.ObjectRef{}, err
	}

	return manipulation.ObjectRef{
		Name:    p.ObjName,
		Class:   p.Class,
		Fixed:   p.Fixed,
		RandRot: p.RandRot,
		Region:  region,
	}, nil
}

// pipeline builds the randomizer pipeline from the enabled toggles
func (r RandomizationConfig) pipeline(seed uint64) *manipulation.Pipeline {
	var randomizers []manipulation.Randomizer

	if r.Texture.Enabled {
		randomizers = append(randomizers, manipulation.NewTexture(
			r.Texture.NumTextures, r.Texture.Exclude))
	}
	if r.Color.Enabled || len(r.Color.ColorDict) > 0 {
		randomizers = append(randomizers, manipulation.NewColor(
			r.Color.Exclude, r.Color.ColorDict))
	}
	if r.Light.Enabled {
		randomizers = append(randomizers, manipulation.NewLight(
			r1.Interval{Min: r.Light.Intensity[0], Max: r.Light.Intensity[1]},
			r.Light.PerFrame))
	}
	if r.Camera.Enabled {
		randomizers = append(randomizers, manipulation.NewCamera(
			interval(r.Camera.Yaw),
			interval(r.Camera.Pitch),
			interval(r.Camera.Distance),
			r.Camera.PerFrame))
	}

	return manipulation.NewPipeline(seed, randomizers...)
}

func interval(bounds [2]float64) r1.Interval {
	return r1.Interval{Min: bounds[0], Max: bounds[1]}
}

func additionalKinds(names []string) []manipulation.StateKind {
	kinds := make([]manipulation.StateKind, len(names))
	for i, name := range names {
		kinds[i] = manipulation.StateKind(name)
	}
	return kinds
}

var _ env.Environment = (*manipulation.Manipulation)(nil)
