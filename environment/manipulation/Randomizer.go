package manipulation

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"
)

// RandomizerKind enumerates the domain randomization families
type RandomizerKind string

const (
	TextureRandomizer RandomizerKind = "texture"
	LightRandomizer   RandomizerKind = "light"
	CameraRandomizer  RandomizerKind = "camera"
	ColorRandomizer   RandomizerKind = "color"
)

// Randomizer perturbs one non-task-relevant visual aspect of the
// scene. Randomizers are independent: applying any subset in any order
// yields the same end state, except that fixed color assignments
// always win over color randomization.
type Randomizer interface {
	Kind() RandomizerKind

	// Apply perturbs the scene once, at episode reset
	Apply(scene Scene, rng *rand.Rand)

	// PerFrame returns whether the randomizer should also be applied
	// on every step (camera and light jitter)
	PerFrame() bool
}

// Pipeline applies a set of independently enabled randomizers to the
// scene, once per reset and optionally per frame
type Pipeline struct {
	randomizers []Randomizer
	rng         *rand.Rand
}

// NewPipeline returns a Pipeline over the given randomizers, drawing
// randomness from the given seed
func NewPipeline(seed uint64, randomizers ...Randomizer) *Pipeline {
	return &Pipeline{
		randomizers: randomizers,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Apply runs every randomizer once. Called at episode reset.
func (p *Pipeline) Apply(scene Scene) {
	for _, r := range p.randomizers {
		r.Apply(scene, p.rng)
	}
}

// Jitter runs the per-frame randomizers. Called once per step.
func (p *Pipeline) Jitter(scene Scene) {
	for _, r := range p.randomizers {
		if r.PerFrame() {
			r.Apply(scene, p.rng)
		}
	}
}

// excluded reports whether a body is suppressed by an exclusion list
func excluded(exclude map[string]struct{}, body string) bool {
	_, ok := exclude[body]
	return ok
}

// exclusionSet builds the exclusion lookup from configured names
func exclusionSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Texture assigns every non-excluded body a texture drawn uniformly
// from a texture library of configured size
type Texture struct {
	exclude     map[string]struct{}
	numTextures int
}

// NewTexture returns a texture Randomizer drawing from numTextures
// library entries, leaving excluded bodies untouched
func NewTexture(numTextures int, exclude []string) *Texture {
	return &Texture{
		exclude:     exclusionSet(exclude),
		numTextures: numTextures,
	}
}

func (t *Texture) Kind() RandomizerKind { return TextureRandomizer }
func (t *Texture) PerFrame() bool       { return false }

func (t *Texture) Apply(scene Scene, rng *rand.Rand) {
	for _, body := range scene.BodyNames() {
		if excluded(t.exclude, body) {
			continue
		}
		scene.SetTexture(body, rng.Intn(t.numTextures))
	}
}

// Color assigns every non-excluded body a uniform random RGBA color.
// Bodies with a fixed color assignment always receive that color,
// regardless of whether color randomization is enabled.
type Color struct {
	exclude map[string]struct{}
	fixed   map[string][4]float64
}

// NewColor returns a color Randomizer. The fixed map carries explicit
// per-body color assignments which take precedence over randomization.
func NewColor(exclude []string, fixed map[string][4]float64) *Color {
	return &Color{
		exclude: exclusionSet(exclude),
		fixed:   fixed,
	}
}

func (c *Color) Kind() RandomizerKind { return ColorRandomizer }
func (c *Color) PerFrame() bool       { return false }

func (c *Color) Apply(scene Scene, rng *rand.Rand) {
	for _, body := range scene.BodyNames() {
		if rgba, ok := c.fixed[body]; ok {
			scene.SetColor(body, rgba)
			continue
		}
		if excluded(c.exclude, body) {
			continue
		}

		scene.SetColor(body, [4]float64{
			rng.Float64(), rng.Float64(), rng.Float64(), 1.0,
		})
	}
}

// Light perturbs the scene light direction and intensity
type Light struct {
	intensity r1.Interval
	perFrame  bool
}

// NewLight returns a light Randomizer drawing intensities from the
// given interval. When perFrame is set, the light also jitters on
// every step.
func NewLight(intensity r1.Interval, perFrame bool) *Light {
	return &Light{intensity: intensity, perFrame: perFrame}
}

func (l *Light) Kind() RandomizerKind { return LightRandomizer }
func (l *Light) PerFrame() bool       { return l.perFrame }

func (l *Light) Apply(scene Scene, rng *rand.Rand) {
	direction := r3.Unit(r3.Vec{
		X: rng.Float64()*2 - 1,
		Y: rng.Float64()*2 - 1,
		Z: -rng.Float64(), // light always comes from above
	})

	span := l.intensity.Max - l.intensity.Min
	scene.SetLight(direction, l.intensity.Min+rng.Float64()*span)
}

// Camera perturbs the camera yaw, pitch, and distance within
// configured bounds
type Camera struct {
	yaw, pitch, distance r1.Interval
	perFrame             bool
}

// NewCamera returns a camera Randomizer drawing poses from the given
// intervals. When perFrame is set, the camera also jitters on every
// step.
func NewCamera(yaw, pitch, distance r1.Interval, perFrame bool) *Camera {
	return &Camera{yaw: yaw, pitch: pitch, distance: distance,
		perFrame: perFrame}
}

func (c *Camera) Kind() RandomizerKind { return CameraRandomizer }
func (c *Camera) PerFrame() bool       { return c.perFrame }

func (c *Camera) Apply(scene Scene, rng *rand.Rand) {
	draw := func(i r1.Interval) float64 {
		return i.Min + rng.Float64()*(i.Max-i.Min)
	}
	scene.MoveCamera(draw(c.yaw), draw(c.pitch), draw(c.distance))
}
