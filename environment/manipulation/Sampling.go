package manipulation

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distmv"
)

// RotationDomain determines the rotation domain an object's
// orientation is drawn from when its task entry sets rand_rot
type RotationDomain int

const (
	// RotationNone always yields the identity orientation
	RotationNone RotationDomain = iota

	// RotationYaw draws a uniform rotation about the vertical axis,
	// for objects that must stay upright
	RotationYaw

	// RotationFull draws a rotation uniformly over SO(3)
	RotationFull
)

// Region is an axis-aligned box in the workspace from which object
// positions are sampled
type Region struct {
	X, Y, Z r1.Interval
}

// NewRegion constructs a Region from the 6-scalar bounds
// [xmin, xmax, ymin, ymax, zmin, zmax]. NewRegion returns an error for
// which IsInvalidRegion reports true when min > max on any axis.
func NewRegion(bounds [6]float64) (Region, error) {
	region := Region{
		X: r1.Interval{Min: bounds[0], Max: bounds[1]},
		Y: r1.Interval{Min: bounds[2], Max: bounds[3]},
		Z: r1.Interval{Min: bounds[4], Max: bounds[5]},
	}

	axes := []string{"x", "y", "z"}
	for i, interval := range []r1.Interval{region.X, region.Y, region.Z} {
		if interval.Min > interval.Max {
			return Region{}, &Error{
				Op: "newRegion",
				Err: fmt.Errorf("%w: %v min %v > max %v",
					errInvalidRegion, axes[i], interval.Min, interval.Max),
			}
		}
	}
	return region, nil
}

// Contains returns whether a point lies within the region bounds
func (r Region) Contains(v r3.Vec) bool {
	return v.X >= r.X.Min && v.X <= r.X.Max &&
		v.Y >= r.Y.Min && v.Y <= r.Y.Max &&
		v.Z >= r.Z.Min && v.Z <= r.Z.Max
}

// Centre returns the centre point of the region
func (r Region) Centre() r3.Vec {
	return r3.Vec{
		X: (r.X.Min + r.X.Max) / 2,
		Y: (r.Y.Min + r.Y.Max) / 2,
		Z: (r.Z.Min + r.Z.Max) / 2,
	}
}

// Sampler draws object poses from sampling regions. A Sampler is
// deterministic: given the same seed and the same call sequence, it
// produces bit-identical poses. Parallel environment instances must
// each own a Sampler seeded with a per-instance offset.
type Sampler struct {
	seed   uint64
	source rand.Source
	rng    *rand.Rand
}

// NewSampler returns a new Sampler drawing from the given seed
func NewSampler(seed uint64) *Sampler {
	source := rand.NewSource(seed)
	return &Sampler{
		seed:   seed,
		source: source,
		rng:    rand.New(source),
	}
}

// Sample draws a pose with position uniform over the region and
// orientation drawn from the rotation domain
func (s *Sampler) Sample(region Region, rot RotationDomain) Pose {
	uniform := distmv.NewUniform([]r1.Interval{
		region.X, region.Y, region.Z,
	}, s.source)

	position := uniform.Rand(nil)

	return Pose{
		Position: r3.Vec{X: position[0], Y: position[1], Z: position[2]},
		Rotation: s.sampleRotation(rot),
	}
}

func (s *Sampler) sampleRotation(rot RotationDomain) quat.Number {
	switch rot {
	case RotationYaw:
		theta := s.rng.Float64() * 2 * math.Pi
		return quat.Number{
			Real: math.Cos(theta / 2),
			Kmag: math.Sin(theta / 2),
		}

	case RotationFull:
		// Shoemake's method for uniform random rotations
		u1 := s.rng.Float64()
		u2 := s.rng.Float64() * 2 * math.Pi
		u3 := s.rng.Float64() * 2 * math.Pi

		return quat.Number{
			Real: math.Sqrt(u1) * math.Cos(u3),
			Imag: math.Sqrt(1-u1) * math.Sin(u2),
			Jmag: math.Sqrt(1-u1) * math.Cos(u2),
			Kmag: math.Sqrt(u1) * math.Sin(u3),
		}
	}

	return IdentityRotation()
}
