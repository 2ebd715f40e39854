package manipulation

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is the position and orientation of a body in the workspace.
// Orientation is a unit quaternion; identity orientation is
// quat.Number{Real: 1}.
type Pose struct {
	Position r3.Vec
	Rotation quat.Number
}

// IdentityRotation returns the identity orientation
func IdentityRotation() quat.Number {
	return quat.Number{Real: 1}
}

// Euler returns the (roll, pitch, yaw) angles of the pose's
// orientation in radians
func (p Pose) Euler() (float64, float64, float64) {
	q := p.Rotation

	sinr := 2 * (q.Real*q.Imag + q.Jmag*q.Kmag)
	cosr := 1 - 2*(q.Imag*q.Imag+q.Jmag*q.Jmag)
	roll := math.Atan2(sinr, cosr)

	sinp := 2 * (q.Real*q.Jmag - q.Kmag*q.Imag)
	var pitch float64
	if math.Abs(sinp) >= 1 {
		pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		pitch = math.Asin(sinp)
	}

	siny := 2 * (q.Real*q.Kmag + q.Imag*q.Jmag)
	cosy := 1 - 2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag)
	yaw := math.Atan2(siny, cosy)

	return roll, pitch, yaw
}

// Flat6D returns the pose as a 6-element encoding: position followed
// by (roll, pitch, yaw)
func (p Pose) Flat6D() []float64 {
	roll, pitch, yaw := p.Euler()
	return []float64{p.Position.X, p.Position.Y, p.Position.Z,
		roll, pitch, yaw}
}

// FlatXYZ returns the pose's position as a 3-element encoding
func (p Pose) FlatXYZ() []float64 {
	return []float64{p.Position.X, p.Position.Y, p.Position.Z}
}
