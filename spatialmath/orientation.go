// Package spatialmath defines the rigid transforms, orientations and triangle geometry
// used to align point models.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Orientation is an interface used to express the different parameterizations of the orientation
// of a rigid object or a frame of reference in 3D Euclidean space.
type Orientation interface {
	AxisAngles() *R4AA
	Quaternion() quat.Number
}

// quaternion is a unit quaternion satisfying Orientation.
type quaternion quat.Number

// NewZeroOrientation returns an orientatation which signifies no rotation.
func NewZeroOrientation() Orientation {
	return &quaternion{1, 0, 0, 0}
}

// NewQuaternion returns the Orientation described by the given quaternion after normalizing it.
func NewQuaternion(q quat.Number) Orientation {
	n := quaternion(Normalize(q))
	return &n
}

// Quaternion returns orientation in quaternion representation.
func (q *quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

// AxisAngles returns the orientation in axis angle representation.
func (q *quaternion) AxisAngles() *R4AA {
	aa := QuatToR4AA(q.Quaternion())
	return &aa
}

// OrientationAlmostEqual will return a bool describing whether 2 poses have approximately the same orientation.
func OrientationAlmostEqual(o1, o2 Orientation) bool {
	return QuaternionAlmostEqual(o1.Quaternion(), o2.Quaternion(), 1e-5)
}

// OrientationAlmostEqualEps is OrientationAlmostEqual with a caller supplied tolerance.
func OrientationAlmostEqualEps(o1, o2 Orientation, epsilon float64) bool {
	return QuaternionAlmostEqual(o1.Quaternion(), o2.Quaternion(), epsilon)
}

// OrientationBetween returns the orientation representing the difference between the two given Orientations.
func OrientationBetween(o1, o2 Orientation) Orientation {
	q := quaternion(quat.Mul(o2.Quaternion(), quat.Conj(o1.Quaternion())))
	return &q
}

// QuaternionAlmostEqual is an equality test for two quaternions. q and -q describe the same rotation.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	return quatComponentsClose(a, b, tol) || quatComponentsClose(a, Flip(b), tol)
}

func quatComponentsClose(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol
}

// QuatDot is the four dimensional inner product of two quaternions.
func QuatDot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// QuatAngle returns the rotation angle in [0, pi] separating two unit quaternions.
func QuatAngle(a, b quat.Number) float64 {
	d := math.Abs(QuatDot(a, b))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

// Normalize scales a quaternion to unit length. The zero quaternion becomes the identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// Norm returns the norm of the quaternion, i.e. the sqrt of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// RotateVector rotates v by the unit quaternion q.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	// v' = v + 2w(u x v) + 2u x (u x v), u being the imaginary part of q.
	u := r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	t := u.Cross(v).Mul(2)
	return v.Add(t.Mul(q.Real)).Add(u.Cross(t))
}

// QuatToR4AA converts a quat to an R4 axis angle in the same way the C++ Eigen library does.
// https://eigen.tuxfamily.org/dox/AngleAxis_8h_source.html
func QuatToR4AA(q quat.Number) R4AA {
	denom := Norm(q)

	angle := 2 * math.Atan2(denom, math.Abs(q.Real))
	if q.Real < 0 {
		angle *= -1
	}

	if denom < 1e-6 {
		return R4AA{Theta: angle, RX: 0, RY: 0, RZ: 1}
	}
	return R4AA{Theta: angle, RX: q.Imag / denom, RY: q.Jmag / denom, RZ: q.Kmag / denom}
}

// OrientationFromDirection returns a rotation taking +Z onto dir, followed by a rotation of roll
// radians about dir. dir need not be normalized but must be non-zero.
func OrientationFromDirection(dir r3.Vector, roll float64) Orientation {
	dir = dir.Normalize()
	z := r3.Vector{Z: 1}
	var align quat.Number
	switch c := z.Dot(dir); {
	case c > 1-floatEpsilon:
		align = quat.Number{Real: 1}
	case c < -1+floatEpsilon:
		align = quat.Number{Imag: 1}
	default:
		axis := z.Cross(dir)
		align = (&R4AA{Theta: math.Acos(c), RX: axis.X, RY: axis.Y, RZ: axis.Z}).ToQuat()
	}
	spin := (&R4AA{Theta: roll, RX: dir.X, RY: dir.Y, RZ: dir.Z}).ToQuat()
	return NewQuaternion(quat.Mul(spin, align))
}
