package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/posematch/utils"
)

// Pose represents a rigid transform in 3D space: a translation and an orientation.
// Applying a pose to a point rotates it first, then translates it.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

// NewZeroPose returns a pose at (0,0,0) with the same orientation as the frame of reference.
func NewZeroPose() Pose {
	return newDualQuaternion()
}

// NewPose takes in a translation and an orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	q := newDualQuaternion()
	q.Real = Normalize(o.Quaternion())
	q.SetTranslation(p)
	return q
}

// NewPoseFromPoint makes a pure translation.
func NewPoseFromPoint(p r3.Vector) Pose {
	q := newDualQuaternion()
	q.SetTranslation(p)
	return q
}

// NewPoseFromOrientation makes a pure rotation.
func NewPoseFromOrientation(o Orientation) Pose {
	return NewPose(r3.Vector{}, o)
}

// Compose returns the pose that applies b and then a, i.e. the transform a*b.
func Compose(a, b Pose) Pose {
	result := &dualQuaternion{newDualQuaternionFromPose(a).Transformation(newDualQuaternionFromPose(b).Number)}
	result.Real = Normalize(result.Real)
	return result
}

// PoseInverse returns the pose undoing p.
func PoseInverse(p Pose) Pose {
	return newDualQuaternionFromPose(p).Invert()
}

// PoseBetween returns the transform that maps a onto b: Compose(a, PoseBetween(a, b)) == b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// TransformPoint applies the pose to a location.
func TransformPoint(p Pose, v r3.Vector) r3.Vector {
	return RotateVector(p.Orientation().Quaternion(), v).Add(p.Point())
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-8)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same,
// using epsilon both as a distance and an orientation component tolerance.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return PoseAlmostCoincidentEps(a, b, epsilon) && OrientationAlmostEqualEps(a.Orientation(), b.Orientation(), epsilon)
}

// PoseAlmostCoincidentEps will return a bool describing whether 2 poses have approximately the same position.
func PoseAlmostCoincidentEps(a, b Pose, epsilon float64) bool {
	return a.Point().Sub(b.Point()).Norm() <= epsilon
}

// PoseDelta returns the translation distance and rotation angle (radians) separating two poses.
func PoseDelta(a, b Pose) (float64, float64) {
	return a.Point().Sub(b.Point()).Norm(), QuatAngle(a.Orientation().Quaternion(), b.Orientation().Quaternion())
}

// PrettyPrint prints a pose as its translation and axis angle.
func PrettyPrint(p Pose) string {
	aa := p.Orientation().AxisAngles()
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f Theta:%.4fdeg Axis:(%.4f %.4f %.4f)}",
		p.Point().X, p.Point().Y, p.Point().Z, utils.RadToDeg(aa.Theta), aa.RX, aa.RY, aa.RZ)
}
