package poseestimator

import (
	"math/rand"

	"github.com/golang/geo/r3"

	"go.viam.com/posematch/pointcloud"
	"go.viam.com/posematch/spatialmath"
)

// viewMode decides which object points take part in the evaluation of a pose.
type viewMode interface {
	// pointVisible reports whether the object point p, in object coordinates, can be seen once the
	// object is moved by pose.
	pointVisible(pose spatialmath.Pose, p r3.Vector) bool
	// evaluationSubset returns the object indices evaluated for pose, given a random sample of at most
	// n indices.
	evaluationSubset(rng *rand.Rand, pose spatialmath.Pose, sample []int, n int) []int
	// scoredIndices returns the object indices that contribute to the score of pose.
	scoredIndices(pose spatialmath.Pose) []int
	// annotated returns the object as seen under pose, ready to be written out.
	annotated(pose spatialmath.Pose) *pointcloud.Model
	partial() bool
}

// fullView assumes the whole object is observed.
type fullView struct {
	object *pointcloud.Model
}

func (fullView) pointVisible(spatialmath.Pose, r3.Vector) bool { return true }

func (fullView) evaluationSubset(_ *rand.Rand, _ spatialmath.Pose, sample []int, _ int) []int {
	return sample
}

func (v fullView) scoredIndices(spatialmath.Pose) []int {
	all := make([]int, v.object.Size())
	for i := range all {
		all[i] = i
	}
	return all
}

func (v fullView) annotated(spatialmath.Pose) *pointcloud.Model { return v.object }

func (fullView) partial() bool { return false }

// viewpointInFrame expresses a scene viewpoint in the frame of an object moved by pose.
func viewpointInFrame(pose spatialmath.Pose, viewpoint r3.Vector) r3.Vector {
	return spatialmath.TransformPoint(spatialmath.PoseInverse(pose), viewpoint)
}
