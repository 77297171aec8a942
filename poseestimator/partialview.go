//go:build !no_partialview

package poseestimator

import (
	"math/rand"

	"github.com/golang/geo/r3"

	"go.viam.com/posematch/pointcloud"
	"go.viam.com/posematch/spatialmath"
	"go.viam.com/posematch/utils"
)

const partialViewAvailable = true

// partialView restricts the object to the points seen from a fixed scene viewpoint.
type partialView struct {
	object    *pointcloud.Model
	viewpoint r3.Vector
	tolerance float64
}

func newPartialView(object *pointcloud.Model, viewpoint r3.Vector, tolerance float64) (viewMode, error) {
	return &partialView{object: object, viewpoint: viewpoint, tolerance: tolerance}, nil
}

func (v *partialView) pointVisible(pose spatialmath.Pose, p r3.Vector) bool {
	return v.object.IsVisibleFrom(p, viewpointInFrame(pose, v.viewpoint), v.tolerance)
}

// evaluationSubset replaces the sample by the visible points, shuffled and capped at n.
func (v *partialView) evaluationSubset(rng *rand.Rand, pose spatialmath.Pose, _ []int, n int) []int {
	visible := v.scoredIndices(pose)
	rng.Shuffle(len(visible), func(i, j int) { visible[i], visible[j] = visible[j], visible[i] })
	if n > 0 {
		visible = visible[:utils.MinInt(n, len(visible))]
	}
	return visible
}

func (v *partialView) scoredIndices(pose spatialmath.Pose) []int {
	return v.object.PartialView(viewpointInFrame(pose, v.viewpoint), v.tolerance)
}

func (v *partialView) annotated(pose spatialmath.Pose) *pointcloud.Model {
	return v.object.PartialViewModel(viewpointInFrame(pose, v.viewpoint), v.tolerance, true)
}

func (*partialView) partial() bool { return true }
