package poseestimator

import (
	"math"

	"go.viam.com/posematch/pointcloud"
	"go.viam.com/posematch/spatialmath"
)

// FindMatchingScore returns the matching score of the object moved by the pose of h. The score is the
// mean scene density at the transformed object points, restricted to the visible points in partial
// view, times the integrand factor. It is not affected by the evidence floor used during the search.
func (pe *PoseEstimator) FindMatchingScore(h Hypothesis) (float64, error) {
	if !pe.loaded() {
		return 0, ErrNotLoaded
	}
	return pe.newSearch(0, nil).score(h.Pose, pe.cfg.Scoring), nil
}

func (s *search) score(pose spatialmath.Pose, scoring Scoring) float64 {
	if s.view.partial() {
		return s.partialScore(pose)
	}
	factor := s.factor.Factor(pose)
	forward := s.forwardSum(pose, s.view.scoredIndices(pose))
	if scoring != ScoreSymmetric {
		return forward / float64(s.object.Size()) * factor
	}

	moved := s.object.Transformed(pose)
	moved.ComputeStatistics()
	moved.BuildKDTree()
	var backward float64
	s.scene.Iterate(func(_ int, k pointcloud.Kernel) bool {
		backward += moved.Evaluate(k, s.strategy)
		return true
	})
	return math.Sqrt(forward/float64(s.object.Size())*backward/float64(s.scene.Size())) * factor
}

func (s *search) partialScore(pose spatialmath.Pose) float64 {
	if !s.factor.Test(pose) {
		return 0
	}
	visible := s.view.scoredIndices(pose)
	if len(visible) == 0 {
		return 0
	}
	return s.forwardSum(pose, visible) / float64(len(visible)) * s.factor.Factor(pose)
}

// forwardSum sums the scene density at the object kernels of indices moved by pose.
func (s *search) forwardSum(pose spatialmath.Pose, indices []int) float64 {
	var sum float64
	for _, i := range indices {
		sum += s.scene.Evaluate(s.object.At(i).Transformed(pose), s.strategy)
	}
	return sum
}
