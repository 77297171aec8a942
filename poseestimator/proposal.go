package poseestimator

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/posematch/pointcloud"
	"go.viam.com/posematch/spatialmath"
)

const (
	// Probability of drawing an independent proposal outside of burn-in.
	independentProposalProbability = 0.75
	// Attempts at drawing a proposal that satisfies the constraints.
	maxProposalAttempts = 100
)

// kernelFrame projects a kernel onto an SE(3) frame. Rotations a kernel does not fix are drawn at random.
func (c *chain) kernelFrame(k pointcloud.Kernel, domain pointcloud.Domain) spatialmath.Pose {
	switch domain {
	case pointcloud.SE3:
		return spatialmath.NewPose(k.Loc, spatialmath.NewQuaternion(k.Ori))
	case pointcloud.R3xS2:
		roll := c.rng.Float64() * 2 * math.Pi
		return spatialmath.NewPose(k.Loc, spatialmath.OrientationFromDirection(k.Dir, roll))
	case pointcloud.R3:
	}
	return spatialmath.NewPose(k.Loc, spatialmath.UniformOrientation(c.rng))
}

// independentProposal draws a pose mapping the object kernel at objectIndex onto a random scene kernel.
func (c *chain) independentProposal(objectIndex int) (spatialmath.Pose, bool) {
	s := c.search
	objectKernel := s.object.At(objectIndex)
	for attempt := 0; attempt < maxProposalAttempts; attempt++ {
		sceneKernel := s.scene.At(c.rng.Intn(s.scene.Size()))
		objectFrame := c.kernelFrame(objectKernel, s.object.Domain())
		sceneFrame := c.kernelFrame(sceneKernel, s.scene.Domain())
		pose := spatialmath.Compose(sceneFrame, spatialmath.PoseInverse(objectFrame))
		if !s.factor.Test(pose) {
			continue
		}
		if !s.view.pointVisible(pose, objectKernel.Loc) {
			continue
		}
		return pose, true
	}
	return nil, false
}

// localProposal draws a pose in the neighborhood of h.
func (c *chain) localProposal(h Hypothesis) (spatialmath.Pose, bool, error) {
	if h.LocH <= 0 || h.OriH <= 0 {
		return nil, false, errors.Wrapf(ErrDegenerateBandwidth, "local proposal with loc_h %v ori_h %v", h.LocH, h.OriH)
	}
	for attempt := 0; attempt < maxProposalAttempts; attempt++ {
		pose := spatialmath.PerturbPose(c.rng, h.Pose, h.LocH, h.OriH)
		if !c.search.factor.Test(pose) {
			continue
		}
		return pose, true, nil
	}
	return nil, false, nil
}
