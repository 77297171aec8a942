package poseestimator

import "go.viam.com/posematch/spatialmath"

// CustomIntegrandFactor constrains and weights candidate poses. Test rejects poses outright, Factor
// scales the evidence of the poses that pass. Implementations are shared by every chain and must be
// safe for concurrent use.
type CustomIntegrandFactor interface {
	Test(pose spatialmath.Pose) bool
	Factor(pose spatialmath.Pose) float64
}

type unitFactor struct{}

func (unitFactor) Test(spatialmath.Pose) bool      { return true }
func (unitFactor) Factor(spatialmath.Pose) float64 { return 1 }

// NewUnitFactor returns the factor accepting every pose with weight 1.
func NewUnitFactor() CustomIntegrandFactor {
	return unitFactor{}
}

// FactorFuncs adapts a pair of functions to a CustomIntegrandFactor. A nil function behaves like the
// unit factor.
type FactorFuncs struct {
	TestFunc   func(spatialmath.Pose) bool
	FactorFunc func(spatialmath.Pose) float64
}

// Test calls TestFunc.
func (f FactorFuncs) Test(pose spatialmath.Pose) bool {
	if f.TestFunc == nil {
		return true
	}
	return f.TestFunc(pose)
}

// Factor calls FactorFunc.
func (f FactorFuncs) Factor(pose spatialmath.Pose) float64 {
	if f.FactorFunc == nil {
		return 1
	}
	return f.FactorFunc(pose)
}
