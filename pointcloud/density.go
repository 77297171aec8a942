package pointcloud

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/posematch/spatialmath"
)

// EvalStrategy selects how the contributions of the kernels of a model are combined into a density.
type EvalStrategy int

const (
	// MaxEval returns the largest single kernel contribution.
	MaxEval EvalStrategy = iota
	// WeightedSumEval returns the weight normalized sum of every kernel contribution.
	WeightedSumEval
)

// kernelCutoff is the support radius of a kernel in multiples of its location bandwidth.
const kernelCutoff = 3.

// ParseEvalStrategy maps a configuration name onto a strategy.
func ParseEvalStrategy(name string) (EvalStrategy, error) {
	switch name {
	case "", "max":
		return MaxEval, nil
	case "weighted_sum":
		return WeightedSumEval, nil
	default:
		return MaxEval, errors.Errorf("unknown evaluation strategy %q", name)
	}
}

func (s EvalStrategy) String() string {
	if s == WeightedSumEval {
		return "weighted_sum"
	}
	return "max"
}

// eval is the unnormalized value at q of the kernel k, at most 1.
func (k Kernel) eval(q Kernel, domain Domain) float64 {
	if k.LocH <= 0 {
		return 0
	}
	v := math.Exp(-k.Loc.Sub(q.Loc).Norm2() / (k.LocH * k.LocH))
	switch domain {
	case R3xS2:
		// normals are axial
		c := math.Min(1, math.Abs(k.Dir.Dot(q.Dir)))
		v *= orientationFactor(math.Acos(c), k.OriH)
	case SE3:
		v *= orientationFactor(spatialmath.QuatAngle(k.Ori, q.Ori), k.OriH)
	case R3:
	}
	return v
}

func orientationFactor(angle, oriH float64) float64 {
	if oriH <= 0 {
		if angle == 0 {
			return 1
		}
		return 0
	}
	return math.Exp(-angle * angle / (oriH * oriH))
}

// Evaluate returns the density of the model at the query kernel. Only the location of q is used for
// R3 models; its normal or orientation also contributes in the other domains.
func (m *Model) Evaluate(q Kernel, strategy EvalStrategy) float64 {
	var result float64
	radius := kernelCutoff * m.maxLocH
	m.Within(q.Loc, radius, func(i int) {
		k := m.kernels[i]
		v := k.eval(q, m.domain)
		switch strategy {
		case MaxEval:
			result = math.Max(result, v)
		case WeightedSumEval:
			result += k.Weight * v
		}
	})
	if strategy == WeightedSumEval {
		total := m.Statistics().TotalWeight
		if total <= 0 {
			return 0
		}
		result /= total
	}
	return result
}

