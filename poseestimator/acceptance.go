package poseestimator

import (
	"math"

	"go.viam.com/posematch/spatialmath"
)

// earlyAbortFactor scales the acceptance threshold below which evaluation stops early.
const earlyAbortFactor = 0.6

// evidence is the noisy, factored scene density at the object kernel i moved by pose.
func (s *search) evidence(i int, pose spatialmath.Pose, factor float64) float64 {
	q := s.object.At(i).Transformed(pose)
	return (s.scene.Evaluate(q, s.strategy) + s.noise) * factor
}

// step runs one Metropolis-Hastings iteration at the given temperature, moving h when the proposal is
// accepted. During burn-in the proposal is always independent and adopted once fully evaluated.
func (c *chain) step(h *Hypothesis, temperature float64, burnIn bool) (Outcome, error) {
	s := c.search
	sample := s.object.SampleIndices(c.rng, s.n)
	if len(sample) == 0 {
		return Rejected, nil
	}

	var (
		next        spatialmath.Pose
		ok          bool
		independent bool
	)
	if c.rng.Float64() < independentProposalProbability || burnIn {
		independent = true
		next, ok = c.independentProposal(sample[0])
	} else {
		var err error
		next, ok, err = c.localProposal(*h)
		if err != nil {
			return NoProposal, err
		}
	}
	if !ok {
		return NoProposal, nil
	}

	threshold := c.rng.Float64()
	indices := s.view.evaluationSubset(c.rng, next, sample, s.n)
	if len(indices) == 0 {
		return Rejected, nil
	}
	factor := s.factor.Factor(next)

	last := len(indices) - 1
	minEvaluated := math.Sqrt(float64(len(indices)))
	var sum float64
	for i, idx := range indices {
		sum += s.evidence(idx, next, factor)
		if float64(i) < minEvaluated && i != last {
			continue
		}
		nextWeight := sum / float64(i+1)

		if burnIn {
			if i != last {
				continue
			}
			h.Pose = next
			h.Weight = nextWeight
			return Adopted, nil
		}

		dec := acceptanceRatio(nextWeight, h.Weight, temperature, independent)
		o, decided := decide(dec, threshold, i == last)
		if !decided {
			continue
		}
		if o == Accepted {
			h.Pose = next
			h.Weight = nextWeight
		}
		return o, nil
	}
	return Rejected, ErrForbiddenState
}

// decide compares the acceptance ratio of a partly evaluated proposal with the threshold drawn for it.
// The proposal is dropped as soon as dec falls strictly below earlyAbortFactor*threshold and is only
// accepted once fully evaluated with dec strictly above threshold. The second result is false while more
// of the subset has to be evaluated.
func decide(dec, threshold float64, fullyEvaluated bool) (Outcome, bool) {
	if dec < earlyAbortFactor*threshold {
		return EarlyAborted, true
	}
	if !fullyEvaluated {
		return Rejected, false
	}
	if dec > threshold {
		return Accepted, true
	}
	return Rejected, true
}

// acceptanceRatio is (next/current)^(1/T), divided by next/current for independent proposals whose
// proposal density follows the target.
func acceptanceRatio(next, current, temperature float64, independent bool) float64 {
	exponent := 1 / temperature
	if independent {
		exponent--
	}
	return math.Pow(next/current, exponent)
}
