package poseestimator

import (
	"fmt"

	"go.viam.com/posematch/spatialmath"
)

// Hypothesis is a candidate alignment of the object onto the scene. LocH and OriH are the bandwidths
// of local proposals drawn around it.
type Hypothesis struct {
	Pose   spatialmath.Pose
	LocH   float64
	OriH   float64
	Weight float64
}

func newHypothesis() Hypothesis {
	return Hypothesis{Pose: spatialmath.NewZeroPose()}
}

func (h Hypothesis) String() string {
	return fmt.Sprintf("%s weight: %.6g", spatialmath.PrettyPrint(h.Pose), h.Weight)
}

// Outcome is what a single Metropolis-Hastings iteration did to the chain.
type Outcome int

const (
	// Rejected leaves the chain where it was after evaluating the whole subset.
	Rejected Outcome = iota
	// Accepted moves the chain to the proposal.
	Accepted
	// EarlyAborted rejects the proposal before the whole subset was evaluated.
	EarlyAborted
	// NoProposal means no valid proposal was found within the attempt budget.
	NoProposal
	// Adopted moves the chain to the proposal unconditionally during burn-in.
	Adopted
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case EarlyAborted:
		return "early_aborted"
	case NoProposal:
		return "no_proposal"
	case Adopted:
		return "adopted"
	case Rejected:
	}
	return "rejected"
}

// ChainStats counts the outcomes of the iterations of a chain.
type ChainStats struct {
	Accepted       int
	Rejected       int
	EarlyAborts    int
	ProposalAborts int
}

func (s *ChainStats) record(o Outcome) {
	switch o {
	case Accepted, Adopted:
		s.Accepted++
	case Rejected:
		s.Rejected++
	case EarlyAborted:
		s.EarlyAborts++
	case NoProposal:
		s.ProposalAborts++
	}
}

// Add sums two sets of counts.
func (s ChainStats) Add(other ChainStats) ChainStats {
	return ChainStats{
		Accepted:       s.Accepted + other.Accepted,
		Rejected:       s.Rejected + other.Rejected,
		EarlyAborts:    s.EarlyAborts + other.EarlyAborts,
		ProposalAborts: s.ProposalAborts + other.ProposalAborts,
	}
}
