package poseestimator

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"

	"go.viam.com/posematch/logging"
	"go.viam.com/posematch/pointcloud"
)

// search is the read only state shared by the chains of one run.
type search struct {
	object     *pointcloud.Model
	scene      *pointcloud.Model
	objectSize float64
	n          int
	strategy   pointcloud.EvalStrategy
	noise      float64
	view       viewMode
	factor     CustomIntegrandFactor
	progress   *progress
	logger     logging.Logger
}

// chain is one annealed Metropolis-Hastings chain. It owns its random source.
type chain struct {
	*search
	id    int
	rng   *rand.Rand
	stats ChainStats
}

func newChain(s *search, id int, seed int64) *chain {
	return &chain{search: s, id: id, rng: rand.New(rand.NewSource(seed))}
}

// run performs the burn-in iteration followed by 10n annealed iterations and returns the best
// hypothesis visited.
func (c *chain) run(ctx context.Context) (Hypothesis, error) {
	current := newHypothesis()
	best := current

	o, err := c.step(&current, 1, true)
	if err != nil {
		return Hypothesis{}, errors.Wrapf(err, "chain %d burn-in", c.id)
	}
	c.stats.record(o)
	if current.Weight > best.Weight {
		best = current
	}

	nSteps := 10 * c.n
	for i := 0; i < nSteps; i++ {
		if err := ctx.Err(); err != nil {
			return Hypothesis{}, err
		}
		current.LocH, current.OriH = bandwidthsAt(i, nSteps, c.objectSize)
		if current.LocH <= 0 {
			return Hypothesis{}, errors.Wrapf(ErrDegenerateBandwidth, "chain %d step %d loc_h %v", c.id, i, current.LocH)
		}
		if i%10 == 0 {
			c.progress.inc()
		}

		o, err := c.step(&current, chainTemperature(i, nSteps), false)
		if err != nil {
			return Hypothesis{}, errors.Wrapf(err, "chain %d step %d", c.id, i)
		}
		c.stats.record(o)

		if current.Weight > best.Weight {
			best = current
		}
	}
	c.logger.Debugw("chain done", "chain", c.id, "weight", best.Weight,
		"accepted", c.stats.Accepted, "rejected", c.stats.Rejected,
		"early_aborts", c.stats.EarlyAborts, "proposal_aborts", c.stats.ProposalAborts)
	return best, nil
}
