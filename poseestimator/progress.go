package poseestimator

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"go.viam.com/posematch/utils"
)

// progressInterval is how often the shared counter is pushed to the sink.
const progressInterval = 100 * time.Millisecond

// ProgressSink displays the advance of a search. Its methods are only called from one goroutine.
type ProgressSink interface {
	Start(total int)
	Update(done int)
	Finish()
}

type nopSink struct{}

func (nopSink) Start(int)  {}
func (nopSink) Update(int) {}
func (nopSink) Finish()    {}

// progress is a counter incremented by every chain and polled into a sink.
type progress struct {
	count   atomic.Int64
	total   int
	sink    ProgressSink
	workers *utils.StoppableWorkers
}

// startProgress reports total to the sink and pushes the count to it on every tick of clk.
func startProgress(sink ProgressSink, total int, clk clock.Clock) *progress {
	p := &progress{total: total, sink: sink}
	sink.Start(total)
	ticker := clk.Ticker(progressInterval)
	p.workers = utils.NewStoppableWorkers(context.Background(), func(ctx context.Context) {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.sink.Update(int(p.count.Load()))
			}
		}
	})
	return p
}

func (p *progress) inc() {
	if p == nil {
		return
	}
	p.count.Inc()
}

// stop ends polling and reports the final count.
func (p *progress) stop() {
	if p == nil {
		return
	}
	p.workers.Stop()
	p.sink.Update(int(p.count.Load()))
	p.sink.Finish()
}
