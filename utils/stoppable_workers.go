package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"
)

// StoppableWorkers is a group of background goroutines sharing one cancelable context.
type StoppableWorkers struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel func()
	wg     sync.WaitGroup
}

// NewStoppableWorkers starts each function in its own goroutine. The workers are canceled by Stop or
// when parent is done.
func NewStoppableWorkers(parent context.Context, funcs ...func(context.Context)) *StoppableWorkers {
	ctx, cancel := context.WithCancel(parent)
	sw := &StoppableWorkers{ctx: ctx, cancel: cancel}
	sw.Add(funcs...)
	return sw
}

// Add starts more workers. It does nothing once Stop was called.
func (sw *StoppableWorkers) Add(funcs ...func(context.Context)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.ctx.Err() != nil {
		return
	}
	sw.wg.Add(len(funcs))
	for _, f := range funcs {
		f := f
		goutils.PanicCapturingGo(func() {
			defer sw.wg.Done()
			f(sw.ctx)
		})
	}
}

// Stop cancels the workers and waits for all of them to return.
func (sw *StoppableWorkers) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.cancel()
	sw.wg.Wait()
}
