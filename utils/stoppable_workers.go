package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"
)

// StoppableWorkers is a collection of goroutines that share a context and can be stopped
// together.
type StoppableWorkers interface {
	AddWorkers(...func(context.Context))
	Stop()
	Context() context.Context
}

// stoppableWorkersImpl must not be copied because of its WaitGroup, so it is only handed out
// behind the StoppableWorkers interface.
type stoppableWorkersImpl struct {
	mu         sync.Mutex
	cancelCtx  context.Context
	cancelFunc func()
	workers    sync.WaitGroup
}

// NewStoppableWorkers runs each function in its own goroutine with a context derived from
// parent. Cancelling parent stops the workers as well.
func NewStoppableWorkers(parent context.Context, funcs ...func(context.Context)) StoppableWorkers {
	cancelCtx, cancelFunc := context.WithCancel(parent)
	sw := &stoppableWorkersImpl{cancelCtx: cancelCtx, cancelFunc: cancelFunc}
	sw.AddWorkers(funcs...)
	return sw
}

// AddWorkers starts a goroutine per function. After Stop it starts nothing.
func (sw *stoppableWorkersImpl) AddWorkers(funcs ...func(context.Context)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.cancelCtx.Err() != nil {
		return
	}

	sw.workers.Add(len(funcs))
	for _, f := range funcs {
		goutils.PanicCapturingGo(func() {
			defer sw.workers.Done()
			f(sw.cancelCtx)
		})
	}
}

// Stop cancels the shared context and waits for every worker to return.
func (sw *stoppableWorkersImpl) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.cancelFunc()
	sw.workers.Wait()
}

// Context is the context the workers watch.
func (sw *stoppableWorkersImpl) Context() context.Context {
	return sw.cancelCtx
}
