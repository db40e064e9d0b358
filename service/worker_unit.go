/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/atomic"
)

// ErrWorkerUnitStopTimeoutExceeded is an error that occurs when WorkerUnit's gracefully stop timeout is exceeded.
var ErrWorkerUnitStopTimeoutExceeded = errors.New("worker unit stop timeout exceeded")

// WorkerUnit allows presenting Worker as Unit.
type WorkerUnit struct {
	worker              Worker
	ctx                 context.Context
	cancel              context.CancelFunc
	done                chan struct{}
	gracefulStopTimeout time.Duration
	started             atomic.Bool
}

var _ Unit = (*WorkerUnit)(nil)

// WorkerUnitOpts contains optional parameters for constructing WorkerUnit.
type WorkerUnitOpts struct {
	// GracefulStopTimeout bounds the graceful Stop. Zero means wait as long as needed.
	GracefulStopTimeout time.Duration
}

// NewWorkerUnit creates a new instance of WorkerUnit.
func NewWorkerUnit(worker Worker) *WorkerUnit {
	return NewWorkerUnitWithOpts(worker, WorkerUnitOpts{})
}

// NewWorkerUnitWithOpts creates a new instance of WorkerUnit
// with an ability to specify different optional parameters.
func NewWorkerUnitWithOpts(worker Worker, opts WorkerUnitOpts) *WorkerUnit {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerUnit{
		worker:              worker,
		ctx:                 ctx,
		cancel:              cancel,
		done:                make(chan struct{}),
		gracefulStopTimeout: opts.GracefulStopTimeout,
	}
}

// Start runs the underlying Worker and blocks until it returns. Only the first call has an effect.
// A nil fatalError channel means the worker's error is dropped.
func (u *WorkerUnit) Start(fatalError chan<- error) {
	if !u.started.CompareAndSwap(false, true) {
		return
	}
	defer close(u.done)
	if err := u.worker.Run(u.ctx); err != nil && fatalError != nil {
		fatalError <- err
	}
}

// Stop cancels the underlying Worker. If gracefully is true, it also waits for the Worker to return.
// A unit that was never started is considered stopped.
func (u *WorkerUnit) Stop(gracefully bool) error {
	u.cancel()
	if u.started.CompareAndSwap(false, true) {
		close(u.done)
	}
	if !gracefully {
		return nil
	}
	if u.gracefulStopTimeout == 0 {
		<-u.done
		return nil
	}
	select {
	case <-u.done:
		return nil
	case <-time.After(u.gracefulStopTimeout):
		return ErrWorkerUnitStopTimeoutExceeded
	}
}
