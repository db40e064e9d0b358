/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package reclaim

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/acronis/go-cachekit/log"
)

// DefaultDispatchConcurrency is the default number of jobs a Dispatcher runs at the same time.
const DefaultDispatchConcurrency = 16

// Job kinds, used as the "job" log field and in failure messages.
const (
	JobTeardown         = "teardown"
	JobEvictionCallback = "eviction callback"
)

// Dispatcher runs teardowns and eviction callbacks asynchronously, never on the caller's goroutine,
// so that a callback which takes the cache lock cannot deadlock against the operation that triggered it.
// At most the configured number of jobs run at once, each on its own goroutine; jobs scheduled beyond
// that wait in a FIFO queue without a goroutine of their own. A panicking job is recovered and logged.
type Dispatcher struct {
	sem    *semaphore.Weighted
	logger log.FieldLogger
	wg     sync.WaitGroup

	mu    sync.Mutex // guards queue and the hand-over of semaphore slots
	queue []dispatchJob
}

type dispatchJob struct {
	name   string
	fn     func()
	fields []log.Field
}

// NewDispatcher creates a Dispatcher running at most concurrency jobs at once
// (DefaultDispatchConcurrency if concurrency <= 0).
func NewDispatcher(concurrency int, logger log.FieldLogger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = DefaultDispatchConcurrency
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Dispatcher{sem: semaphore.NewWeighted(int64(concurrency)), logger: logger}
}

// Go schedules fn. It never blocks.
// The fields are attached to the log entry written if fn panics.
func (d *Dispatcher) Go(job string, fn func(), fields ...log.Field) {
	d.wg.Add(1)
	j := dispatchJob{name: job, fn: fn, fields: fields}

	d.mu.Lock()
	if !d.sem.TryAcquire(1) {
		d.queue = append(d.queue, j)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	go d.work(j)
}

// Queued returns the number of jobs waiting for a free slot.
func (d *Dispatcher) Queued() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// work runs j and then drains the queue, keeping its semaphore slot until the queue is empty.
func (d *Dispatcher) work(j dispatchJob) {
	for {
		d.run(j.name, j.fn, j.fields)
		d.wg.Done()

		d.mu.Lock()
		if len(d.queue) == 0 {
			d.sem.Release(1)
			d.mu.Unlock()
			return
		}
		j = d.queue[0]
		d.queue[0] = dispatchJob{}
		d.queue = d.queue[1:]
		d.mu.Unlock()
	}
}

func (d *Dispatcher) run(job string, fn func(), fields []log.Field) {
	defer func() {
		if p := recover(); p != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			d.logger.Error(fmt.Sprintf("%s panicked: %+v", job, p),
				append(fields, log.String("job", job), log.Bytes("stack", stack))...)
		}
	}()
	fn()
}

// Wait blocks until all scheduled jobs are finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
