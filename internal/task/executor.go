// Package task runs background work for the editor core with bounded
// concurrency and cancellation.
package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrExecutorClosed is returned when submitting to a shut-down executor.
var ErrExecutorClosed = errors.New("task: executor closed")

// State represents the state of an execution.
type State string

const (
	// StateRunning indicates the work function is running.
	StateRunning State = "running"
	// StateSucceeded indicates the work function returned nil.
	StateSucceeded State = "succeeded"
	// StateFailed indicates the work function returned an error.
	StateFailed State = "failed"
	// StateCanceled indicates the execution context was canceled.
	StateCanceled State = "canceled"
)

// Func is a unit of background work. It must honor ctx cancellation.
type Func func(ctx context.Context) error

// Execution represents a running or completed unit of work.
type Execution struct {
	// ID is a unique identifier for this execution.
	ID uuid.UUID

	// Name describes the work, for diagnostics.
	Name string

	mu        sync.RWMutex
	state     State
	startTime time.Time
	endTime   time.Time
	err       error

	cancel context.CancelFunc
	done   chan struct{}
}

// State returns the current execution state.
func (e *Execution) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Err returns the work function's error, once the execution finished.
func (e *Execution) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

// Duration returns how long the execution ran, or has been running.
func (e *Execution) Duration() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.endTime.IsZero() {
		return time.Since(e.startTime)
	}
	return e.endTime.Sub(e.startTime)
}

// Cancel requests cancellation of the execution's context.
func (e *Execution) Cancel() { e.cancel() }

// Done returns a channel closed when the execution completes.
func (e *Execution) Done() <-chan struct{} { return e.done }

// Wait blocks until the execution completes or ctx is canceled, and
// returns the work function's error.
func (e *Execution) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return e.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Execution) finish(err error) {
	e.mu.Lock()
	e.endTime = time.Now()
	switch {
	case err == nil:
		e.state = StateSucceeded
	case errors.Is(err, context.Canceled):
		e.state = StateCanceled
	default:
		e.state = StateFailed
	}
	e.err = err
	e.mu.Unlock()
	close(e.done)
}

// ExecutorConfig configures the executor.
type ExecutorConfig struct {
	// MaxConcurrent is the maximum number of concurrently running
	// executions (0 = unlimited).
	MaxConcurrent int
}

// Option configures an Executor.
type Option func(*ExecutorConfig)

// WithMaxConcurrent bounds concurrent executions.
func WithMaxConcurrent(n int) Option {
	return func(c *ExecutorConfig) { c.MaxConcurrent = n }
}

// Executor manages background executions.
type Executor struct {
	sem chan struct{}

	mu         sync.Mutex
	executions map[uuid.UUID]*Execution
	closed     bool
	wg         sync.WaitGroup
}

// NewExecutor creates an executor.
func NewExecutor(opts ...Option) *Executor {
	var config ExecutorConfig
	for _, opt := range opts {
		opt(&config)
	}
	x := &Executor{executions: make(map[uuid.UUID]*Execution)}
	if config.MaxConcurrent > 0 {
		x.sem = make(chan struct{}, config.MaxConcurrent)
	}
	return x
}

// Submit starts fn on a new goroutine. The returned execution can be
// waited on or canceled. Submit does not block: while the executor is
// at its concurrency bound, the goroutine waits for a free slot before
// running fn.
func (x *Executor) Submit(ctx context.Context, name string, fn Func) (*Execution, error) {
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return nil, ErrExecutorClosed
	}

	runCtx, cancel := context.WithCancel(ctx)
	exec := &Execution{
		ID:        uuid.New(),
		Name:      name,
		state:     StateRunning,
		startTime: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	x.executions[exec.ID] = exec
	x.wg.Add(1)
	x.mu.Unlock()

	go func() {
		defer x.wg.Done()
		defer cancel()

		if x.sem != nil {
			select {
			case x.sem <- struct{}{}:
				defer func() { <-x.sem }()
			case <-runCtx.Done():
				exec.finish(context.Cause(runCtx))
				x.remove(exec.ID)
				return
			}
		}

		exec.finish(fn(runCtx))
		x.remove(exec.ID)
	}()

	return exec, nil
}

func (x *Executor) remove(id uuid.UUID) {
	x.mu.Lock()
	delete(x.executions, id)
	x.mu.Unlock()
}

// Running returns the number of executions not yet finished.
func (x *Executor) Running() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.executions)
}

// Shutdown cancels all executions and waits for them to finish, or
// until ctx is canceled.
func (x *Executor) Shutdown(ctx context.Context) error {
	x.mu.Lock()
	x.closed = true
	for _, exec := range x.executions {
		exec.cancel()
	}
	x.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		x.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
