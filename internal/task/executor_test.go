package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitAndWait(t *testing.T) {
	x := NewExecutor()

	exec, err := x.Submit(context.Background(), "work", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := exec.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if exec.State() != StateSucceeded {
		t.Fatalf("state = %s, want succeeded", exec.State())
	}
}

func TestFailureState(t *testing.T) {
	x := NewExecutor()
	boom := errors.New("boom")

	exec, err := x.Submit(context.Background(), "work", func(ctx context.Context) error {
		return boom
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := exec.Wait(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("wait err = %v, want boom", err)
	}
	if exec.State() != StateFailed {
		t.Fatalf("state = %s, want failed", exec.State())
	}
}

func TestCancel(t *testing.T) {
	x := NewExecutor()

	started := make(chan struct{})
	exec, err := x.Submit(context.Background(), "work", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started
	exec.Cancel()
	if err := exec.Wait(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("wait err = %v, want canceled", err)
	}
	if exec.State() != StateCanceled {
		t.Fatalf("state = %s, want canceled", exec.State())
	}
}

func TestMaxConcurrent(t *testing.T) {
	x := NewExecutor(WithMaxConcurrent(1))

	var running atomic.Int32
	var peak atomic.Int32
	release := make(chan struct{})

	var execs []*Execution
	for i := 0; i < 3; i++ {
		exec, err := x.Submit(context.Background(), "work", func(ctx context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			return nil
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		execs = append(execs, exec)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	for _, exec := range execs {
		if err := exec.Wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if peak.Load() != 1 {
		t.Fatalf("peak concurrency = %d, want 1", peak.Load())
	}
}

func TestShutdownRejectsSubmit(t *testing.T) {
	x := NewExecutor()
	if err := x.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := x.Submit(context.Background(), "late", func(ctx context.Context) error { return nil }); !errors.Is(err, ErrExecutorClosed) {
		t.Fatalf("submit err = %v, want closed", err)
	}
}

func TestShutdownCancelsRunning(t *testing.T) {
	x := NewExecutor()

	started := make(chan struct{})
	exec, err := x.Submit(context.Background(), "work", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started
	if err := x.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if exec.State() != StateCanceled {
		t.Fatalf("state = %s, want canceled", exec.State())
	}
}
