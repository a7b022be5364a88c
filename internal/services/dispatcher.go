package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/auma/compliance-gate/internal/logger"
	"github.com/auma/compliance-gate/internal/models"
)

// Task is the handle of one background notification. Callers that do not
// care about the outcome simply never wait on it.
type Task struct {
	done   chan struct{}
	result models.NotificationResult
	err    error
}

// Done is closed when the task finishes.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) (models.NotificationResult, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return models.NotificationResult{}, ctx.Err()
	}
}

// Dispatcher runs notification work off the request path and tracks it so
// shutdown can drain in-flight tasks.
type Dispatcher struct {
	wg  sync.WaitGroup
	ctx context.Context
}

// NewDispatcher returns a dispatcher whose tasks inherit values from base but
// not its cancellation.
func NewDispatcher(base context.Context) *Dispatcher {
	if base == nil {
		base = context.Background()
	}
	return &Dispatcher{ctx: context.WithoutCancel(base)}
}

// Go starts fn in the background.
func (d *Dispatcher) Go(fn func(ctx context.Context) models.NotificationResult) *Task {
	t := &Task{done: make(chan struct{})}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("notification task panicked: %v", r)
				logger.Log().WithField("panic", fmt.Sprintf("%v", r)).Error("Recovered notification task panic")
			}
		}()
		t.result = fn(d.ctx)
	}()
	return t
}

// Wait joins every outstanding task or returns ctx.Err() if ctx ends first.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
