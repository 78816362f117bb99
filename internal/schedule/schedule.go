// Package schedule provides the two timer shapes the shell needs: a
// fixed-cadence repeating task and a poll-until-found retry, both bound to a
// context so they stop with the window that owns them.
package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrTimeout is returned by PollUntil when its timeout elapses first
var ErrTimeout = errors.New("poll timed out")

// errNotYet marks a lookup that completed without a value
var errNotYet = errors.New("value not available yet")

// Task is a repeating job started by Every.
type Task struct {
	parent context.Context
	cancel context.CancelFunc
	done   chan struct{}
	runs   sync.WaitGroup
}

// Every calls fn on every tick of interval, each call in its own goroutine,
// until ctx is cancelled or Stop is called. Calls may overlap when fn takes
// longer than interval. The first call happens one interval after start.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context)) *Task {
	runCtx, cancel := context.WithCancel(ctx)
	t := &Task{
		parent: ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.loop(runCtx, interval, fn)
	return t
}

func (t *Task) loop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer close(t.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runs.Add(1)
			go func() {
				defer t.runs.Done()
				fn(ctx)
			}()
		}
	}
}

// Done is closed once the task stops scheduling new calls
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Parent returns the context the task was started with
func (t *Task) Parent() context.Context {
	return t.parent
}

// Stop cancels the task and waits for in-flight calls to return
func (t *Task) Stop() {
	t.cancel()
	<-t.done
	t.runs.Wait()
}

// Lookup looks for a value. An empty result means "not there yet".
type Lookup func(ctx context.Context) (string, error)

// Notify is called after each failed lookup with the error and the wait before the next one.
type Notify func(err error, next time.Duration)

// PollUntil calls lookup immediately and then every interval until it returns
// a non-empty value. A zero timeout retries until ctx is cancelled. Lookup
// errors are passed to notify (when non-nil) and retried.
func PollUntil(ctx context.Context, interval, timeout time.Duration, lookup Lookup, notify Notify) (string, error) {
	pollCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var result string
	operation := func() error {
		v, err := lookup(pollCtx)
		if err != nil {
			return err
		}
		if v == "" {
			return errNotYet
		}
		result = v
		return nil
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, next time.Duration) {
			if !errors.Is(err, errNotYet) {
				notify(err, next)
			}
		}
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(interval), pollCtx)
	if err := backoff.RetryNotify(operation, b, onRetry); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if pollCtx.Err() != nil {
			return "", ErrTimeout
		}
		return "", err
	}
	return result, nil
}
