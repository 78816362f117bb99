// Package bridge evaluates script expressions inside the loaded page and
// carries their results back to Go over runtime events.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/soniditos/soniditos-desktop/internal/errors"
)

// ResultEvent is the runtime event the page emits with an evaluation result
const ResultEvent = "bridge:result"

// Runtime is the part of the webview runtime the bridge needs.
type Runtime interface {
	// ExecJS runs a script in the page without waiting for a result.
	ExecJS(js string)
	// On registers a listener for a runtime event and returns its cancel function.
	On(event string, fn func(data ...any)) func()
}

// Evaluator evaluates an expression in the page and returns its JSON value.
type Evaluator interface {
	Eval(ctx context.Context, expr string) (json.RawMessage, error)
}

type result struct {
	value json.RawMessage
	err   string
}

// Bridge is the Evaluator backed by a webview Runtime.
type Bridge struct {
	rt      Runtime
	logger  *slog.Logger
	mu      sync.Mutex
	pending map[string]chan result
	off     func()
}

// New creates a bridge and starts listening for results
func New(rt Runtime, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{
		rt:      rt,
		logger:  logger,
		pending: make(map[string]chan result),
	}
	b.off = rt.On(ResultEvent, b.handleResult)
	return b
}

// Close stops listening for results
func (b *Bridge) Close() {
	if b.off != nil {
		b.off()
	}
}

// Eval runs expr in the page. The expression may evaluate to a promise.
// A missing page-side answer is bounded only by ctx.
func (b *Bridge) Eval(ctx context.Context, expr string) (json.RawMessage, error) {
	id := uuid.NewString()
	ch := make(chan result, 1)

	b.mu.Lock()
	b.pending[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	b.rt.ExecJS(EvalScript(id, expr))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != "" {
			return nil, apperrors.Unavailablef("evaluate %q: %s", expr, r.err)
		}
		return r.value, nil
	}
}

// Pending returns the number of evaluations awaiting a result
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// handleResult receives (id, value, error) from the page
func (b *Bridge) handleResult(data ...any) {
	if len(data) == 0 {
		return
	}
	id, ok := data[0].(string)
	if !ok {
		b.logger.Debug("Ignoring bridge result without id", "data", data)
		return
	}

	var r result
	if len(data) > 1 {
		raw, err := json.Marshal(data[1])
		if err != nil {
			r.err = fmt.Sprintf("encode result: %v", err)
		} else {
			r.value = raw
		}
	} else {
		r.value = json.RawMessage("null")
	}
	if len(data) > 2 {
		if msg, ok := data[2].(string); ok {
			r.err = msg
		}
	}

	b.mu.Lock()
	ch, ok := b.pending[id]
	b.mu.Unlock()
	if !ok {
		// Late answer for a request whose context already ended
		return
	}

	select {
	case ch <- r:
	default:
	}
}

// String evaluates expr and decodes an optional string result. Absent covers
// null, undefined and the empty string. Non-string values are returned as
// their JSON text.
func String(ctx context.Context, ev Evaluator, expr string) (string, bool, error) {
	raw, err := ev.Eval(ctx, expr)
	if err != nil {
		return "", false, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return "", false, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw), true, nil
	}
	if s == "" {
		return "", false, nil
	}
	return s, true, nil
}
