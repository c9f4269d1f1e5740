package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

const (
	DefaultMaxParallel = 4
	DefaultCancelGrace = 2 * time.Second
)

// Options 控制批量调用的并发与超时。
type Options struct {
	// MaxParallel bounds concurrent handlers within one batch.
	MaxParallel int
	// Timeout applies to each invocation separately; zero disables it.
	Timeout time.Duration
	// CancelGrace is how long a handler may keep running after its context is
	// done before it is abandoned.
	CancelGrace time.Duration
	// Observer receives started/completed events. Calls are serialised.
	Observer func(ToolEvent)
}

// Dispatcher executes call batches against a Registry.
type Dispatcher struct {
	registry *Registry
	opts     Options
	emitMu   sync.Mutex
}

func NewDispatcher(registry *Registry, opts Options) *Dispatcher {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	if opts.Timeout < 0 {
		opts.Timeout = 0
	}
	if opts.CancelGrace <= 0 {
		opts.CancelGrace = DefaultCancelGrace
	}
	return &Dispatcher{registry: registry, opts: opts}
}

func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch runs every call and returns exactly one result per call, in call
// order. Per-call failures are reported in the results, never as an error.
// It returns once every call has resolved or been abandoned.
func (d *Dispatcher) Dispatch(ctx context.Context, env *Env, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))
	if len(calls) == 0 {
		return results
	}
	p := pool.New().WithMaxGoroutines(d.opts.MaxParallel)
	for i, call := range calls {
		p.Go(func() {
			results[i] = d.DispatchOne(ctx, env, call)
		})
	}
	p.Wait()
	return results
}

// DispatchOne resolves and runs a single call.
func (d *Dispatcher) DispatchOne(ctx context.Context, env *Env, call ToolCall) ToolResult {
	start := time.Now()
	handler, ok := d.registry.Resolve(call.Name)
	suggestion := ""
	if !ok {
		suggestion = d.registry.Suggest(call.Name)
	}
	logToolRequest(env, call, ok, suggestion)
	d.emit(ToolEvent{Type: EventStarted, Result: ToolResult{ID: call.ID, Name: call.Name, Status: StatusStarted}})

	var result ToolResult
	switch {
	case !ok:
		result = failure(call, KindUnknownTool, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name))
	case ctx.Err() != nil:
		result = failure(call, KindCancelled, errCancelled)
	default:
		result = d.invoke(ctx, env, call, handler)
	}
	result.Duration = time.Since(start)

	logToolResult(env, call, result)
	d.emit(ToolEvent{Type: EventCompleted, Result: result})
	return result
}

type outcome struct {
	value json.RawMessage
	err   error
}

func (d *Dispatcher) invoke(ctx context.Context, env *Env, call ToolCall, handler Handler) ToolResult {
	run, err := handler.Prepare(call.Payload)
	if err != nil {
		return failure(call, classify(err), err)
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if d.opts.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
	}
	defer cancel()

	// Buffered so an abandoned handler can still finish without blocking.
	done := make(chan outcome, 1)
	go func() {
		var out outcome
		var catcher panics.Catcher
		catcher.Try(func() { out.value, out.err = run(callCtx, env) })
		if r := catcher.Recovered(); r != nil {
			out.err = &FaultError{Tool: call.Name, Value: r.Value, Stack: string(r.Stack)}
		}
		done <- out
	}()

	select {
	case out := <-done:
		return d.settle(ctx, callCtx, env, call, out)
	case <-callCtx.Done():
	}

	grace := time.NewTimer(d.opts.CancelGrace)
	defer grace.Stop()
	select {
	case out := <-done:
		return d.settle(ctx, callCtx, env, call, out)
	case <-grace.C:
		env.Logger().Warnf("tool %s (id=%s) ignored cancellation for %s, abandoning", call.Name, call.ID, d.opts.CancelGrace)
		return d.contextFailure(ctx, call)
	}
}

func (d *Dispatcher) settle(parent, callCtx context.Context, env *Env, call ToolCall, out outcome) ToolResult {
	if out.err == nil {
		return success(call, out.value)
	}
	var fault *FaultError
	if errors.As(out.err, &fault) {
		if fault.Stack != "" {
			env.Logger().Errorf("tool %s (id=%s) panicked: %v\n%s", call.Name, call.ID, fault.Value, fault.Stack)
		}
		return failure(call, KindFault, out.err)
	}
	if callCtx.Err() != nil && (errors.Is(out.err, context.Canceled) || errors.Is(out.err, context.DeadlineExceeded)) {
		return d.contextFailure(parent, call)
	}
	return failure(call, classify(out.err), out.err)
}

// contextFailure distinguishes cancellation of the whole turn from the
// per-call deadline.
func (d *Dispatcher) contextFailure(parent context.Context, call ToolCall) ToolResult {
	if parent.Err() != nil || d.opts.Timeout <= 0 {
		return failure(call, KindCancelled, errCancelled)
	}
	return failure(call, KindTimeout, fmt.Errorf("timed out after %s", d.opts.Timeout))
}

func (d *Dispatcher) emit(ev ToolEvent) {
	if d.opts.Observer == nil {
		return
	}
	d.emitMu.Lock()
	defer d.emitMu.Unlock()
	d.opts.Observer(ev)
}
