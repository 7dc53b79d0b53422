package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// Failure messages surfaced to the transcript layer
const (
	msgTimeout   = "execution timeout exceeded"
	msgCancelled = "execution cancelled"
	msgSuspended = "execution suspended: nothing can settle the run"
)

// Snippets run inside an async wrapper so top-level await and return
// are legal
const (
	wrapPrefix = "(async () => {\n"
	wrapSuffix = "\n})()"

	// ScriptName labels snippet code in engine stack traces
	ScriptName = "snippet.js"
)

// Wrap encloses snippet source in the async wrapper the runtime
// evaluates. Exposed so syntax checks compile exactly what runs.
func Wrap(source string) string {
	return wrapPrefix + source + wrapSuffix
}

// Runtime wraps a goja VM with output capture, host timers and
// interrupt-based limits
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	// Console output
	console   []LogEntry
	consoleMu sync.Mutex

	// Host timer queue, touched only under mu
	timers *timerQueue

	// JSON.stringify captured before snippet code can touch it
	stringify goja.Callable
}

// New creates a new sandboxed runtime
func New(config Config) (*Runtime, error) {
	r := &Runtime{
		config:  config,
		console: []LogEntry{},
		timers:  newTimerQueue(),
	}
	if err := r.setupVM(); err != nil {
		return nil, err
	}
	return r, nil
}

// Execute runs one snippet to settlement. The wall-clock budget covers
// the synchronous phase, every timer callback and the waits between
// them. Run failures come back as *RunError with Result.Error set; the
// transcript layer decides what survives of partial console output.
func (r *Runtime) Execute(ctx context.Context, source string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	deadline := start.Add(r.config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	result := &Result{Console: []LogEntry{}}

	r.clearConsole()
	r.timers.reset()

	// Watchdog interrupts JS still on the stack when the budget runs
	// out; the settle loop enforces the same deadline between
	// callbacks. The watchdog timer runs on the configured budget only
	// so a context expiry always classifies as cancellation.
	// ClearInterrupt must only run once the watchdog can no longer
	// fire, hence the exit handshake.
	watchTimer := time.NewTimer(r.config.Timeout)
	defer watchTimer.Stop()
	done := make(chan struct{})
	wdExit := make(chan struct{})
	go func() {
		defer close(wdExit)
		select {
		case <-watchTimer.C:
			r.vm.Interrupt(msgTimeout)
		case <-ctx.Done():
			r.vm.Interrupt(msgCancelled)
		case <-done:
		}
	}()
	defer func() {
		close(done)
		<-wdExit
		r.vm.ClearInterrupt()
	}()

	val, err := r.vm.RunScript(ScriptName, Wrap(source))

	var runErr *RunError
	var promise *goja.Promise

	if err != nil {
		runErr = r.classify(err)
	} else if p, ok := val.Export().(*goja.Promise); ok {
		promise = p
		runErr = r.settle(ctx, p, deadline)
	}

	result.Duration = time.Since(start)

	if runErr != nil {
		result.Error = runErr
		result.Interrupted = runErr.Kind == ErrTimeout || runErr.Kind == ErrCancelled
		r.collectConsole(result)
		return result, runErr
	}

	if promise != nil {
		result.Value = exportValue(promise.Result())
	} else {
		result.Value = exportValue(val)
	}
	r.collectConsole(result)
	return result, nil
}

// settle pumps host timers until the snippet promise leaves the
// pending state. Each callback invocation drains the VM's microtask
// queue on return, which is what lets awaited timers resolve.
func (r *Runtime) settle(ctx context.Context, p *goja.Promise, deadline time.Time) *RunError {
	for p.State() == goja.PromiseStatePending {
		if !time.Now().Before(deadline) {
			return expiry(ctx)
		}

		next := r.timers.earliest()
		if next == nil {
			// Nothing scheduled can ever settle this promise
			return &RunError{Kind: ErrSuspended, Message: msgSuspended}
		}

		wake := next.due
		if wake.After(deadline) {
			wake = deadline
		}
		if wait := time.Until(wake); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return &RunError{Kind: ErrCancelled, Message: msgCancelled}
			}
		}
		if !time.Now().Before(deadline) {
			return expiry(ctx)
		}

		for _, t := range r.timers.due(time.Now()) {
			if _, err := t.fn(goja.Undefined(), t.args...); err != nil {
				return r.classify(err)
			}
			if p.State() != goja.PromiseStatePending {
				// Settled: timers still queued are discarded, the
				// transcript is whatever settlement left behind
				break
			}
		}
	}

	if p.State() == goja.PromiseStateRejected {
		return &RunError{Kind: ErrRejected, Message: r.errorMessage(p.Result())}
	}
	return nil
}

// classify maps engine errors onto run failure kinds
func (r *Runtime) classify(err error) *RunError {
	switch e := err.(type) {
	case *goja.InterruptedError:
		reason := fmt.Sprintf("%v", e.Value())
		if reason == msgCancelled {
			return &RunError{Kind: ErrCancelled, Message: reason}
		}
		return &RunError{Kind: ErrTimeout, Message: msgTimeout}
	case *goja.StackOverflowError:
		return &RunError{Kind: ErrRuntime, Message: "Maximum call stack size exceeded"}
	case *goja.Exception:
		return &RunError{Kind: ErrRuntime, Message: r.errorMessage(e.Value())}
	default:
		return &RunError{Kind: ErrSyntax, Message: firstLine(err.Error())}
	}
}

// errorMessage extracts the display message from a thrown or rejected
// value: the message property when it looks like an Error, otherwise
// the value's string form
func (r *Runtime) errorMessage(v goja.Value) string {
	if v == nil {
		return "unknown error"
	}
	if obj, ok := v.(*goja.Object); ok {
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
			return msg.String()
		}
	}
	return v.String()
}

// setupVM builds a fresh VM with limits, scrubbed globals and hooks
func (r *Runtime) setupVM() error {
	r.vm = goja.New()
	if r.config.MaxCallStack > 0 {
		r.vm.SetMaxCallStackSize(r.config.MaxCallStack)
	}
	return r.setupGlobals()
}

// setupGlobals configures global objects and security
func (r *Runtime) setupGlobals() error {
	// Remove module-system globals; snippets get ECMAScript builtins,
	// console and timers, nothing else
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		console.Set("log", r.makeConsoleFunc("log"))
		console.Set("info", r.makeConsoleFunc("info"))
		console.Set("debug", r.makeConsoleFunc("debug"))
		console.Set("warn", r.makeConsoleFunc("warn"))
		console.Set("error", r.makeConsoleFunc("error"))
		r.vm.Set("console", console)
	}

	r.vm.Set("setTimeout", r.makeSetTimer(false))
	r.vm.Set("setInterval", r.makeSetTimer(true))
	r.vm.Set("clearTimeout", r.makeClearTimer())
	r.vm.Set("clearInterval", r.makeClearTimer())

	r.captureStringify()
	return nil
}

// makeConsoleFunc creates a console hook for one level
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		msg := r.line(call.Arguments)

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: msg,
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

func (r *Runtime) clearConsole() {
	r.consoleMu.Lock()
	r.console = r.console[:0]
	r.consoleMu.Unlock()
}

func (r *Runtime) collectConsole(result *Result) {
	r.consoleMu.Lock()
	result.Console = append([]LogEntry{}, r.console...)
	r.consoleMu.Unlock()
}

// Reset replaces the VM wholesale. Snippets can mutate any builtin
// they can reach, so reuse always starts from a fresh global state.
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.console = []LogEntry{}
	r.timers = newTimerQueue()
	return r.setupVM()
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.console = nil
	r.stringify = nil
	return nil
}

// exportValue converts a goja value to a Go value
func exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// expiry decides whether a blown deadline was the run budget or the
// caller's context
func expiry(ctx context.Context) *RunError {
	if ctx.Err() != nil {
		return &RunError{Kind: ErrCancelled, Message: msgCancelled}
	}
	return &RunError{Kind: ErrTimeout, Message: msgTimeout}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
