package sandbox

import (
	"sort"
	"time"

	"github.com/dop251/goja"
)

// maxDelayMS caps timer delays so duration math cannot overflow.
// Anything past the run deadline times the run out regardless.
const maxDelayMS = float64(1 << 31)

// hostTimer is one scheduled setTimeout/setInterval callback
type hostTimer struct {
	id     int64
	due    time.Time
	period time.Duration // 0 for one-shot timers
	fn     goja.Callable
	args   []goja.Value
}

// timerQueue holds the pending timers of one runtime.
// It is only touched while the runtime's run lock is held, so it needs
// no locking of its own.
type timerQueue struct {
	nextID  int64
	pending map[int64]*hostTimer
}

func newTimerQueue() *timerQueue {
	return &timerQueue{pending: make(map[int64]*hostTimer)}
}

// schedule registers a timer and returns its JS-visible id
func (q *timerQueue) schedule(fn goja.Callable, due time.Time, period time.Duration, args []goja.Value) int64 {
	q.nextID++
	id := q.nextID
	q.pending[id] = &hostTimer{
		id:     id,
		due:    due,
		period: period,
		fn:     fn,
		args:   args,
	}
	return id
}

// clear cancels a timer. Timeouts and intervals share one id space,
// matching clearTimeout/clearInterval interchangeability.
func (q *timerQueue) clear(id int64) {
	delete(q.pending, id)
}

// earliest returns the next timer to fire, ties broken by registration
// order, or nil when nothing is scheduled
func (q *timerQueue) earliest() *hostTimer {
	var next *hostTimer
	for _, t := range q.pending {
		if next == nil || t.due.Before(next.due) || (t.due.Equal(next.due) && t.id < next.id) {
			next = t
		}
	}
	return next
}

// due returns all timers due at now, in firing order. One-shot timers
// are removed; intervals are rescheduled one period ahead.
func (q *timerQueue) due(now time.Time) []*hostTimer {
	var fired []*hostTimer
	for _, t := range q.pending {
		if !t.due.After(now) {
			fired = append(fired, t)
		}
	}
	sort.Slice(fired, func(i, j int) bool {
		if fired[i].due.Equal(fired[j].due) {
			return fired[i].id < fired[j].id
		}
		return fired[i].due.Before(fired[j].due)
	})

	for _, t := range fired {
		if t.period > 0 {
			t.due = now.Add(t.period)
		} else {
			delete(q.pending, t.id)
		}
	}
	return fired
}

// size reports how many timers are pending
func (q *timerQueue) size() int {
	return len(q.pending)
}

// reset drops all pending timers
func (q *timerQueue) reset() {
	q.pending = make(map[int64]*hostTimer)
	q.nextID = 0
}

// makeSetTimer builds the setTimeout/setInterval host function
func (r *Runtime) makeSetTimer(repeating bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(r.vm.NewTypeError("timer callback must be a function"))
		}

		ms := call.Argument(1).ToFloat()
		if ms != ms || ms < 0 { // NaN or negative coerces to immediate
			ms = 0
		}
		if ms > maxDelayMS {
			ms = maxDelayMS
		}
		delay := time.Duration(ms * float64(time.Millisecond))

		var period time.Duration
		if repeating {
			period = delay
			// A zero-period interval would spin the scheduler
			if period < time.Millisecond {
				period = time.Millisecond
			}
		}

		var args []goja.Value
		if len(call.Arguments) > 2 {
			args = append(args, call.Arguments[2:]...)
		}

		id := r.timers.schedule(fn, time.Now().Add(delay), period, args)
		return r.vm.ToValue(id)
	}
}

// makeClearTimer builds the clearTimeout/clearInterval host function
func (r *Runtime) makeClearTimer() func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		r.timers.clear(call.Argument(0).ToInteger())
		return goja.Undefined()
	}
}
