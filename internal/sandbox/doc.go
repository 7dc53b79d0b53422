/*
Package sandbox executes untrusted JavaScript snippets inside isolated
goja runtimes.

# Overview

Each runtime gives a snippet ECMAScript builtins plus exactly three
capabilities: a console object whose calls are captured into a per-run
buffer, host-backed timers (setTimeout/setInterval and their clears),
and nothing else. Node globals are explicitly undefined and no
filesystem, network or process handles exist in the VM.

# Execution Model

Snippets are wrapped in an async IIFE, so top-level await and return
are legal. After the synchronous phase the runtime pumps its timer
queue: it sleeps until the earliest timer is due, fires it, and lets
the VM drain its microtask queue, repeating until the wrapper promise
settles. Timers still pending at settlement are discarded. A promise
that can never settle (pending with an empty timer queue) fails the
run instead of hanging it.

# Limits

A wall-clock budget covers the whole run. JS on the stack when the
budget expires is stopped through goja's Interrupt; the pump applies
the same deadline between callbacks. Call stack depth is capped via
SetMaxCallStackSize.

# Pooling

Pool hands out pre-built runtimes. A runtime is reset to a completely
fresh VM between runs, so repeated evaluation of the same snippet is
deterministic and no snippet observes another's globals.

# Usage Example

	pool, _ := NewPool(DefaultConfig(), 8)
	result, err := pool.Execute(ctx, `console.log("hi")`)
	if err != nil {
		// err is a *RunError carrying a display-ready message
	}
*/
package sandbox
