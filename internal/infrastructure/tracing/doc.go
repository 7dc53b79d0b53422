/*
Package tracing provides lightweight request tracing.

# Overview

Each HTTP request gets a trace and span ID, propagated via the
X-Trace-ID and X-Span-ID headers and echoed back in the response.
Completed spans flow through a buffered channel into structured logs.

# Usage

	// Create tracer
	tracer := tracing.New("interprep", logger)

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

	span.SetTag("key", "value")

# Performance

Span collection is buffered (1000 spans) and processed off the request
path. When the buffer is full, spans are dropped rather than blocking.
*/
package tracing
