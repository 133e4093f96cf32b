/*
Package tracing correlates log lines across one evaluation request.

# Overview

Every HTTP request gets a trace ID, either taken from the caller's
X-Trace-ID header or freshly generated. Handlers and anything below them
can pull the ID out of the request context, and completed spans are
logged asynchronously through the structured logger.

# Usage

	tracer := tracing.New("exprbox", logger)
	router.Use(tracer.Middleware())

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

# Trace Format

Traces use standard HTTP headers for propagation:
- X-Trace-ID: identifier for the entire request flow
- X-Span-ID: identifier for the current operation

Both headers are echoed on responses so callers can quote them when
reporting a failed evaluation.
*/
package tracing
