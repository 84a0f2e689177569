/*
Package tracing provides lightweight request tracing.

Every API request gets a trace id (or continues the one in X-Trace-ID). The
id follows the request into the fetch pipeline, is attached to relay
requests and appears on log lines as trace_id. Finished spans are written to
the log by a buffered collector.

	tracer := tracing.New("nebula", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "fetch")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
*/
package tracing
