// Package tracer starts the DataDog tracer and opens spans around watcher
// and submission work.
package tracer

import (
	"context"

	"github.com/Layr-Labs/chainwatch/internal/config"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/ext"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/mocktracer"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

const ServiceName = "chainwatch"

// StartTracer starts the DataDog tracer, or a mock tracer when disabled. The
// returned function stops whichever one was started.
func StartTracer(enabled bool, chain config.Chain) func() {
	if !enabled {
		mt := mocktracer.Start()
		return mt.Stop
	}
	ddTracer.Start(
		ddTracer.WithEnv(chain.String()),
		ddTracer.WithServiceName(ServiceName),
		ddTracer.WithGlobalServiceName(true),
		ddTracer.WithDebugMode(false),
		ddTracer.WithLogStartup(false),
	)
	return ddTracer.Stop
}

// StartSpan opens a span tagged with the resource it covers.
func StartSpan(ctx context.Context, operation string, resource string) (ddtrace.Span, context.Context) {
	return ddTracer.StartSpanFromContext(ctx, operation,
		ddTracer.ResourceName(resource),
		ddTracer.Tag(ext.ServiceName, ServiceName),
	)
}

// FinishSpan closes span, marking it errored when err is not nil.
func FinishSpan(span ddtrace.Span, err error) {
	span.Finish(ddTracer.WithError(err))
}
