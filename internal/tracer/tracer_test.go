package tracer

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/mocktracer"
)

func Test_Spans(t *testing.T) {
	mt := mocktracer.Start()
	defer mt.Stop()

	span, ctx := StartSpan(context.Background(), "submission", "transfer")
	assert.NotNil(t, ctx)
	FinishSpan(span, errors.New("boom"))

	ok, _ := StartSpan(context.Background(), "submission", "approve")
	FinishSpan(ok, nil)

	spans := mt.FinishedSpans()
	assert.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, "submission", s.OperationName())
	}
}
