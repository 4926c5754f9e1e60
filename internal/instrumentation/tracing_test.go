package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestSpanAttrs(t *testing.T) {
	assert.Empty(t, JobAttr(""))
	assert.Empty(t, EventAttr(""))

	attrs := append(JobAttr("job-1"), EventAttr("evt-9")...)
	got := map[string]string{}
	for _, a := range attrs {
		got[string(a.Key)] = a.Value.AsString()
	}
	assert.Equal(t, map[string]string{SpanAttrJobID: "job-1", SpanAttrEventID: "evt-9"}, got)
}

func TestStartSpans(t *testing.T) {
	_, ctx := newTestProvider(t, false)

	starters := map[string]func() (context.Context, trace.Span){
		"tool":   func() (context.Context, trace.Span) { return StartToolSpan(ctx, "meeting_start", JobAttr("job-1")...) },
		"oracle": func() (context.Context, trace.Span) { return StartOracleSpan(ctx, "heuristic", OracleKindDecision) },
		"google": func() (context.Context, trace.Span) {
			return StartGoogleAPISpan(ctx, ServiceCalendar, OperationFreeBusy)
		},
	}
	for name, startSpan := range starters {
		t.Run(name, func(t *testing.T) {
			spanCtx, span := startSpan()
			assert.NotNil(t, spanCtx)
			assert.NotNil(t, span)
			span.End()
		})
	}
}

func TestSetSpanStatus(t *testing.T) {
	_, ctx := newTestProvider(t, false)

	_, span := StartToolSpan(ctx, "meeting_get")
	assert.NotPanics(t, func() {
		SetSpanError(span, errors.New("boom"))
		SetSpanError(span, nil)
		SetSpanSuccess(span)
	})
	span.End()
}
