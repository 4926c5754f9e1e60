package oracle

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/meetgate/internal/instrumentation"
	"github.com/teemow/meetgate/internal/job"
)

// Instrumented wraps an Oracle with spans and call metrics.
type Instrumented struct {
	next    Oracle
	metrics *instrumentation.Metrics
}

// Instrument wraps o. metrics may be nil, in which case only spans are recorded.
func Instrument(o Oracle, metrics *instrumentation.Metrics) *Instrumented {
	return &Instrumented{next: o, metrics: metrics}
}

// Name implements Oracle.
func (i *Instrumented) Name() string { return i.next.Name() }

// Evaluate implements DecisionOracle.
func (i *Instrumented) Evaluate(ctx context.Context, transcript string, policy job.Policy) (*job.Decision, error) {
	ctx, span := instrumentation.StartOracleSpan(ctx, i.next.Name(), instrumentation.OracleKindDecision)
	defer span.End()

	start := time.Now()
	d, err := i.next.Evaluate(ctx, transcript, policy)
	if err == nil {
		err = CheckDecision(d)
	}
	i.record(ctx, instrumentation.OracleKindDecision, start, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String(instrumentation.SpanAttrDecision, string(d.Decision)))
	i.metrics.RecordDecision(ctx, string(d.Decision))
	instrumentation.SetSpanSuccess(span)
	return d, nil
}

// Reply implements ResponseOracle.
func (i *Instrumented) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	ctx, span := instrumentation.StartOracleSpan(ctx, i.next.Name(), instrumentation.OracleKindResponse)
	defer span.End()

	start := time.Now()
	reply, err := i.next.Reply(ctx, req)
	i.record(ctx, instrumentation.OracleKindResponse, start, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return "", err
	}
	instrumentation.SetSpanSuccess(span)
	return reply, nil
}

func (i *Instrumented) record(ctx context.Context, kind string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	i.metrics.RecordOracleCall(ctx, i.next.Name(), kind, status, time.Since(start))
}

// Config selects and configures an oracle implementation.
type Config struct {
	Type string
	Chat ChatConfig
}

// New builds the oracle named by cfg.Type. An empty type selects the
// heuristic oracle.
func New(cfg Config) (Oracle, error) {
	switch cfg.Type {
	case "", TypeHeuristic:
		return NewHeuristicOracle(), nil
	case TypeChat:
		return NewChatOracle(cfg.Chat), nil
	default:
		return nil, fmt.Errorf("%w: unknown oracle type %q", job.ErrInvalidInput, cfg.Type)
	}
}
