package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/codes"

	"github.com/teemow/meetgate/internal/instrumentation"
	"github.com/teemow/meetgate/internal/server"
)

// ToolHandler is the mcp-go tool handler signature.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps handler in a tool span and records the
// invocation metric and audit entry.
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		jobID := JobIDFromArgs(request.GetArguments())
		ctx, span := instrumentation.StartToolSpan(ctx, toolName, instrumentation.JobAttr(jobID)...)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithJob(jobID)

		result, err := handler(ctx, request)

		// Tool-level failures come back as error results, not Go errors.
		success := err == nil && (result == nil || !result.IsError)
		invocation.Complete(success, err)
		switch {
		case err != nil:
			instrumentation.SetSpanError(span, err)
		case !success:
			span.SetStatus(codes.Error, "tool returned an error result")
		default:
			instrumentation.SetSpanSuccess(span)
		}

		metrics.RecordToolInvocation(ctx, toolName, invocation.Status(), time.Since(start))
		auditLogger.LogToolInvocation(invocation)

		return result, err
	}
}
