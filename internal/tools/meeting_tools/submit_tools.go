package meeting_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetgate/internal/server"
	"github.com/teemow/meetgate/internal/tools/common"
)

// RegisterSubmitTools registers the detail submission tools. Both book the
// meeting once the details are complete.
func RegisterSubmitTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	slotOpts := []mcp.ToolOption{
		mcp.WithString("slotStart",
			mcp.Description("Chosen slot start (RFC3339). Defaults to now when omitted."),
		),
		mcp.WithString("slotEnd",
			mcp.Description("Chosen slot end (RFC3339). Required together with slotStart."),
		),
	}

	detailsOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Submit meeting details for an approved request and book the meeting. Fields: topic, attendees (list or comma-separated), urgency, desiredTimeframe, background, links."),
		mcp.WithString("jobId",
			mcp.Required(),
			mcp.Description("Job ID returned by meeting_start"),
		),
		mcp.WithObject("form",
			mcp.Required(),
			mcp.Description("Meeting details object"),
		),
	}, slotOpts...)
	s.AddTool(mcp.NewTool("meeting_submit_details", detailsOpts...), common.InstrumentedToolHandler("meeting_submit_details", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSubmitDetails(ctx, request, sc)
	}))

	formOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Submit the values of the form issued after approval and book the meeting"),
		mcp.WithString("jobId",
			mcp.Required(),
			mcp.Description("Job ID returned by meeting_start"),
		),
		mcp.WithString("formId",
			mcp.Description("ID of the issued form (formSchema.id)"),
		),
		mcp.WithObject("values",
			mcp.Required(),
			mcp.Description("Form values keyed by field name"),
		),
	}, slotOpts...)
	s.AddTool(mcp.NewTool("meeting_submit_form", formOpts...), common.InstrumentedToolHandler("meeting_submit_form", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSubmitForm(ctx, request, sc)
	}))

	return nil
}

func handleSubmitDetails(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	jobID := common.JobIDFromArgs(args)
	if jobID == "" {
		return mcp.NewToolResultError("jobId is required"), nil
	}
	form, err := common.ObjectArg(args, "form")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slot, err := common.SlotFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	booking, err := sc.Orchestrator().SubmitDetails(ctx, jobID, form, slot)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to schedule meeting: %v", err)), nil
	}
	return common.JSONResult(map[string]any{"ok": true, "event": booking})
}

func handleSubmitForm(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	jobID := common.JobIDFromArgs(args)
	if jobID == "" {
		return mcp.NewToolResultError("jobId is required"), nil
	}
	values, err := common.ObjectArg(args, "values")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slot, err := common.SlotFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	booking, err := sc.Orchestrator().SubmitForm(ctx, jobID, common.StringArg(args, "formId"), values, slot)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to schedule meeting: %v", err)), nil
	}
	return common.JSONResult(map[string]any{"ok": true, "event": booking})
}
