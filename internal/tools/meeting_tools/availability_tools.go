package meeting_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetgate/internal/server"
	"github.com/teemow/meetgate/internal/tools/common"
)

// RegisterAvailabilityTools registers the slot preview tool.
func RegisterAvailabilityTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	suggestTool := mcp.NewTool("meeting_suggest_slots",
		mcp.WithDescription("Suggest free meeting slots from the owner's calendar within working hours"),
		mcp.WithNumber("windowDays",
			mcp.Description("Number of days to look ahead (default from configuration)"),
		),
		mcp.WithNumber("slotDurationMins",
			mcp.Description("Slot length in minutes (default from configuration)"),
		),
		mcp.WithString("dayStart",
			mcp.Description("Start of the working day, HH:MM"),
		),
		mcp.WithString("dayEnd",
			mcp.Description("End of the working day, HH:MM"),
		),
		mcp.WithBoolean("ownerOnly",
			mcp.Description("Only consider the owner's calendar, ignoring the secondary calendar"),
		),
	)
	s.AddTool(suggestTool, common.InstrumentedToolHandler("meeting_suggest_slots", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSuggestSlots(ctx, request, sc)
	}))
	return nil
}

func handleSuggestSlots(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	provider := sc.Availability()
	if provider == nil {
		return mcp.NewToolResultError("no calendar provider is configured"), nil
	}

	args := request.GetArguments()
	req := sc.Orchestrator().Config().Availability

	var err error
	if req.WindowDays, err = common.IntArg(args, "windowDays", req.WindowDays); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.SlotDurationMins, err = common.IntArg(args, "slotDurationMins", req.SlotDurationMins); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if v := common.StringArg(args, "dayStart"); v != "" {
		req.DayStart = v
	}
	if v := common.StringArg(args, "dayEnd"); v != "" {
		req.DayEnd = v
	}
	if v, ok := args["ownerOnly"].(bool); ok {
		req.OwnerOnly = v
	}

	slots, err := provider.Suggest(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to suggest slots: %v", err)), nil
	}
	if len(slots) == 0 {
		return mcp.NewToolResultText("No free slots found in the requested window."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d free slot(s):\n\n", len(slots))
	for i, slot := range slots {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, slot.Start.Format(time.RFC3339), slot.End.Format(time.RFC3339))
	}
	return mcp.NewToolResultText(b.String()), nil
}
