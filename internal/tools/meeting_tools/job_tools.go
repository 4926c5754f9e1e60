package meeting_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/orchestrator"
	"github.com/teemow/meetgate/internal/server"
	"github.com/teemow/meetgate/internal/tools/batch"
	"github.com/teemow/meetgate/internal/tools/common"
)

// JobView is what the job tools return: the parts of a job a caller acts on.
type JobView struct {
	JobID        string          `json:"jobId"`
	State        job.State       `json:"state"`
	Decision     *job.Decision   `json:"decision,omitempty"`
	Reply        string          `json:"reply,omitempty"`
	FormSchema   *job.FormSchema `json:"formSchema,omitempty"`
	Prefill      map[string]any  `json:"prefill,omitempty"`
	Booking      *job.Booking    `json:"booking,omitempty"`
	Error        string          `json:"error,omitempty"`
	MessageCount int             `json:"messageCount"`
}

func newJobView(j *job.Job, tailSize int) JobView {
	v := JobView{
		JobID:        j.ID,
		State:        j.State,
		Decision:     j.LastDecision,
		FormSchema:   j.FormSchema,
		Booking:      j.Booking,
		Error:        j.Error,
		MessageCount: len(j.Messages),
	}
	if j.FormSchema != nil {
		v.Prefill = orchestrator.Prefill(j, tailSize)
	}
	// Only a reply to the latest user message counts.
	for i := len(j.Messages) - 1; i >= 0; i-- {
		m := j.Messages[i]
		if m.Agent == job.AgentDecision {
			continue
		}
		if m.Agent == job.AgentChat {
			v.Reply = m.Content
		}
		break
	}
	return v
}

// RegisterJobTools registers the conversation tools.
func RegisterJobTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	startTool := mcp.NewTool("meeting_start",
		mcp.WithDescription("Start a new meeting request conversation. Returns the jobId used by the other meeting tools."),
		mcp.WithString("initialMessage",
			mcp.Description("Optional first message from the requester. It is evaluated together with the next message."),
		),
		mcp.WithString("requester",
			mcp.Description("Email address of the person asking for time"),
		),
	)
	s.AddTool(startTool, common.InstrumentedToolHandler("meeting_start", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleStart(ctx, request, sc)
	}))

	messageTool := mcp.NewTool("meeting_message",
		mcp.WithDescription("Send a message from the requester. The whole conversation is re-evaluated; the result tells whether a meeting was approved, what details are still needed and the assistant's reply."),
		mcp.WithString("jobId",
			mcp.Required(),
			mcp.Description("Job ID returned by meeting_start"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The requester's message"),
		),
	)
	s.AddTool(messageTool, common.InstrumentedToolHandler("meeting_message", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleMessage(ctx, request, sc)
	}))

	getTool := mcp.NewTool("meeting_get",
		mcp.WithDescription("Get the current state of a meeting request"),
		mcp.WithString("jobId",
			mcp.Required(),
			mcp.Description("Job ID returned by meeting_start"),
		),
	)
	s.AddTool(getTool, common.InstrumentedToolHandler("meeting_get", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGet(ctx, request, sc)
	}))

	getManyTool := mcp.NewTool("meeting_get_many",
		mcp.WithDescription("Get the current state of several meeting requests at once. Unknown ids are reported per id."),
		mcp.WithArray("jobIds",
			mcp.Required(),
			mcp.Description("Job IDs returned by meeting_start or meeting_list"),
			mcp.WithStringItems(),
		),
	)
	s.AddTool(getManyTool, common.InstrumentedToolHandler("meeting_get_many", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetMany(ctx, request, sc)
	}))

	listTool := mcp.NewTool("meeting_list",
		mcp.WithDescription("List the IDs of stored meeting requests, most recently updated first"),
	)
	s.AddTool(listTool, common.InstrumentedToolHandler("meeting_list", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleList(ctx, request, sc)
	}))

	return nil
}

func handleStart(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	orch := sc.Orchestrator()

	j, err := orch.Start(ctx, orchestrator.StartRequest{
		InitialMessage: common.StringArg(args, "initialMessage"),
		Requester:      common.StringArg(args, "requester"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start meeting request: %v", err)), nil
	}
	return common.JSONResult(newJobView(j, orch.Config().TailSize))
}

func handleMessage(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	orch := sc.Orchestrator()

	jobID := common.JobIDFromArgs(args)
	if jobID == "" {
		return mcp.NewToolResultError("jobId is required"), nil
	}
	content := common.StringArg(args, "content")
	if content == "" {
		return mcp.NewToolResultError("content is required"), nil
	}

	if err := orch.ReceiveMessage(ctx, jobID, content); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to process message: %v", err)), nil
	}
	j, err := orch.Get(ctx, jobID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read meeting request: %v", err)), nil
	}
	return common.JSONResult(newJobView(j, orch.Config().TailSize))
}

func handleGet(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	jobID := common.JobIDFromArgs(request.GetArguments())
	if jobID == "" {
		return mcp.NewToolResultError("jobId is required"), nil
	}
	orch := sc.Orchestrator()
	j, err := orch.Get(ctx, jobID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read meeting request: %v", err)), nil
	}
	return common.JSONResult(newJobView(j, orch.Config().TailSize))
}

func handleGetMany(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	ids, err := batch.ParseIDs(request.GetArguments()["jobIds"], "jobIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	orch := sc.Orchestrator()
	summary := batch.Process(ctx, ids, func(ctx context.Context, id string) (any, error) {
		j, err := orch.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return newJobView(j, orch.Config().TailSize), nil
	})
	return common.JSONResult(summary)
}

func handleList(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	ids, err := sc.Orchestrator().List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list meeting requests: %v", err)), nil
	}
	if ids == nil {
		ids = []string{}
	}
	return common.JSONResult(map[string]any{"jobIds": ids, "count": len(ids)})
}
