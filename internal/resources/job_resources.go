package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/server"
)

// Resource URIs.
const (
	PolicyURI      = "meetgate://policy"
	JobsURI        = "meetgate://jobs"
	JobURIPrefix   = JobsURI + "/"
	JobURITemplate = JobURIPrefix + "{jobId}"
)

// JobSummary is one entry of the jobs listing.
type JobSummary struct {
	ID        string    `json:"id"`
	State     job.State `json:"state"`
	Requester string    `json:"requester,omitempty"`
	UpdatedAt string    `json:"updatedAt"`
}

// PolicyView is the gatekeeping policy as exposed to clients.
type PolicyView struct {
	Checklist        []string `json:"checklist"`
	RequiredFields   []string `json:"requiredFields"`
	WindowDays       int      `json:"windowDays"`
	SlotDurationMins int      `json:"slotDurationMins"`
	DayStart         string   `json:"dayStart,omitempty"`
	DayEnd           string   `json:"dayEnd,omitempty"`
	MeetingMins      int      `json:"meetingDurationMins"`
}

// RegisterJobResources registers the policy, the jobs listing and the
// per-job record template.
func RegisterJobResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	policyResource := mcp.NewResource(
		PolicyURI,
		"Gatekeeping Policy",
		mcp.WithResourceDescription("The checklist and required details a meeting request is judged against, and the slot window offered"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(policyResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handlePolicy(ctx, request, sc)
	})

	jobsResource := mcp.NewResource(
		JobsURI,
		"Meeting Requests",
		mcp.WithResourceDescription("All stored meeting requests with their state"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(jobsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleJobs(ctx, request, sc)
	})

	jobTemplate := mcp.NewResourceTemplate(
		JobURITemplate,
		"Meeting Request",
		mcp.WithTemplateDescription("The full record of one meeting request: transcript, decision, details and booking"),
		mcp.WithTemplateMIMEType("application/json"),
	)
	s.AddResourceTemplate(jobTemplate, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleJob(ctx, request, sc)
	})

	return nil
}

func handlePolicy(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	cfg := sc.Orchestrator().Config()
	view := PolicyView{
		Checklist:        cfg.Policy.Checklist,
		RequiredFields:   cfg.Policy.RequiredFields,
		WindowDays:       cfg.Availability.WindowDays,
		SlotDurationMins: cfg.Availability.SlotDurationMins,
		DayStart:         cfg.Availability.DayStart,
		DayEnd:           cfg.Availability.DayEnd,
		MeetingMins:      int(cfg.MeetingDuration.Minutes()),
	}
	if view.Checklist == nil {
		view.Checklist = []string{}
	}
	if view.RequiredFields == nil {
		view.RequiredFields = []string{}
	}
	return jsonContents(request.Params.URI, view)
}

func handleJobs(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	orch := sc.Orchestrator()
	ids, err := orch.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list meeting requests: %w", err)
	}

	jobs := make([]JobSummary, 0, len(ids))
	for _, id := range ids {
		j, err := orch.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read meeting request %s: %w", id, err)
		}
		jobs = append(jobs, JobSummary{
			ID:        j.ID,
			State:     j.State,
			Requester: j.Requester,
			UpdatedAt: j.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return jsonContents(request.Params.URI, map[string]any{"jobs": jobs, "count": len(jobs)})
}

func handleJob(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	id := strings.TrimPrefix(request.Params.URI, JobURIPrefix)
	if id == "" || id == request.Params.URI || strings.Contains(id, "/") {
		return nil, fmt.Errorf("invalid meeting request URI: %s", request.Params.URI)
	}
	j, err := sc.Orchestrator().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read meeting request %s: %w", id, err)
	}
	return jsonContents(request.Params.URI, j)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
