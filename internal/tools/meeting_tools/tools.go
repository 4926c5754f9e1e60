package meeting_tools

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetgate/internal/server"
)

// RegisterMeetingTools registers the meeting request tools with the MCP server.
func RegisterMeetingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := RegisterJobTools(s, sc); err != nil {
		return fmt.Errorf("failed to register job tools: %w", err)
	}
	if err := RegisterSubmitTools(s, sc); err != nil {
		return fmt.Errorf("failed to register submit tools: %w", err)
	}
	if err := RegisterAvailabilityTools(s, sc); err != nil {
		return fmt.Errorf("failed to register availability tools: %w", err)
	}
	return nil
}
