package common

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/meetgate/internal/job"
)

// StringArg returns the trimmed string argument name, or "" when it is
// absent or not a string.
func StringArg(args map[string]interface{}, name string) string {
	v, _ := args[name].(string)
	return strings.TrimSpace(v)
}

// JobIDFromArgs returns the "jobId" argument.
func JobIDFromArgs(args map[string]interface{}) string {
	return StringArg(args, "jobId")
}

// IntArg returns a numeric argument as an int. JSON numbers arrive as
// float64; def is returned when the argument is absent.
func IntArg(args map[string]interface{}, name string, def int) (int, error) {
	switch v := args[name].(type) {
	case nil:
		return def, nil
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}
}

// ObjectArg returns an object argument. Clients that cannot send nested
// objects may pass it as a JSON string instead.
func ObjectArg(args map[string]interface{}, name string) (map[string]any, error) {
	switch v := args[name].(type) {
	case map[string]any:
		return v, nil
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("%s must be an object or a JSON object string: %w", name, err)
		}
		return m, nil
	case nil:
		return nil, fmt.Errorf("%s is required", name)
	default:
		return nil, fmt.Errorf("%s must be an object", name)
	}
}

// SlotFromArgs reads the optional slotStart/slotEnd pair (RFC3339). It
// returns nil when neither is given.
func SlotFromArgs(args map[string]interface{}) (*job.Slot, error) {
	startStr, endStr := StringArg(args, "slotStart"), StringArg(args, "slotEnd")
	if startStr == "" && endStr == "" {
		return nil, nil
	}
	if startStr == "" || endStr == "" {
		return nil, fmt.Errorf("slotStart and slotEnd must be given together")
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return nil, fmt.Errorf("invalid slotStart format: %w", err)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return nil, fmt.Errorf("invalid slotEnd format: %w", err)
	}
	return &job.Slot{Start: start, End: end}, nil
}

// JSONResult renders v as an indented JSON text result.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
