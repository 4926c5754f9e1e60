package batch

import (
	"context"
	"fmt"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome for one job id in a batch.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Summary aggregates the results of a batch.
type Summary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseIDs accepts a single id or an array of ids, as MCP clients send
// either for list parameters. Duplicates are dropped, order is kept.
func ParseIDs(param any, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var ids []string
	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		ids = []string{v}
	case []string:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		for i, s := range v {
			if s == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
		}
		ids = v
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if s == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			ids = append(ids, s)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique, nil
}

// Process runs fn for each id in order. A failure is recorded in its Result
// and does not stop the batch; a cancelled ctx fails the remaining ids.
func Process(ctx context.Context, ids []string, fn func(ctx context.Context, id string) (any, error)) Summary {
	s := Summary{Total: len(ids), Results: make([]Result, 0, len(ids))}
	for _, id := range ids {
		var (
			res any
			err = ctx.Err()
		)
		if err == nil {
			res, err = fn(ctx, id)
		}

		if err != nil {
			s.Failed++
			s.Results = append(s.Results, Result{ID: id, Status: StatusError, Error: err.Error()})
			continue
		}
		s.Successful++
		s.Results = append(s.Results, Result{ID: id, Status: StatusSuccess, Result: res})
	}
	return s
}
