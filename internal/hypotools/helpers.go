// Package hypotools provides MCP tool handlers for the hypothesis graph.
//
// Each tool follows the same shape:
// - A struct holding the mutation.Service, injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() maps arguments onto one Mutation API call
//
// Domain failures come back as tool errors carrying the Result message;
// Handle never returns a Go error for them.
package hypotools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hypograph/hypograph/internal/activity"
	"github.com/hypograph/hypograph/internal/mutation"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// optInt is intArg for fields where absence means "keep".
func optInt(req mcp.CallToolRequest, key string) *int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return nil
	}
	n := int(v)
	return &n
}

func floatArg(req mcp.CallToolRequest, key string) (float64, bool) {
	v, ok := req.GetArguments()[key].(float64)
	return v, ok
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// optString returns nil when key was not sent at all.
func optString(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// idList accepts either a JSON array of strings or a comma separated string.
func idList(req mcp.CallToolRequest, key string) []string {
	var out []string
	switch v := req.GetArguments()[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// actorArg reads the optional acting user.
func actorArg(req mcp.CallToolRequest) activity.Actor {
	return activity.Actor{
		ID:   req.GetString("actor_id", ""),
		Name: req.GetString("actor_name", ""),
	}
}

// withActor appends the optional acting-user arguments shared by every tool
// that writes the activity feed.
func withActor(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append(opts,
		mcp.WithString("actor_id",
			mcp.Description("ID of the user performing the change (optional)"),
		),
		mcp.WithString("actor_name",
			mcp.Description("Display name of the user performing the change (optional)"),
		),
	)
}

// respond renders a Result: failures become tool errors, successes a
// headline followed by the payload as JSON.
func respond[T any](r mutation.Result[T], headline string) (*mcp.CallToolResult, error) {
	if !r.OK {
		return mcp.NewToolResultError(r.Error), nil
	}
	body, err := json.MarshalIndent(r.Data, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(headline + "\n\n" + string(body)), nil
}
