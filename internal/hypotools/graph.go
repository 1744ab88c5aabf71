package hypotools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hypograph/hypograph/internal/hypothesis"
	"github.com/hypograph/hypograph/internal/mutation"
)

// GraphTool handles the hypo_graph MCP tool.
type GraphTool struct {
	svc *mutation.Service
}

// NewGraphTool creates a GraphTool.
func NewGraphTool(svc *mutation.Service) *GraphTool {
	return &GraphTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_graph.
func (t *GraphTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_graph",
		mcp.WithDescription(
			"Fetch the whole hypothesis graph: every non-archived hypothesis with its evidence, refutations, "+
				"children, parents, owner and watchers. Set outline=true for a compact tree instead of JSON.",
		),
		mcp.WithBoolean("outline",
			mcp.Description("Render an indented outline (default false)"),
		),
	)
}

// Handle processes the hypo_graph tool call.
func (t *GraphTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r := t.svc.GetHypothesesWithRelations(ctx)
	if !r.OK || !boolArg(req, "outline", false) {
		return respond(r, fmt.Sprintf("%d hypotheses", len(r.Data)))
	}
	if len(r.Data) == 0 {
		return mcp.NewToolResultText("The graph is empty. Create a hypothesis with hypo_create."), nil
	}
	return mcp.NewToolResultText(outline(r.Data)), nil
}

// outline renders roots and their descendants as a nested list. A node with
// several parents appears under each of them.
func outline(list []hypothesis.WithRelations) string {
	byID := make(map[string]hypothesis.WithRelations, len(list))
	for _, h := range list {
		byID[h.ID] = h
	}

	var sb strings.Builder
	sb.WriteString("## Hypotheses\n")
	var walk func(id string, depth int, path map[string]bool)
	walk = func(id string, depth int, path map[string]bool) {
		h, ok := byID[id]
		if !ok || path[id] {
			return
		}
		mode := ""
		if h.ConfidenceMode.IsManual() {
			mode = ", manual"
		}
		fmt.Fprintf(&sb, "%s- [%d%s] %s (%s, %d evidence)\n",
			strings.Repeat("  ", depth), h.Confidence, mode, h.Statement, h.ID, len(h.Evidence))
		path[id] = true
		for _, c := range h.Children {
			walk(c.ID, depth+1, path)
		}
		delete(path, id)
	}

	for _, h := range list {
		isRoot := true
		for _, p := range h.Parents {
			if _, visible := byID[p.ID]; visible {
				isRoot = false
				break
			}
		}
		if isRoot {
			walk(h.ID, 0, map[string]bool{})
		}
	}
	return sb.String()
}

// ─── RecalculateTool ────────────────────────────────────────────────────────

// RecalculateTool handles the hypo_recalculate MCP tool.
type RecalculateTool struct {
	svc *mutation.Service
}

// NewRecalculateTool creates a RecalculateTool.
func NewRecalculateTool(svc *mutation.Service) *RecalculateTool {
	return &RecalculateTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_recalculate.
func (t *RecalculateTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_recalculate", withActor(
		mcp.WithDescription(
			"Recompute confidence from evidence. With an id, that hypothesis and its ancestors; "+
				"without, the whole graph from the leaves up. Manual hypotheses are never changed.",
		),
		mcp.WithString("id",
			mcp.Description("Hypothesis ID (empty recalculates everything)"),
		),
	)...)
}

// Handle processes the hypo_recalculate tool call.
func (t *RecalculateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		r := t.svc.RecalculateAllConfidences(ctx)
		headline := ""
		if r.OK {
			headline = fmt.Sprintf("Recalculated %d hypotheses, %d changed", r.Data.Total, r.Data.Updated)
			if r.Data.Cycle {
				headline += " (cycle detected: some hypotheses were skipped)"
			}
		}
		return respond(r, headline)
	}

	r := t.svc.RecalculateConfidence(ctx, id, actorArg(req))
	headline := ""
	if r.OK {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Recalculated %s", id)
		writeChanges(&sb, r.Data.Changes)
		headline = sb.String()
	}
	return respond(r, headline)
}

// ─── ActivityTool ───────────────────────────────────────────────────────────

// ActivityTool handles the hypo_activity MCP tool.
type ActivityTool struct {
	svc *mutation.Service
}

// NewActivityTool creates an ActivityTool.
func NewActivityTool(svc *mutation.Service) *ActivityTool {
	return &ActivityTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_activity.
func (t *ActivityTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_activity",
		mcp.WithDescription("Show the activity feed of a hypothesis, newest first."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Hypothesis ID"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max entries (default: 20)"),
		),
	)
}

// Handle processes the hypo_activity tool call.
func (t *ActivityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	r := t.svc.ListActivity(ctx, id, intArg(req, "limit", 20))
	if !r.OK {
		return mcp.NewToolResultError(r.Error), nil
	}
	if len(r.Data) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No activity for %s", id)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Activity for %s\n\n", id)
	for _, a := range r.Data {
		who := "someone"
		if a.ActorName != nil && *a.ActorName != "" {
			who = *a.ActorName
		}
		fmt.Fprintf(&sb, "- %s **%s** %s: %s\n", a.CreatedAt.Format("2006-01-02 15:04"), a.Type, who, a.Summary)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// ─── LayoutTool ─────────────────────────────────────────────────────────────

// LayoutTool handles the hypo_layout MCP tool.
type LayoutTool struct {
	svc *mutation.Service
}

// NewLayoutTool creates a LayoutTool.
func NewLayoutTool(svc *mutation.Service) *LayoutTool {
	return &LayoutTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_layout.
func (t *LayoutTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_layout",
		mcp.WithDescription("Store the canvas position of a hypothesis."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Hypothesis ID"),
		),
		mcp.WithNumber("x",
			mcp.Required(),
			mcp.Description("Horizontal position"),
		),
		mcp.WithNumber("y",
			mcp.Required(),
			mcp.Description("Vertical position"),
		),
	)
}

// Handle processes the hypo_layout tool call.
func (t *LayoutTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	x, okX := floatArg(req, "x")
	y, okY := floatArg(req, "y")
	if id == "" || !okX || !okY {
		return mcp.NewToolResultError("'id', 'x' and 'y' are required"), nil
	}
	r := t.svc.SetLayout(ctx, id, x, y)
	if !r.OK {
		return mcp.NewToolResultError(r.Error), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Position of %s set to (%g, %g)", id, x, y)), nil
}

// ─── WatchTool ──────────────────────────────────────────────────────────────

// WatchTool handles the hypo_watch MCP tool.
type WatchTool struct {
	svc *mutation.Service
}

// NewWatchTool creates a WatchTool.
func NewWatchTool(svc *mutation.Service) *WatchTool {
	return &WatchTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_watch.
func (t *WatchTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_watch",
		mcp.WithDescription("Subscribe a user to a hypothesis, or unsubscribe with watch=false."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Hypothesis ID"),
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("User ID"),
		),
		mcp.WithString("user_name",
			mcp.Description("Display name, stored for watcher lists"),
		),
		mcp.WithBoolean("watch",
			mcp.Description("false to unsubscribe (default true)"),
		),
	)
}

// Handle processes the hypo_watch tool call.
func (t *WatchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	userID := req.GetString("user_id", "")

	if !boolArg(req, "watch", true) {
		r := t.svc.UnwatchHypothesis(ctx, id, userID)
		if !r.OK {
			return mcp.NewToolResultError(r.Error), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s no longer watches %s", userID, id)), nil
	}

	r := t.svc.WatchHypothesis(ctx, id, hypothesis.User{ID: userID, Name: req.GetString("user_name", "")})
	if !r.OK {
		return mcp.NewToolResultError(r.Error), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s now watches %s", userID, id)), nil
}
