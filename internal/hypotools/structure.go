package hypotools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hypograph/hypograph/internal/mutation"
)

// MoveTool handles the hypo_move MCP tool.
type MoveTool struct {
	svc *mutation.Service
}

// NewMoveTool creates a MoveTool.
func NewMoveTool(svc *mutation.Service) *MoveTool {
	return &MoveTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_move.
func (t *MoveTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_move", withActor(
		mcp.WithDescription(
			"Move a hypothesis under a new parent. Every existing parent link is removed. "+
				"Use hypo_link to add a second parent instead.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Hypothesis to move"),
		),
		mcp.WithString("parent_id",
			mcp.Required(),
			mcp.Description("New parent"),
		),
	)...)
}

// Handle processes the hypo_move tool call.
func (t *MoveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	parentID := req.GetString("parent_id", "")
	if id == "" || parentID == "" {
		return mcp.NewToolResultError("'id' and 'parent_id' are required"), nil
	}
	return respond(t.svc.MoveHypothesisToParent(ctx, id, parentID, actorArg(req)),
		fmt.Sprintf("Moved %s under %s", id, parentID))
}

// ─── LinkTool ───────────────────────────────────────────────────────────────

// LinkTool handles the hypo_link MCP tool.
type LinkTool struct {
	svc *mutation.Service
}

// NewLinkTool creates a LinkTool.
func NewLinkTool(svc *mutation.Service) *LinkTool {
	return &LinkTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_link.
func (t *LinkTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_link", withActor(
		mcp.WithDescription(
			"Add a parent -> child link between existing hypotheses, keeping the child's other parents. "+
				"With an empty parent_id the child is detached from all parents and becomes a root.",
		),
		mcp.WithString("child_id",
			mcp.Required(),
			mcp.Description("Hypothesis that becomes the child"),
		),
		mcp.WithString("parent_id",
			mcp.Description("Parent hypothesis, or empty to detach"),
		),
	)...)
}

// Handle processes the hypo_link tool call.
func (t *LinkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	childID := req.GetString("child_id", "")
	if childID == "" {
		return mcp.NewToolResultError("'child_id' is required"), nil
	}
	parentID := req.GetString("parent_id", "")

	headline := fmt.Sprintf("Linked %s under %s", childID, parentID)
	if parentID == "" {
		headline = fmt.Sprintf("Detached %s from all parents", childID)
	}
	return respond(t.svc.LinkExistingHypothesis(ctx, parentID, childID, actorArg(req)), headline)
}

// ─── ReorderTool ────────────────────────────────────────────────────────────

// ReorderTool handles the hypo_reorder MCP tool.
type ReorderTool struct {
	svc *mutation.Service
}

// NewReorderTool creates a ReorderTool.
func NewReorderTool(svc *mutation.Service) *ReorderTool {
	return &ReorderTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_reorder.
func (t *ReorderTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_reorder",
		mcp.WithDescription(
			"Set the display order of siblings. Each listed hypothesis gets its position as order. "+
				"Without parent_id the IDs are roots.",
		),
		mcp.WithString("ordered_ids",
			mcp.Required(),
			mcp.Description("Comma separated hypothesis IDs in the desired order"),
		),
		mcp.WithString("parent_id",
			mcp.Description("Parent whose children are reordered (empty for roots)"),
		),
	)
}

// Handle processes the hypo_reorder tool call.
func (t *ReorderTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := idList(req, "ordered_ids")
	if len(ids) == 0 {
		return mcp.NewToolResultError("'ordered_ids' is required"), nil
	}
	return respond(t.svc.ReorderHypotheses(ctx, ids, req.GetString("parent_id", "")),
		fmt.Sprintf("Reordered %d hypotheses", len(ids)))
}

// ─── AncestorsTool ──────────────────────────────────────────────────────────

// AncestorsTool handles the hypo_ancestors MCP tool.
type AncestorsTool struct {
	svc *mutation.Service
}

// NewAncestorsTool creates an AncestorsTool.
func NewAncestorsTool(svc *mutation.Service) *AncestorsTool {
	return &AncestorsTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_ancestors.
func (t *AncestorsTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_ancestors",
		mcp.WithDescription("List every hypothesis above the given one, nearest first."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Hypothesis ID"),
		),
	)
}

// Handle processes the hypo_ancestors tool call.
func (t *AncestorsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	r := t.svc.GetAncestorIDs(ctx, id)
	if !r.OK {
		return mcp.NewToolResultError(r.Error), nil
	}
	if len(r.Data) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("%s is a root: no ancestors", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("## Ancestors of %s\n\n- %s\n", id, strings.Join(r.Data, "\n- "))), nil
}
