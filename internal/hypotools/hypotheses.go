package hypotools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hypograph/hypograph/internal/mutation"
)

// CreateTool handles the hypo_create MCP tool.
type CreateTool struct {
	svc *mutation.Service
}

// NewCreateTool creates a CreateTool.
func NewCreateTool(svc *mutation.Service) *CreateTool {
	return &CreateTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_create.
func (t *CreateTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_create", withActor(
		mcp.WithDescription(
			"Create a root hypothesis. It is appended after the existing roots. "+
				"Pass parent_id to create it as the last child of an existing hypothesis instead.",
		),
		mcp.WithString("statement",
			mcp.Required(),
			mcp.Description("The hypothesis, as a falsifiable statement"),
		),
		mcp.WithString("description",
			mcp.Description("Optional longer description"),
		),
		mcp.WithNumber("confidence",
			mcp.Description("Initial confidence 0-100 (default 50)"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma separated tags (duplicates are dropped case-insensitively)"),
		),
		mcp.WithString("owner_id",
			mcp.Description("User ID of the owner"),
		),
		mcp.WithString("parent_id",
			mcp.Description("Create as a child of this hypothesis"),
		),
	)...)
}

// Handle processes the hypo_create tool call.
func (t *CreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := mutation.CreateInput{
		Statement:   req.GetString("statement", ""),
		Description: req.GetString("description", ""),
		Confidence:  optInt(req, "confidence"),
		Tags:        req.GetString("tags", ""),
		OwnerID:     req.GetString("owner_id", ""),
		Actor:       actorArg(req),
	}

	if parentID := req.GetString("parent_id", ""); parentID != "" {
		r := t.svc.CreateChildHypothesisAndEdge(ctx, parentID, in)
		headline := ""
		if r.OK {
			headline = fmt.Sprintf("Created child hypothesis %s under %s", r.Data.Hypothesis.ID, parentID)
		}
		return respond(r, headline)
	}

	r := t.svc.CreateHypothesis(ctx, in)
	headline := ""
	if r.OK {
		headline = fmt.Sprintf("Created hypothesis %s", r.Data.ID)
	}
	return respond(r, headline)
}

// ─── UpdateTool ─────────────────────────────────────────────────────────────

// UpdateTool handles the hypo_update MCP tool.
type UpdateTool struct {
	svc *mutation.Service
}

// NewUpdateTool creates an UpdateTool.
func NewUpdateTool(svc *mutation.Service) *UpdateTool {
	return &UpdateTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_update.
func (t *UpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_update", withActor(
		mcp.WithDescription(
			"Edit a hypothesis. Omitted fields keep their value. Setting a confidence different from the "+
				"current one switches the hypothesis to manual mode permanently: evidence stops moving it.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Hypothesis ID"),
		),
		mcp.WithString("statement",
			mcp.Description("New statement (default: unchanged)"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithNumber("confidence",
			mcp.Description("Manual confidence 0-100"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma separated tags, replacing the current set"),
		),
	)...)
}

// Handle processes the hypo_update tool call.
func (t *UpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	statement := req.GetString("statement", "")
	if statement == "" {
		cur := t.svc.GetHypothesis(ctx, id)
		if !cur.OK {
			return mcp.NewToolResultError(cur.Error), nil
		}
		statement = cur.Data.Statement
	}

	r := t.svc.UpdateHypothesis(ctx, id, mutation.UpdateInput{
		Statement:   statement,
		Description: optString(req, "description"),
		Confidence:  optInt(req, "confidence"),
		Tags:        optString(req, "tags"),
		Actor:       actorArg(req),
	})
	return respond(r, fmt.Sprintf("Updated hypothesis %s", id))
}

// ─── GetTool ────────────────────────────────────────────────────────────────

// GetTool handles the hypo_get MCP tool.
type GetTool struct {
	svc *mutation.Service
}

// NewGetTool creates a GetTool.
func NewGetTool(svc *mutation.Service) *GetTool {
	return &GetTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_get.
func (t *GetTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_get",
		mcp.WithDescription("Fetch one hypothesis by ID, including archived ones."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Hypothesis ID"),
		),
	)
}

// Handle processes the hypo_get tool call.
func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	r := t.svc.GetHypothesis(ctx, id)
	headline := ""
	if r.OK {
		headline = fmt.Sprintf("%s (confidence %d, %s)", r.Data.Statement, r.Data.Confidence, r.Data.ConfidenceMode)
	}
	return respond(r, headline)
}

// ─── ArchiveTool ────────────────────────────────────────────────────────────

// ArchiveTool handles the hypo_archive MCP tool.
type ArchiveTool struct {
	svc *mutation.Service
}

// NewArchiveTool creates an ArchiveTool.
func NewArchiveTool(svc *mutation.Service) *ArchiveTool {
	return &ArchiveTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_archive.
func (t *ArchiveTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_archive", withActor(
		mcp.WithDescription("Archive or unarchive a hypothesis. Archived hypotheses disappear from the graph; children are untouched."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Hypothesis ID"),
		),
		mcp.WithBoolean("archived",
			mcp.Description("true to archive (default), false to restore"),
		),
	)...)
}

// Handle processes the hypo_archive tool call.
func (t *ArchiveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	archived := boolArg(req, "archived", true)

	action := "Archived"
	if !archived {
		action = "Restored"
	}
	return respond(t.svc.ArchiveHypothesis(ctx, id, archived, actorArg(req)), fmt.Sprintf("%s hypothesis %s", action, id))
}

// ─── DeleteTool ─────────────────────────────────────────────────────────────

// DeleteTool handles the hypo_delete MCP tool.
type DeleteTool struct {
	svc *mutation.Service
}

// NewDeleteTool creates a DeleteTool.
func NewDeleteTool(svc *mutation.Service) *DeleteTool {
	return &DeleteTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_delete.
func (t *DeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_delete", withActor(
		mcp.WithDescription(
			"Permanently delete a hypothesis with its edges, evidence, refutations, watchers and activity. "+
				"Its children become roots unless they have other parents.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Hypothesis ID"),
		),
	)...)
}

// Handle processes the hypo_delete tool call.
func (t *DeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	r := t.svc.DeleteHypothesis(ctx, id, actorArg(req))
	headline := ""
	if r.OK {
		headline = fmt.Sprintf("Deleted %q", r.Data.Statement)
	}
	return respond(r, headline)
}
