package hypotools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hypograph/hypograph/internal/mutation"
)

// CompanyContextTool handles the hypo_company_context MCP tool.
type CompanyContextTool struct {
	svc *mutation.Service
}

// NewCompanyContextTool creates a CompanyContextTool.
func NewCompanyContextTool(svc *mutation.Service) *CompanyContextTool {
	return &CompanyContextTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_company_context.
func (t *CompanyContextTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_company_context",
		mcp.WithDescription(
			"Read or replace the organization description given to the evidence classifier. "+
				"Call without 'text' to read it.",
		),
		mcp.WithString("text",
			mcp.Description("New description (what the company does, who its customers are)"),
		),
	)
}

// Handle processes the hypo_company_context tool call.
func (t *CompanyContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if text := optString(req, "text"); text != nil {
		r := t.svc.SetCompanyContext(ctx, *text)
		if !r.OK {
			return mcp.NewToolResultError(r.Error), nil
		}
		return mcp.NewToolResultText("Company context saved."), nil
	}

	r := t.svc.CompanyContext(ctx)
	if !r.OK {
		return mcp.NewToolResultError(r.Error), nil
	}
	if r.Data == "" {
		return mcp.NewToolResultText("No company context set."), nil
	}
	return mcp.NewToolResultText("## Company context\n\n" + r.Data), nil
}

// ─── InsightsTool ───────────────────────────────────────────────────────────

// InsightsTool handles the hypo_insights MCP tool: the cached executive
// summary and validation suggestions of a hypothesis.
type InsightsTool struct {
	svc *mutation.Service
}

// NewInsightsTool creates an InsightsTool.
func NewInsightsTool(svc *mutation.Service) *InsightsTool {
	return &InsightsTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_insights.
func (t *InsightsTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_insights",
		mcp.WithDescription(
			"Store generated text for a hypothesis, or check whether its executive summary is stale. "+
				"An executive summary is stale once the hypothesis or anything below it changed after it was written. "+
				"Validation suggestions are cleared automatically when the statement or description change.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Hypothesis ID"),
		),
		mcp.WithString("exec_summary",
			mcp.Description("Executive summary to cache"),
		),
		mcp.WithString("validation_suggestions",
			mcp.Description("Validation suggestions to cache"),
		),
	)
}

// Handle processes the hypo_insights tool call.
func (t *InsightsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	if v := req.GetString("exec_summary", ""); v != "" {
		if r := t.svc.SetExecSummary(ctx, id, v); !r.OK {
			return mcp.NewToolResultError(r.Error), nil
		}
	}
	if v := req.GetString("validation_suggestions", ""); v != "" {
		if r := t.svc.SetValidationSuggestions(ctx, id, v); !r.OK {
			return mcp.NewToolResultError(r.Error), nil
		}
	}

	stale := t.svc.IsExecSummaryStale(ctx, id)
	if !stale.OK {
		return mcp.NewToolResultError(stale.Error), nil
	}
	state := "fresh"
	if stale.Data {
		state = "stale"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Executive summary of %s is %s", id, state)), nil
}
