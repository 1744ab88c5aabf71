package hypotools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hypograph/hypograph/internal/cascade"
	"github.com/hypograph/hypograph/internal/mutation"
)

// evidenceHeadline summarizes an evidence result: the stored classification
// and every confidence the cascade moved.
func evidenceHeadline(verb string, r mutation.Result[*mutation.EvidenceResult]) string {
	if !r.OK {
		return ""
	}
	var sb strings.Builder
	ev := r.Data.Evidence
	fmt.Fprintf(&sb, "%s evidence %s: %s (strength %d)", verb, ev.ID, ev.Direction, ev.Strength)
	if r.Data.Reasoning != "" {
		fmt.Fprintf(&sb, "\nReasoning: %s", r.Data.Reasoning)
	}
	writeChanges(&sb, r.Data.Changes)
	return sb.String()
}

func writeChanges(sb *strings.Builder, changes []cascade.Change) {
	if len(changes) == 0 {
		sb.WriteString("\nNo confidence changed.")
		return
	}
	sb.WriteString("\nConfidence changes:")
	for _, c := range changes {
		fmt.Fprintf(sb, "\n- %s: %d -> %d", c.ID, c.Old, c.New)
	}
}

// AddEvidenceTool handles the hypo_add_evidence and hypo_add_challenge MCP
// tools. A challenge is always stored as refuting.
type AddEvidenceTool struct {
	svc       *mutation.Service
	challenge bool
}

// NewAddEvidenceTool creates the hypo_add_evidence tool.
func NewAddEvidenceTool(svc *mutation.Service) *AddEvidenceTool {
	return &AddEvidenceTool{svc: svc}
}

// NewAddChallengeTool creates the hypo_add_challenge tool.
func NewAddChallengeTool(svc *mutation.Service) *AddEvidenceTool {
	return &AddEvidenceTool{svc: svc, challenge: true}
}

// Definition returns the MCP tool definition.
func (t *AddEvidenceTool) Definition() mcp.Tool {
	name := "hypo_add_evidence"
	desc := "Attach evidence to a hypothesis. Direction and strength are inferred from the text; " +
		"the confidence of the hypothesis and every ancestor is then recomputed. " +
		"Manual hypotheses store the evidence as SUPPORTS/3 without moving."
	if t.challenge {
		name = "hypo_add_challenge"
		desc = "Attach counter evidence to a hypothesis. It is always stored as refuting; " +
			"confidence is recomputed up the graph like hypo_add_evidence."
	}
	return mcp.NewTool(name, withActor(
		mcp.WithDescription(desc),
		mcp.WithString("hypothesis_id",
			mcp.Required(),
			mcp.Description("Hypothesis ID"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The evidence in plain language"),
		),
		mcp.WithString("source_url",
			mcp.Description("Where the evidence came from (interview notes, report, dashboard)"),
		),
		mcp.WithNumber("quality",
			mcp.Description("Reliability of the source from 1 to 5 (default: 3)"),
		),
	)...)
}

// Handle processes the tool call.
func (t *AddEvidenceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("hypothesis_id", "")
	if id == "" {
		return mcp.NewToolResultError("'hypothesis_id' is required"), nil
	}
	text := req.GetString("text", "")

	opts := []mutation.EvidenceOption{
		mutation.WithSourceURL(req.GetString("source_url", "")),
		mutation.WithQuality(intArg(req, "quality", 0)),
	}

	var r mutation.Result[*mutation.EvidenceResult]
	if t.challenge {
		r = t.svc.AddChallengeSimple(ctx, id, text, actorArg(req), opts...)
	} else {
		r = t.svc.AddEvidenceSimple(ctx, id, text, actorArg(req), opts...)
	}
	return respond(r, evidenceHeadline("Added", r))
}

// ─── UpdateEvidenceTool ─────────────────────────────────────────────────────

// UpdateEvidenceTool handles the hypo_update_evidence MCP tool.
type UpdateEvidenceTool struct {
	svc *mutation.Service
}

// NewUpdateEvidenceTool creates an UpdateEvidenceTool.
func NewUpdateEvidenceTool(svc *mutation.Service) *UpdateEvidenceTool {
	return &UpdateEvidenceTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_update_evidence.
func (t *UpdateEvidenceTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_update_evidence", withActor(
		mcp.WithDescription("Rewrite the text of an evidence item. It is reclassified and confidence recomputed."),
		mcp.WithString("evidence_id",
			mcp.Required(),
			mcp.Description("Evidence ID"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("New evidence text"),
		),
	)...)
}

// Handle processes the hypo_update_evidence tool call.
func (t *UpdateEvidenceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("evidence_id", "")
	if id == "" {
		return mcp.NewToolResultError("'evidence_id' is required"), nil
	}
	r := t.svc.UpdateEvidence(ctx, id, req.GetString("text", ""), actorArg(req))
	return respond(r, evidenceHeadline("Updated", r))
}

// ─── DeleteEvidenceTool ─────────────────────────────────────────────────────

// DeleteEvidenceTool handles the hypo_delete_evidence MCP tool.
type DeleteEvidenceTool struct {
	svc *mutation.Service
}

// NewDeleteEvidenceTool creates a DeleteEvidenceTool.
func NewDeleteEvidenceTool(svc *mutation.Service) *DeleteEvidenceTool {
	return &DeleteEvidenceTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_delete_evidence.
func (t *DeleteEvidenceTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_delete_evidence", withActor(
		mcp.WithDescription("Remove an evidence item and recompute confidence up the graph."),
		mcp.WithString("evidence_id",
			mcp.Required(),
			mcp.Description("Evidence ID"),
		),
	)...)
}

// Handle processes the hypo_delete_evidence tool call.
func (t *DeleteEvidenceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("evidence_id", "")
	if id == "" {
		return mcp.NewToolResultError("'evidence_id' is required"), nil
	}
	r := t.svc.DeleteEvidence(ctx, id, actorArg(req))
	return respond(r, evidenceHeadline("Deleted", r))
}

// ─── AddRefutationTool ──────────────────────────────────────────────────────

// AddRefutationTool handles the hypo_add_refutation MCP tool.
type AddRefutationTool struct {
	svc *mutation.Service
}

// NewAddRefutationTool creates an AddRefutationTool.
func NewAddRefutationTool(svc *mutation.Service) *AddRefutationTool {
	return &AddRefutationTool{svc: svc}
}

// Definition returns the MCP tool definition for hypo_add_refutation.
func (t *AddRefutationTool) Definition() mcp.Tool {
	return mcp.NewTool("hypo_add_refutation", withActor(
		mcp.WithDescription(
			"Record a structured challenge to a hypothesis: an alternative explanation, a confound or a test "+
				"that could disprove it. Refutations do not change confidence.",
		),
		mcp.WithString("hypothesis_id",
			mcp.Required(),
			mcp.Description("Hypothesis ID"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Kind of challenge (e.g. ALTERNATIVE, CONFOUND, COUNTEREXAMPLE)"),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("What the challenge claims"),
		),
		mcp.WithString("proposed_test",
			mcp.Description("How the challenge could be tested"),
		),
		mcp.WithString("impact",
			mcp.Description("What follows if the challenge holds"),
		),
	)...)
}

// Handle processes the hypo_add_refutation tool call.
func (t *AddRefutationTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("hypothesis_id", "")
	if id == "" {
		return mcp.NewToolResultError("'hypothesis_id' is required"), nil
	}
	r := t.svc.AddRefutation(ctx, id, mutation.RefutationInput{
		Type:         req.GetString("type", ""),
		Summary:      req.GetString("summary", ""),
		ProposedTest: req.GetString("proposed_test", ""),
		Impact:       req.GetString("impact", ""),
	}, actorArg(req))
	return respond(r, fmt.Sprintf("Refutation recorded on %s", id))
}
