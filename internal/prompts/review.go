// Package prompts implements MCP prompt handlers for the hypothesis graph.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the hypo-review MCP prompt.
// It walks the AI through the graph looking for weakly supported beliefs.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("hypo-review",
		mcp.WithPromptDescription(
			"Review the hypothesis graph: find the beliefs with the least evidence, "+
				"the riskiest assumptions under each goal, and what to test next.",
		),
		mcp.WithArgument("focus",
			mcp.ArgumentDescription("Optional hypothesis ID to review instead of the whole graph"),
		),
	)
}

// Handle processes the hypo-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	focus := ""
	if args := req.Params.Arguments; args != nil {
		focus = args["focus"]
	}

	scope := "the whole graph"
	first := "1. Run `hypo_graph` with outline=true to see every hypothesis and its confidence\n"
	if focus != "" {
		scope = fmt.Sprintf("hypothesis %s and everything below it", focus)
		first = fmt.Sprintf("1. Run `hypo_graph` and locate %s, then run `hypo_activity` with id='%s'\n", focus, focus)
	}

	return &mcp.GetPromptResult{
		Description: "Review hypotheses",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please review " + scope + ".\n\n" +
						first +
						"2. List the hypotheses with no evidence or with confidence between 40 and 60: these are untested\n" +
						"3. Point out manual hypotheses whose evidence disagrees with their pinned confidence\n" +
						"4. For the three riskiest leaves, propose one concrete experiment each\n" +
						"5. Ask me before recording anything with `hypo_add_evidence` or `hypo_add_refutation`",
				),
			},
		},
	}, nil
}
