package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ChallengePrompt handles the hypo-challenge MCP prompt.
// It asks the AI to argue against one hypothesis.
type ChallengePrompt struct{}

// NewChallengePrompt creates a ChallengePrompt.
func NewChallengePrompt() *ChallengePrompt {
	return &ChallengePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ChallengePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("hypo-challenge",
		mcp.WithPromptDescription(
			"Play devil's advocate against a hypothesis: alternative explanations, "+
				"confounds and the cheapest test that could prove it wrong.",
		),
		mcp.WithArgument("id",
			mcp.ArgumentDescription("Hypothesis ID to challenge"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the hypo-challenge prompt request.
func (p *ChallengePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := ""
	if args := req.Params.Arguments; args != nil {
		id = args["id"]
	}
	if id == "" {
		return nil, fmt.Errorf("argument 'id' is required")
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Challenge hypothesis %s", id),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Challenge hypothesis %s.\n\n"+
						"1. Run `hypo_get` with id='%s' and read its evidence in `hypo_graph`\n"+
						"2. Give me the strongest alternative explanation for that evidence\n"+
						"3. Name any confound that could produce the same signal\n"+
						"4. Propose the cheapest test that would refute it\n"+
						"5. If I agree, record each point with `hypo_add_refutation` (types ALTERNATIVE, CONFOUND, TEST)",
					id, id,
				)),
			},
		},
	}, nil
}
