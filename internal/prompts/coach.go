// Package prompts implements the MCP prompts of the teampulse server.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to run a specific sequence of tools.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// CoachPrompt handles the team-coach MCP prompt.
// It has the host AI read the engine output for one team and explain it
// without inventing numbers of its own.
type CoachPrompt struct{}

// NewCoachPrompt creates a CoachPrompt.
func NewCoachPrompt() *CoachPrompt {
	return &CoachPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *CoachPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("team-coach",
		mcp.WithPromptDescription(
			"Coach a team through its current health: vibe, latest Way-of-Work session, "+
				"level progress and what to try next.",
		),
		mcp.WithArgument("team_id",
			mcp.ArgumentDescription("Team to coach"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("session_id",
			mcp.ArgumentDescription("Session to discuss (optional; default: skip session detail)"),
		),
	)
}

// Handle processes the team-coach prompt request.
func (p *CoachPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	teamID := req.Params.Arguments["team_id"]
	if teamID == "" {
		return nil, fmt.Errorf("team_id is required")
	}
	sessionStep := ""
	if id := req.Params.Arguments["session_id"]; id != "" {
		sessionStep = fmt.Sprintf("3. Run `wow_synthesis` with session_id %q and walk through strengths, tensions and the focus area\n", id)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Coaching for team %s", teamID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Coach team %[1]q using teampulse.\n\n"+
						"1. Run `team_signal` with team_id %[1]q and summarize where the team stands\n"+
						"2. Run `vibe_metrics` with team_id %[1]q and explain the trend, momentum and participation\n"+
						"%[2]s"+
						"4. Run `level_progress` with team_id %[1]q and say which requirement is closest to being met\n"+
						"5. Propose the suggested experiment as one concrete next step\n\n"+
						"Rules:\n"+
						"- Use only numbers the tools returned. Never compute or estimate a score yourself\n"+
						"- When a value is n/a or collecting, say there is not enough data yet; never treat it as zero\n"+
						"- Where the synthesis says views differ, suggest a conversation before any action\n"+
						"- Never speculate about individual people; every response is anonymous",
					teamID, sessionStep,
				)),
			},
		},
	}, nil
}
