package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/teampulse/internal/engine"
	"github.com/HendryAvila/teampulse/internal/progression"
)

// LevelProgressTool handles the level_progress MCP tool.
type LevelProgressTool struct {
	engine *engine.Engine
}

// NewLevelProgressTool creates a LevelProgressTool.
func NewLevelProgressTool(e *engine.Engine) *LevelProgressTool {
	return &LevelProgressTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *LevelProgressTool) Definition() mcp.Tool {
	return mcp.NewTool("level_progress",
		mcp.WithDescription(
			"Show how the team measures against the requirements of its next maturity level "+
				"(shu, ha, ri) and whether its current level is at risk. Read-only.",
		),
		mcp.WithString("team_id",
			mcp.Required(),
			mcp.Description("Team identifier"),
		),
	)
}

// Handle processes the level_progress tool call.
func (t *LevelProgressTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	teamID := strings.TrimSpace(req.GetString("team_id", ""))
	if teamID == "" {
		return mcp.NewToolResultError("'team_id' is required"), nil
	}
	prog, err := t.engine.EvaluateLevelProgress(ctx, teamID)
	if err != nil {
		return errorResult("evaluate level progress", err), nil
	}
	return mcp.NewToolResultText(formatProgress(teamID, prog)), nil
}

func formatProgress(teamID string, p *progression.Progress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Level progress for %s\n\n", teamID)
	fmt.Fprintf(&b, "**Current level:** %s\n", p.CurrentLevel)
	if p.NextLevel == "" {
		b.WriteString("\nThis is the highest level.\n")
	} else {
		fmt.Fprintf(&b, "**Next level:** %s\n\n", p.NextLevel)
		b.WriteString("| Requirement | Current | Required | Met |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, r := range p.Requirements {
			met := "no"
			if r.Met {
				met = "yes"
			}
			fmt.Fprintf(&b, "| %s | %g | %g | %s |\n", r.Label, r.Current, r.Required, met)
		}
		if p.Eligible {
			fmt.Fprintf(&b, "\nAll requirements met: the team can move to %s with level_promote.\n", p.NextLevel)
		}
	}
	if p.Risk != nil {
		fmt.Fprintf(&b, "\n**At risk:** %s\n", p.Risk.Reason)
	}
	writeJSON(&b, p)
	return b.String()
}

// LevelPromoteTool handles the level_promote MCP tool.
type LevelPromoteTool struct {
	engine *engine.Engine
}

// NewLevelPromoteTool creates a LevelPromoteTool.
func NewLevelPromoteTool(e *engine.Engine) *LevelPromoteTool {
	return &LevelPromoteTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *LevelPromoteTool) Definition() mcp.Tool {
	return mcp.NewTool("level_promote",
		mcp.WithDescription(
			"Move the team up one maturity level. Succeeds only when every requirement "+
				"shown by level_progress is met.",
		),
		mcp.WithString("team_id",
			mcp.Required(),
			mcp.Description("Team identifier"),
		),
	)
}

// Handle processes the level_promote tool call.
func (t *LevelPromoteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	teamID := strings.TrimSpace(req.GetString("team_id", ""))
	if teamID == "" {
		return mcp.NewToolResultError("'team_id' is required"), nil
	}
	tm, prog, err := t.engine.PromoteTeam(ctx, teamID)
	switch {
	case errors.Is(err, progression.ErrNotEligible):
		return mcp.NewToolResultError("Not eligible yet.\n\n" + formatProgress(teamID, prog)), nil
	case errors.Is(err, progression.ErrTerminalLevel):
		return mcp.NewToolResultError(fmt.Sprintf("Team %s is already at the highest level.", teamID)), nil
	case errors.Is(err, progression.ErrPlanLimit):
		return mcp.NewToolResultError(fmt.Sprintf("Team %s is eligible, but the free plan holds shu only. Change the plan first.", teamID)), nil
	case err != nil:
		return errorResult("promote team", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("# Promoted\n\nTeam %s is now at level **%s**.\n", tm.ID, tm.Level)), nil
}
