package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/teampulse/internal/engine"
	"github.com/HendryAvila/teampulse/internal/team"
)

// TeamRegisterTool handles the team_register MCP tool.
type TeamRegisterTool struct {
	engine *engine.Engine
}

// NewTeamRegisterTool creates a TeamRegisterTool.
func NewTeamRegisterTool(e *engine.Engine) *TeamRegisterTool {
	return &TeamRegisterTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *TeamRegisterTool) Definition() mcp.Tool {
	return mcp.NewTool("team_register",
		mcp.WithDescription(
			"Register a team or update its name and expected size. "+
				"New teams start at level shu on the free plan. "+
				"The expected size drives participation rates; leave it at 0 when unknown.",
		),
		mcp.WithString("team_id",
			mcp.Required(),
			mcp.Description("Stable team identifier"),
		),
		mcp.WithString("name",
			mcp.Description("Display name (default: the team id)"),
		),
		mcp.WithNumber("expected_team_size",
			mcp.Description("Number of people expected to check in (0 = unknown)"),
		),
	)
}

// Handle processes the team_register tool call.
func (t *TeamRegisterTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("team_id", ""))
	if id == "" {
		return mcp.NewToolResultError("'team_id' is required"), nil
	}
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		name = id
	}

	tm, err := t.engine.RegisterTeam(ctx, team.Team{
		ID:               id,
		Name:             name,
		ExpectedTeamSize: intArg(req, "expected_team_size", 0),
	})
	if err != nil {
		return errorResult("register team", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Team %q registered\n\n", tm.Name)
	fmt.Fprintf(&b, "- **Level:** %s\n", tm.Level)
	fmt.Fprintf(&b, "- **Plan:** %s\n", tm.Plan)
	if tm.ExpectedTeamSize > 0 {
		fmt.Fprintf(&b, "- **Expected size:** %d\n", tm.ExpectedTeamSize)
	} else {
		b.WriteString("- **Expected size:** unknown (inferred from check-ins)\n")
	}
	writeJSON(&b, tm)
	return mcp.NewToolResultText(b.String()), nil
}

// TeamSetPlanTool handles the team_set_plan MCP tool.
type TeamSetPlanTool struct {
	engine *engine.Engine
}

// NewTeamSetPlanTool creates a TeamSetPlanTool.
func NewTeamSetPlanTool(e *engine.Engine) *TeamSetPlanTool {
	return &TeamSetPlanTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *TeamSetPlanTool) Definition() mcp.Tool {
	return mcp.NewTool("team_set_plan",
		mcp.WithDescription(
			"Record a billing plan change reported by the billing system. "+
				"Moving to free resets a ha or ri team to shu.",
		),
		mcp.WithString("team_id",
			mcp.Required(),
			mcp.Description("Team identifier"),
		),
		mcp.WithString("plan",
			mcp.Required(),
			mcp.Description("New plan"),
			mcp.Enum(string(team.PlanFree), string(team.PlanTeam), string(team.PlanPro)),
		),
	)
}

// Handle processes the team_set_plan tool call.
func (t *TeamSetPlanTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("team_id", ""))
	if id == "" {
		return mcp.NewToolResultError("'team_id' is required"), nil
	}
	plan := team.Plan(strings.TrimSpace(req.GetString("plan", "")))

	change, err := t.engine.ChangePlan(ctx, id, plan)
	if err != nil {
		return errorResult("change plan", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Plan updated: %s\n\n", change.Team.Plan)
	if change.LevelReset {
		fmt.Fprintf(&b, "Level reset from **%s** to **%s**.\n", change.PreviousLevel, change.Team.Level)
	} else {
		fmt.Fprintf(&b, "Level unchanged: **%s**.\n", change.Team.Level)
	}
	writeJSON(&b, change)
	return mcp.NewToolResultText(b.String()), nil
}
