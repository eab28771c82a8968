package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/teampulse/internal/engine"
	"github.com/HendryAvila/teampulse/internal/signal"
)

// TeamSignalTool handles the team_signal MCP tool.
type TeamSignalTool struct {
	engine *engine.Engine
}

// NewTeamSignalTool creates a TeamSignalTool.
func NewTeamSignalTool(e *engine.Engine) *TeamSignalTool {
	return &TeamSignalTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *TeamSignalTool) Definition() mcp.Tool {
	return mcp.NewTool("team_signal",
		mcp.WithDescription(
			"Blend the team's last-7-days vibe with the score of its most recent scored session "+
				"into one dashboard signal. Either side may be missing.",
		),
		mcp.WithString("team_id",
			mcp.Required(),
			mcp.Description("Team identifier"),
		),
	)
}

// Handle processes the team_signal tool call.
func (t *TeamSignalTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	teamID := strings.TrimSpace(req.GetString("team_id", ""))
	if teamID == "" {
		return mcp.NewToolResultError("'team_id' is required"), nil
	}
	s, err := t.engine.TeamSignal(ctx, teamID)
	if err != nil {
		return errorResult("compute team signal", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Signal for %s\n\n", teamID)
	fmt.Fprintf(&b, "- **Vibe (7 days):** %s\n", fmtScore(s.Vibe))
	fmt.Fprintf(&b, "- **Way of Work:** %s\n", fmtScore(s.WoW))
	writeCombined(&b, s.Combined)
	writeJSON(&b, s)
	return mcp.NewToolResultText(b.String()), nil
}

// CombineSignalTool handles the combine_signal MCP tool.
type CombineSignalTool struct {
	engine *engine.Engine
}

// NewCombineSignalTool creates a CombineSignalTool.
func NewCombineSignalTool(e *engine.Engine) *CombineSignalTool {
	return &CombineSignalTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *CombineSignalTool) Definition() mcp.Tool {
	return mcp.NewTool("combine_signal",
		mcp.WithDescription(
			"Blend a vibe score and a Way-of-Work score (both optional, 1-5) with the configured weights.",
		),
		mcp.WithNumber("vibe",
			mcp.Description("Vibe score; omit when unknown"),
		),
		mcp.WithNumber("wow",
			mcp.Description("Way-of-Work score; omit when unknown"),
		),
	)
}

// Handle processes the combine_signal tool call.
func (t *CombineSignalTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c := t.engine.CombineSignal(floatPtrArg(req, "vibe"), floatPtrArg(req, "wow"))
	var b strings.Builder
	writeCombined(&b, c)
	writeJSON(&b, c)
	return mcp.NewToolResultText(b.String()), nil
}

func writeCombined(b *strings.Builder, c signal.Combined) {
	if c.Value == nil {
		b.WriteString("- **Combined:** n/a (no data yet)\n")
		return
	}
	fmt.Fprintf(b, "- **Combined:** %.2f (%s, source: %s)\n", *c.Value, c.Zone, c.Source)
	if c.NeedsAttention {
		b.WriteString("- **Needs attention**\n")
	}
}

// FleetHealthTool handles the fleet_health MCP tool.
type FleetHealthTool struct {
	engine *engine.Engine
}

// NewFleetHealthTool creates a FleetHealthTool.
func NewFleetHealthTool(e *engine.Engine) *FleetHealthTool {
	return &FleetHealthTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *FleetHealthTool) Definition() mcp.Tool {
	return mcp.NewTool("fleet_health",
		mcp.WithDescription(
			"Evaluate many teams at once: week vibe, level progress and combined signal per team. "+
				"A team that fails is reported in its own row and does not stop the others.",
		),
		mcp.WithArray("team_ids",
			mcp.Description("Teams to evaluate (default: every registered team)"),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the fleet_health tool call.
func (t *FleetHealthTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, err := t.engine.EvaluateFleet(ctx, stringsArg(req, "team_ids"))
	if err != nil {
		return errorResult("evaluate fleet", err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No teams registered yet."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Fleet health (%d teams)\n\n", len(results))
	b.WriteString("| Team | Week vibe | Level | Combined | Attention |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, h := range results {
		if h.Error != "" {
			fmt.Fprintf(&b, "| %s | error: %s | | | |\n", h.TeamID, h.Error)
			continue
		}
		attention := ""
		if h.Signal.Combined.NeedsAttention {
			attention = "yes"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			h.TeamID, fmtScore(h.Metrics.WeekVibe.Value), h.Progress.CurrentLevel,
			fmtScore(h.Signal.Combined.Value), attention)
	}
	writeJSON(&b, results)
	return mcp.NewToolResultText(b.String()), nil
}
