package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/teampulse/internal/engine"
	"github.com/HendryAvila/teampulse/internal/vibe"
)

// VibeCheckinTool handles the vibe_checkin MCP tool.
type VibeCheckinTool struct {
	engine *engine.Engine
}

// NewVibeCheckinTool creates a VibeCheckinTool.
func NewVibeCheckinTool(e *engine.Engine) *VibeCheckinTool {
	return &VibeCheckinTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *VibeCheckinTool) Definition() mcp.Tool {
	return mcp.NewTool("vibe_checkin",
		mcp.WithDescription(
			"Record one anonymous daily mood check-in (1-5). "+
				"The device id only suppresses a second check-in on the same day; it is never shown.",
		),
		mcp.WithString("team_id",
			mcp.Required(),
			mcp.Description("Team identifier"),
		),
		mcp.WithString("device_id",
			mcp.Required(),
			mcp.Description("Locally generated device identifier"),
		),
		mcp.WithNumber("score",
			mcp.Required(),
			mcp.Description("Whole-number mood score from 1 (rough) to 5 (great)"),
		),
		mcp.WithString("date",
			mcp.Description("Calendar day YYYY-MM-DD (default: today, UTC)"),
		),
	)
}

// Handle processes the vibe_checkin tool call.
func (t *VibeCheckinTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	teamID := strings.TrimSpace(req.GetString("team_id", ""))
	deviceID := strings.TrimSpace(req.GetString("device_id", ""))
	if teamID == "" || deviceID == "" {
		return mcp.NewToolResultError("'team_id' and 'device_id' are required"), nil
	}

	var day time.Time
	if raw := strings.TrimSpace(req.GetString("date", "")); raw != "" {
		d, err := time.Parse(vibe.DateLayout, raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid date %q: want YYYY-MM-DD", raw)), nil
		}
		day = d
	}

	score, err := scoreArg(req, "score")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	err = t.engine.RecordCheckin(ctx, teamID, deviceID, score, day)
	if errors.Is(err, vibe.ErrDuplicateCheckin) {
		return mcp.NewToolResultText("Thanks! You already checked in today; see you tomorrow."), nil
	}
	if err != nil {
		return errorResult("record check-in", err), nil
	}
	return mcp.NewToolResultText("Thanks for checking in."), nil
}

// VibeMetricsTool handles the vibe_metrics MCP tool.
type VibeMetricsTool struct {
	engine *engine.Engine
}

// NewVibeMetricsTool creates a VibeMetricsTool.
func NewVibeMetricsTool(e *engine.Engine) *VibeMetricsTool {
	return &VibeMetricsTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *VibeMetricsTool) Definition() mcp.Tool {
	return mcp.NewTool("vibe_metrics",
		mcp.WithDescription(
			"Compute the team's vibe snapshot: live, day and week vibe with trend and confidence, "+
				"momentum, participation, day and week state, and data maturity. "+
				"Scores below the minimum number of check-ins are reported as n/a, never as zero.",
		),
		mcp.WithString("team_id",
			mcp.Required(),
			mcp.Description("Team identifier"),
		),
		mcp.WithNumber("window_days",
			mcp.Description(fmt.Sprintf("History window in days (default %d, min %d, max %d)",
				engine.DefaultWindowDays, engine.MinWindowDays, engine.MaxWindowDays)),
		),
	)
}

// Handle processes the vibe_metrics tool call.
func (t *VibeMetricsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	teamID := strings.TrimSpace(req.GetString("team_id", ""))
	if teamID == "" {
		return mcp.NewToolResultError("'team_id' is required"), nil
	}

	m, err := t.engine.ComputeVibeMetrics(ctx, teamID, intArg(req, "window_days", 0))
	if err != nil {
		return errorResult("compute vibe metrics", err), nil
	}
	return mcp.NewToolResultText(formatMetrics(teamID, m)), nil
}

func formatMetrics(teamID string, m *vibe.TeamMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Vibe for %s (%s)\n\n", teamID, m.ComputedFor)
	b.WriteString("| Window | Score | Zone | Trend | Confidence | Check-ins |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, row := range []struct {
		name string
		m    vibe.Metric
	}{
		{"Live (today)", m.LiveVibe},
		{"Yesterday", m.DayVibe},
		{"Last 7 days", m.WeekVibe},
		{"Previous 7 days", m.PreviousWeekVibe},
	} {
		zone := string(row.m.Zone)
		if zone == "" {
			zone = "-"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %d |\n",
			row.name, fmtScore(row.m.Value), zone, row.m.Trend, row.m.Confidence, row.m.Count)
	}

	fmt.Fprintf(&b, "\n**Momentum:** %s (%+.2f/day over %d days)\n",
		m.Momentum.Direction, m.Momentum.Velocity, m.Momentum.DaysTrending)
	fmt.Fprintf(&b, "**Participation today:** %d of %d (%d%%), %s\n",
		m.Participation.Today, m.Participation.TeamSize, m.Participation.Rate, m.Participation.Trend)
	fmt.Fprintf(&b, "**Day state:** %s · **Week state:** %s (%d days)\n",
		m.DayState, m.WeekState, m.UniqueDaysThisWeek)
	fmt.Fprintf(&b, "**Maturity:** %s (%d days, %d%% consistent)\n",
		m.Maturity.Level, m.Maturity.DaysOfData, m.Maturity.ConsistencyRate)
	if !m.HasEnoughData {
		b.WriteString("\n_Collecting: not enough check-ins this week for a score yet._\n")
	}
	writeJSON(&b, m)
	return b.String()
}
