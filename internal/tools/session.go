package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/teampulse/internal/engine"
	"github.com/HendryAvila/teampulse/internal/wow"
)

func angleValues() []string {
	var out []string
	for _, a := range wow.Angles() {
		out = append(out, string(a))
	}
	return out
}

func sessionIDArg(req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	id := strings.TrimSpace(req.GetString("session_id", ""))
	if id == "" {
		return "", mcp.NewToolResultError("'session_id' is required")
	}
	return id, nil
}

// --- wow_session_create ---

// SessionCreateTool handles the wow_session_create MCP tool.
type SessionCreateTool struct {
	engine *engine.Engine
}

// NewSessionCreateTool creates a SessionCreateTool.
func NewSessionCreateTool(e *engine.Engine) *SessionCreateTool {
	return &SessionCreateTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *SessionCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("wow_session_create",
		mcp.WithDescription(
			"Create a draft Way-of-Work session for one angle. "+
				"The session asks every statement of that angle at or below its level. "+
				"Activate it with wow_session_activate to start collecting responses.",
		),
		mcp.WithString("team_id",
			mcp.Required(),
			mcp.Description("Team identifier"),
		),
		mcp.WithString("angle",
			mcp.Required(),
			mcp.Description("Way-of-Work angle to assess"),
			mcp.Enum(angleValues()...),
		),
		mcp.WithString("level",
			mcp.Description("Statement depth; cannot exceed the team's level (default: the team's level)"),
			mcp.Enum(string(wow.LevelShu), string(wow.LevelHa), string(wow.LevelRi)),
		),
	)
}

// Handle processes the wow_session_create tool call.
func (t *SessionCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	teamID := strings.TrimSpace(req.GetString("team_id", ""))
	if teamID == "" {
		return mcp.NewToolResultError("'team_id' is required"), nil
	}
	angle := wow.Angle(strings.TrimSpace(req.GetString("angle", "")))
	level := wow.Level(strings.TrimSpace(req.GetString("level", "")))

	sess, err := t.engine.CreateSession(ctx, teamID, angle, level)
	if err != nil {
		return errorResult("create session", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Session created: %s\n\n", sess.ID)
	fmt.Fprintf(&b, "- **Angle:** %s\n", sess.Angle.Label())
	fmt.Fprintf(&b, "- **Level:** %s\n", sess.Level)
	fmt.Fprintf(&b, "- **Status:** %s\n\n", sess.Status)
	b.WriteString("## Statements (answer each 1-5)\n\n")
	for _, s := range wow.StatementsFor(sess.Angle, sess.Level) {
		fmt.Fprintf(&b, "- `%s` %s\n", s.ID, s.Text)
	}
	writeJSON(&b, sess)
	return mcp.NewToolResultText(b.String()), nil
}

// --- wow_session_activate ---

// SessionActivateTool handles the wow_session_activate MCP tool.
type SessionActivateTool struct {
	engine *engine.Engine
}

// NewSessionActivateTool creates a SessionActivateTool.
func NewSessionActivateTool(e *engine.Engine) *SessionActivateTool {
	return &SessionActivateTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *SessionActivateTool) Definition() mcp.Tool {
	return mcp.NewTool("wow_session_activate",
		mcp.WithDescription("Open a draft session for responses."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
	)
}

// Handle processes the wow_session_activate tool call.
func (t *SessionActivateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := sessionIDArg(req)
	if bad != nil {
		return bad, nil
	}
	sess, err := t.engine.ActivateSession(ctx, id)
	if err != nil {
		return errorResult("activate session", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s is now %s and accepting responses.", sess.ID, sess.Status)), nil
}

// --- wow_submit_response ---

// SubmitResponseTool handles the wow_submit_response MCP tool.
type SubmitResponseTool struct {
	engine *engine.Engine
}

// NewSubmitResponseTool creates a SubmitResponseTool.
func NewSubmitResponseTool(e *engine.Engine) *SubmitResponseTool {
	return &SubmitResponseTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *SubmitResponseTool) Definition() mcp.Tool {
	return mcp.NewTool("wow_submit_response",
		mcp.WithDescription(
			"Submit one anonymous response to an active session. "+
				"Each device may respond once per session. "+
				"Scores outside 1-5 or unknown statement ids are dropped at synthesis, not rejected.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
		mcp.WithString("device_id",
			mcp.Required(),
			mcp.Description("Locally generated device identifier"),
		),
		mcp.WithObject("answers",
			mcp.Required(),
			mcp.Description("Map of statement id to score 1-5, e.g. {\"flow-shu-1\": 4}"),
		),
	)
}

// Handle processes the wow_submit_response tool call.
func (t *SubmitResponseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := sessionIDArg(req)
	if bad != nil {
		return bad, nil
	}
	deviceID := strings.TrimSpace(req.GetString("device_id", ""))
	if deviceID == "" {
		return mcp.NewToolResultError("'device_id' is required"), nil
	}
	answers, err := answersArg(req, "answers")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	_, err = t.engine.SubmitResponse(ctx, id, deviceID, answers)
	if errors.Is(err, wow.ErrDuplicateResponse) {
		return mcp.NewToolResultText("Thanks! This device already responded to this session."), nil
	}
	if err != nil {
		return errorResult("submit response", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Thanks! Response recorded (%d answers).", len(answers))), nil
}

// --- wow_session_close ---

// SessionCloseTool handles the wow_session_close MCP tool.
type SessionCloseTool struct {
	engine *engine.Engine
}

// NewSessionCloseTool creates a SessionCloseTool.
func NewSessionCloseTool(e *engine.Engine) *SessionCloseTool {
	return &SessionCloseTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *SessionCloseTool) Definition() mcp.Tool {
	return mcp.NewTool("wow_session_close",
		mcp.WithDescription(
			"Close an active session: synthesize it once and persist the focus area, "+
				"suggested experiment, overall score and participation rate. "+
				"A closed session is never re-synthesized.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
	)
}

// Handle processes the wow_session_close tool call.
func (t *SessionCloseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := sessionIDArg(req)
	if bad != nil {
		return bad, nil
	}
	sess, res, err := t.engine.CloseSession(ctx, id)
	if err != nil {
		return errorResult("close session", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Session closed: %s\n\n", sess.ID)
	if !sess.Scored() {
		fmt.Fprintf(&b, "Closed with %d responses, below the minimum for a score. "+
			"This session does not count toward level progress.\n", sess.ResponseCount)
	} else {
		fmt.Fprintf(&b, "- **Overall score:** %s\n", fmtScore(sess.OverallScore))
		if sess.ParticipationRate != nil {
			fmt.Fprintf(&b, "- **Participation:** %d%%\n", *sess.ParticipationRate)
		}
		fmt.Fprintf(&b, "- **Focus area:** %s\n", sess.FocusArea)
		fmt.Fprintf(&b, "- **Experiment:** %s\n", sess.Experiment)
	}
	writeJSON(&b, struct {
		Session   any `json:"session"`
		Synthesis any `json:"synthesis"`
	}{sess, res})
	return mcp.NewToolResultText(b.String()), nil
}

// --- wow_synthesis ---

// SynthesisTool handles the wow_synthesis MCP tool.
type SynthesisTool struct {
	engine *engine.Engine
}

// NewSynthesisTool creates a SynthesisTool.
func NewSynthesisTool(e *engine.Engine) *SynthesisTool {
	return &SynthesisTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *SynthesisTool) Definition() mcp.Tool {
	return mcp.NewTool("wow_synthesis",
		mcp.WithDescription(
			"Show the synthesis of an active or closed session: strengths, tensions, "+
				"per-statement scores, disagreement, focus area and suggested experiment. "+
				"Below the minimum number of responses it reports the collecting state.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
	)
}

// Handle processes the wow_synthesis tool call.
func (t *SynthesisTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := sessionIDArg(req)
	if bad != nil {
		return bad, nil
	}
	res, err := t.engine.SessionSynthesis(ctx, id)
	if err != nil {
		return errorResult("synthesize session", err), nil
	}
	return mcp.NewToolResultText(formatSynthesis(id, res)), nil
}

func formatSynthesis(id string, r *wow.SynthesisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Synthesis for %s\n\n", id)
	if r.Status == wow.SynthesisCollecting {
		fmt.Fprintf(&b, "_Collecting: %d responses so far", r.ResponseCount)
		if r.ValidResponses != r.ResponseCount {
			fmt.Fprintf(&b, " (%d with a valid answer)", r.ValidResponses)
		}
		b.WriteString(", not enough for a synthesis yet._\n")
		writeJSON(&b, r)
		return b.String()
	}

	fmt.Fprintf(&b, "**Overall:** %s from %d responses", fmtScore(r.OverallScore), r.ResponseCount)
	if r.Caveat == wow.CaveatFacilitate {
		fmt.Fprintf(&b, " · %d statements split the team, facilitate before acting", r.DisagreementCount)
	}
	b.WriteString("\n\n")

	writeScores(&b, "Strengths", r.Strengths)
	writeScores(&b, "Tensions", r.Tensions)

	if r.FocusArea != nil {
		fmt.Fprintf(&b, "## Focus area\n\n%s\n\n", r.FocusArea.Text)
	}
	if r.SuggestedExperiment != "" {
		fmt.Fprintf(&b, "## Suggested experiment\n\n%s\n", r.SuggestedExperiment)
	}
	if r.DroppedAnswers > 0 {
		fmt.Fprintf(&b, "\n_%d malformed answers were ignored._\n", r.DroppedAnswers)
	}
	writeJSON(&b, r)
	return b.String()
}

func writeScores(b *strings.Builder, title string, scores []wow.StatementScore) {
	if len(scores) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, s := range scores {
		fmt.Fprintf(b, "- %.2f %s (variance %.2f)\n", s.Score, s.Statement.Text, s.Variance)
	}
	b.WriteString("\n")
}

// --- wow_followup ---

// FollowupTool handles the wow_followup MCP tool.
type FollowupTool struct {
	engine *engine.Engine
}

// NewFollowupTool creates a FollowupTool.
func NewFollowupTool(e *engine.Engine) *FollowupTool {
	return &FollowupTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *FollowupTool) Definition() mcp.Tool {
	return mcp.NewTool("wow_followup",
		mcp.WithDescription(
			"Record who owns a closed session's experiment, when it will be reviewed, "+
				"and what came of it. Sessions with an outcome count toward the ri follow-up requirement.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
		mcp.WithString("owner",
			mcp.Description("Experiment owner"),
		),
		mcp.WithString("date",
			mcp.Description("Follow-up date YYYY-MM-DD"),
		),
		mcp.WithString("outcome",
			mcp.Description("What happened when the experiment was tried"),
		),
	)
}

// Handle processes the wow_followup tool call.
func (t *FollowupTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := sessionIDArg(req)
	if bad != nil {
		return bad, nil
	}
	owner := strings.TrimSpace(req.GetString("owner", ""))
	date := strings.TrimSpace(req.GetString("date", ""))
	outcome := strings.TrimSpace(req.GetString("outcome", ""))
	if owner == "" && date == "" && outcome == "" {
		return mcp.NewToolResultError("at least one of 'owner', 'date' or 'outcome' is required"), nil
	}

	sess, err := t.engine.RecordFollowup(ctx, id, owner, date, outcome)
	if err != nil {
		return errorResult("record follow-up", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Follow-up recorded for %s\n\n", sess.ID)
	fmt.Fprintf(&b, "- **Experiment:** %s\n", sess.Experiment)
	if sess.ExperimentOwner != "" {
		fmt.Fprintf(&b, "- **Owner:** %s\n", sess.ExperimentOwner)
	}
	if sess.FollowupDate != "" {
		fmt.Fprintf(&b, "- **Date:** %s\n", sess.FollowupDate)
	}
	if sess.HasFollowup() {
		fmt.Fprintf(&b, "- **Outcome:** %s\n", sess.FollowupOutcome)
	}
	return mcp.NewToolResultText(b.String()), nil
}
