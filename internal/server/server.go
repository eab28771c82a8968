// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it opens the store, builds the engine and
// injects it into the tools, prompts and resources. No business logic
// lives here, only wiring.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/HendryAvila/teampulse/internal/config"
	"github.com/HendryAvila/teampulse/internal/engine"
	"github.com/HendryAvila/teampulse/internal/prompts"
	"github.com/HendryAvila/teampulse/internal/resources"
	"github.com/HendryAvila/teampulse/internal/store"
	"github.com/HendryAvila/teampulse/internal/telemetry"
	"github.com/HendryAvila/teampulse/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered.
//
// The returned cleanup function closes the store's database connection
// and must be called on shutdown (typically via defer). It is always
// non-nil and safe to call even when New fails.
func New(cfg *config.Config, log *zap.Logger, m *telemetry.Metrics) (*server.MCPServer, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}

	// --- Create shared dependencies ---

	st, err := store.New(store.Config{DataDir: cfg.DataDir}, log)
	if err != nil {
		return nil, noop, fmt.Errorf("opening store: %w", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			log.Warn("store close failed", zap.Error(err))
		}
	}
	eng := engine.New(st, cfg, log, m)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"teampulse",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerTools(s, eng)

	// --- Register prompts ---

	coachPrompt := prompts.NewCoachPrompt()
	s.AddPrompt(coachPrompt.Definition(), coachPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(eng)
	s.AddResource(resourceHandler.StatementsResource(), resourceHandler.HandleStatements)
	s.AddResource(resourceHandler.PolicyResource(), resourceHandler.HandlePolicy)

	log.Info("server ready", zap.String("version", Version), zap.String("data_dir", cfg.DataDir))
	return s, cleanup, nil
}

// noop is the cleanup returned when nothing was opened.
func noop() {}

// registerTools registers every teampulse tool with the server.
func registerTools(s *server.MCPServer, e *engine.Engine) {
	// --- Teams ---

	teamRegister := tools.NewTeamRegisterTool(e)
	s.AddTool(teamRegister.Definition(), teamRegister.Handle)

	teamSetPlan := tools.NewTeamSetPlanTool(e)
	s.AddTool(teamSetPlan.Definition(), teamSetPlan.Handle)

	// --- Vibe ---

	checkin := tools.NewVibeCheckinTool(e)
	s.AddTool(checkin.Definition(), checkin.Handle)

	metrics := tools.NewVibeMetricsTool(e)
	s.AddTool(metrics.Definition(), metrics.Handle)

	// --- Way-of-Work sessions ---

	sessionCreate := tools.NewSessionCreateTool(e)
	s.AddTool(sessionCreate.Definition(), sessionCreate.Handle)

	sessionActivate := tools.NewSessionActivateTool(e)
	s.AddTool(sessionActivate.Definition(), sessionActivate.Handle)

	submit := tools.NewSubmitResponseTool(e)
	s.AddTool(submit.Definition(), submit.Handle)

	sessionClose := tools.NewSessionCloseTool(e)
	s.AddTool(sessionClose.Definition(), sessionClose.Handle)

	synthesis := tools.NewSynthesisTool(e)
	s.AddTool(synthesis.Definition(), synthesis.Handle)

	followup := tools.NewFollowupTool(e)
	s.AddTool(followup.Definition(), followup.Handle)

	// --- Levels ---

	progress := tools.NewLevelProgressTool(e)
	s.AddTool(progress.Definition(), progress.Handle)

	promote := tools.NewLevelPromoteTool(e)
	s.AddTool(promote.Definition(), promote.Handle)

	// --- Signals ---

	teamSignal := tools.NewTeamSignalTool(e)
	s.AddTool(teamSignal.Definition(), teamSignal.Handle)

	combine := tools.NewCombineSignalTool(e)
	s.AddTool(combine.Definition(), combine.Handle)

	fleet := tools.NewFleetHealthTool(e)
	s.AddTool(fleet.Definition(), fleet.Handle)
}

// serverInstructions returns the system instructions that tell the AI
// how to use teampulse.
func serverInstructions() string {
	return `You have access to teampulse, a team-health engine.

It measures two things:
- VIBE: anonymous daily mood check-ins (1-5). Use vibe_checkin and vibe_metrics.
- WAY OF WORK: periodic sessions where the team scores statements about one
  angle of how they work. Use wow_session_create, wow_session_activate,
  wow_submit_response, wow_synthesis and wow_session_close.

Teams grow through three levels, shu, ha and ri. level_progress shows what
the next level needs; level_promote moves the team once everything is met.
team_signal blends vibe and Way of Work into one number.

## Rules
- Every number comes from the engine. Never compute, round or estimate a
  score yourself; rephrase what the tools return.
- "n/a" and "collecting" mean not enough data yet. Never present them as zero.
- Responses are anonymous. Never speculate about who answered what.
- A duplicate check-in or response is not an error: thank the person.
- A closed session is final. Do not try to re-close or re-score it.`
}
