// Package resources implements the read-only MCP resources of the
// teampulse server: the statement catalog and the active policy set.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/teampulse/internal/wow"
)

// Resource URIs.
const (
	StatementsURI = "teampulse://statements"
	PolicyURI     = "teampulse://policy"
)

// PolicySource exposes the policies in force. *engine.Engine implements it.
type PolicySource interface {
	Policies() map[string]any
}

// Handler serves teampulse resources.
type Handler struct {
	policies PolicySource
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(policies PolicySource) *Handler {
	return &Handler{policies: policies}
}

// StatementsResource returns the MCP resource definition for the catalog.
func (h *Handler) StatementsResource() mcp.Resource {
	return mcp.NewResource(
		StatementsURI,
		"Way-of-Work statements",
		mcp.WithResourceDescription("Every assessment statement with its angle and level"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatements returns the statement catalog grouped by angle.
func (h *Handler) HandleStatements(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	type angleEntry struct {
		Angle      wow.Angle       `json:"angle"`
		Label      string          `json:"label"`
		Statements []wow.Statement `json:"statements"`
	}
	var out []angleEntry
	for _, a := range wow.Angles() {
		out = append(out, angleEntry{Angle: a, Label: a.Label(), Statements: wow.StatementsFor(a, wow.LevelRi)})
	}
	return jsonResource(req.Params.URI, out)
}

// PolicyResource returns the MCP resource definition for the policy set.
func (h *Handler) PolicyResource() mcp.Resource {
	return mcp.NewResource(
		PolicyURI,
		"Scoring policy",
		mcp.WithResourceDescription("Thresholds and weights currently used by every calculator"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandlePolicy returns the active policies as JSON.
func (h *Handler) HandlePolicy(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, h.policies.Policies())
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
