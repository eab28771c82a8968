// Package tools implements the MCP tool handlers of the teampulse server.
//
// Each tool is a struct that receives the engine via its constructor and
// exposes Definition() for registration and Handle() for calls. Handlers
// never compute scores themselves: they parse arguments, call the engine
// and render its output as markdown followed by the raw JSON.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/teampulse/internal/progression"
	"github.com/HendryAvila/teampulse/internal/store"
	"github.com/HendryAvila/teampulse/internal/wow"
)

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// scoreArg reads a required Likert score. Fractions are rejected, never
// truncated; the range itself is checked by the engine.
func scoreArg(req mcp.CallToolRequest, key string) (int, error) {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return 0, fmt.Errorf("'%s' is required and must be a number", key)
	}
	if !isWhole(v) {
		return 0, fmt.Errorf("'%s' must be a whole number from 1 to 5, got %g", key, v)
	}
	return int(v), nil
}

func isWhole(f float64) bool {
	return f == math.Trunc(f) && !math.IsInf(f, 0)
}

// floatPtrArg returns nil when the key is absent or null.
func floatPtrArg(req mcp.CallToolRequest, key string) *float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return nil
	}
	return &v
}

// answersArg reads the statement-id to score object. Non-integer values
// are kept as 0 so aggregation drops them as out of range.
func answersArg(req mcp.CallToolRequest, key string) (map[string]int, error) {
	raw, ok := req.GetArguments()[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("'%s' must be an object of statement id to score", key)
	}
	out := make(map[string]int, len(raw))
	for id, v := range raw {
		f, ok := v.(float64)
		if !ok || !isWhole(f) {
			out[id] = 0
			continue
		}
		out[id] = int(f)
	}
	return out, nil
}

// stringsArg reads an array of strings, skipping blanks.
func stringsArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// errorResult maps engine errors to a tool error with a readable message.
func errorResult(action string, err error) *mcp.CallToolResult {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, wow.ErrInvalidTransition) || errors.Is(err, progression.ErrPlanLimit) {
		return mcp.NewToolResultError(fmt.Sprintf("cannot %s: %v", action, err))
	}
	return mcp.NewToolResultError(fmt.Sprintf("failed to %s: %v", action, err))
}

// writeJSON appends v as an indented JSON block.
func writeJSON(b *strings.Builder, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(b, "\n_(could not render JSON: %v)_\n", err)
		return
	}
	b.WriteString("\n```json\n")
	b.Write(data)
	b.WriteString("\n```\n")
}

// fmtScore renders an optional score.
func fmtScore(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
