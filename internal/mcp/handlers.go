package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/opoerator/drophub/internal/config"
	"github.com/opoerator/drophub/internal/drop"
	"github.com/opoerator/drophub/internal/errors"
	"github.com/opoerator/drophub/internal/hub"
	"github.com/opoerator/drophub/internal/hydrate"
)

// Defaults applied to drops created through MCP.
const (
	DefaultFromAgent = "claude-code"
	DefaultDropType  = "context"
	fallbackTitle    = "mcp-drop"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	agg     *hydrate.Aggregator
	client  *hub.Client // nil when the hub is not configured
	cfg     *config.Config
	scanner *drop.Scanner
}

// NewHandlers creates a new Handlers instance. client may be nil.
func NewHandlers(agg *hydrate.Aggregator, client *hub.Client, cfg *config.Config, logger *slog.Logger) *Handlers {
	return &Handlers{
		agg:     agg,
		client:  client,
		cfg:     cfg,
		scanner: drop.NewScanner(logger),
	}
}

// Request types for each tool

// HydrateRequest represents the arguments for context_hydrate.
type HydrateRequest struct {
	SessionKey string `json:"session_key,omitempty"`
}

// APICallRequest represents the arguments for api_call. Query may arrive
// as a JSON string or as an object.
type APICallRequest struct {
	Method string          `json:"method,omitempty"`
	Path   string          `json:"path"`
	Body   any             `json:"body,omitempty"`
	Query  json.RawMessage `json:"query,omitempty"`
}

// DropCreateRequest represents the arguments for drop_create.
type DropCreateRequest struct {
	Content string   `json:"content"`
	Title   string   `json:"title,omitempty"`
	From    string   `json:"from,omitempty"`
	Type    string   `json:"type,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// DropListRequest represents the arguments for drop_list.
type DropListRequest struct {
	From  string `json:"from,omitempty"`
	Type  string `json:"type,omitempty"`
	Since string `json:"since,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// DropReadRequest represents the arguments for drop_read.
type DropReadRequest struct {
	ID string `json:"id"`
}

// Output types

// DropsOutput wraps a list of drops.
type DropsOutput[T any] struct {
	Drops []T `json:"drops"`
	Count int `json:"count"`
}

// HandleHydrate handles the context_hydrate tool call.
func (h *Handlers) HandleHydrate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HydrateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	prompt := h.agg.RenderPrompt(h.agg.HydrateSession(ctx, input.SessionKey))
	if prompt == "" {
		prompt = "No prior context."
	}
	return mcp.NewToolResultText(prompt), nil
}

// HandleAPICall handles the api_call tool call.
func (h *Handlers) HandleAPICall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[APICallRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	call := hub.CallRequest{
		Method: input.Method,
		Path:   input.Path,
		Body:   input.Body,
		Query:  rawQuery(input.Query),
	}
	if _, _, err := hub.ValidateCall(call); err != nil {
		return errorResult(err), nil
	}
	if h.client == nil {
		return errorResult(errors.NewNotConfigured()), nil
	}

	text, err := h.client.Call(ctx, call)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(text), nil
}

// rawQuery unwraps a query given as a JSON string; objects pass through.
func rawQuery(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}

// HandleDropCreate handles the drop_create tool call.
func (h *Handlers) HandleDropCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DropCreateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if strings.TrimSpace(input.Content) == "" {
		return errorResult(errors.NewInvalidRequest("content is required")), nil
	}
	if h.client == nil {
		return errorResult(errors.NewNotConfigured()), nil
	}

	title := firstNonEmpty(input.Title, drop.Title(input.Content), fallbackTitle)
	created, err := h.client.CreateDrop(ctx, hub.NewDrop{
		FromAgent: firstNonEmpty(input.From, DefaultFromAgent),
		Title:     title,
		Content:   input.Content,
		DropType:  firstNonEmpty(input.Type, DefaultDropType),
		Tags:      input.Tags,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(created)
}

// HandleDropList handles the drop_list tool call.
func (h *Handlers) HandleDropList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DropListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if h.client == nil {
		return errorResult(errors.NewNotConfigured()), nil
	}

	drops, err := h.client.ListDrops(ctx, hub.DropFilter{
		From:  input.From,
		Type:  input.Type,
		Since: input.Since,
		Limit: input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}
	if drops == nil {
		drops = []hub.AgentDrop{}
	}
	return successResult(DropsOutput[hub.AgentDrop]{Drops: drops, Count: len(drops)})
}

// HandleDropRead handles the drop_read tool call.
func (h *Handlers) HandleDropRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DropReadRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if strings.TrimSpace(input.ID) == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}
	if h.client == nil {
		return errorResult(errors.NewNotConfigured()), nil
	}

	d, err := h.client.ReadDrop(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(d)
}

// HandleScanLocal handles the scan_local tool call.
func (h *Handlers) HandleScanLocal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	drops := h.scanner.Scan(h.cfg.DropPaths, h.cfg.MaxDropAge(), h.cfg.MaxDrops)
	if drops == nil {
		drops = []drop.Drop{}
	}
	return successResult(DropsOutput[drop.Drop]{Drops: drops, Count: len(drops)})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if hubErr, ok := errors.As(err); ok {
		message := hubErr.Message
		// Keep context added by wrappers (fmt.Errorf("...: %w", err))
		if wrapped := err.Error(); wrapped != hubErr.Error() {
			message = strings.TrimSuffix(wrapped, hubErr.Error()) + hubErr.Message
		}
		errorObj := map[string]any{
			"code":    hubErr.Code,
			"message": message,
			"status":  hubErr.Status,
		}
		if hubErr.Code != errors.ErrInternal && hubErr.Details != nil {
			errorObj["details"] = hubErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
