package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"context", "api", "drop", "scan"}

// toolEntry pairs a tool definition with its type and handler factory.
type toolEntry struct {
	typ     string
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"context_hydrate": {
		typ:     "context",
		def:     hydrateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHydrate },
	},
	"api_call": {
		typ:     "api",
		def:     apiCallToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAPICall },
	},
	"drop_create": {
		typ:     "drop",
		def:     dropCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDropCreate },
	},
	"drop_list": {
		typ:     "drop",
		def:     dropListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDropList },
	},
	"drop_read": {
		typ:     "drop",
		def:     dropReadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDropRead },
	},
	"scan_local": {
		typ:     "scan",
		def:     scanLocalToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScanLocal },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool returns the type a registered tool belongs to. Unregistered
// names fall back to their "type_" prefix.
func GetTypeForTool(toolName string) string {
	if entry, ok := toolRegistry[toolName]; ok {
		return entry.typ
	}
	if typ, _, ok := strings.Cut(toolName, "_"); ok && typ != "" {
		return typ
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name, entry := range toolRegistry {
		if typeSet[entry.typ] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with drophub tools registered.
// Tools listed in DisabledTools or belonging to DisabledTypes are excluded
// from registration.
func NewServer(h *Handlers, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"drophub",
		version,
		server.WithToolCapabilities(true),
	)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(h.cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range h.cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(h *Handlers, version string) error {
	return server.ServeStdio(NewServer(h, version))
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
