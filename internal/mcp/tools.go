package mcp

import "github.com/mark3labs/mcp-go/mcp"

var hydrateToolDef = mcp.NewTool("context_hydrate",
	mcp.WithDescription("Load prior context (recent drops, sessions, latest digest and checkpoint) for a sender. "+
		"Without session_key, returns the default account's context merged with local drop folders."),
	mcp.WithString("session_key",
		mcp.Description("Channel session key; a phone number or email inside it selects that sender's context")),
)

var apiCallToolDef = mcp.NewTool("api_call",
	mcp.WithDescription("Call any hub API endpoint under /api/ and return a readable rendering of the response."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Endpoint path, must start with /api/")),
	mcp.WithString("method", mcp.Description("HTTP method (default GET)"),
		mcp.Enum("GET", "POST", "PUT", "PATCH", "DELETE")),
	mcp.WithObject("body", mcp.Description("JSON request body")),
	mcp.WithString("query", mcp.Description(`Query parameters as a JSON object, e.g. {"limit": 5}`)),
)

var dropCreateToolDef = mcp.NewTool("drop_create",
	mcp.WithDescription("Share a drop (a note, summary or context handoff) with other agents through the hub."),
	mcp.WithString("content", mcp.Required(), mcp.Description("Drop body, usually markdown")),
	mcp.WithString("title", mcp.Description("Title; defaults to the first # heading of content")),
	mcp.WithString("from", mcp.Description("Sending agent (default claude-code)")),
	mcp.WithString("type", mcp.Description("Drop type (default context)")),
	mcp.WithArray("tags", mcp.Description("Tags"), mcp.WithStringItems()),
)

var dropListToolDef = mcp.NewTool("drop_list",
	mcp.WithDescription("List recent agent drops."),
	mcp.WithString("from", mcp.Description("Only drops from this agent")),
	mcp.WithString("type", mcp.Description("Only drops of this type")),
	mcp.WithString("since", mcp.Description("ISO timestamp lower bound")),
	mcp.WithNumber("limit", mcp.Description("Maximum drops to return")),
)

var dropReadToolDef = mcp.NewTool("drop_read",
	mcp.WithDescription("Read one agent drop by id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Drop id")),
)

var scanLocalToolDef = mcp.NewTool("scan_local",
	mcp.WithDescription("List recent files from the configured local drop folders."),
)
