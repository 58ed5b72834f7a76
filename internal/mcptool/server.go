// Package mcptool exposes the chat service as a Model Context Protocol tool
// so assistants can query PMC records over stdio.
package mcptool

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"pmcbot/internal/contextutil"
	"pmcbot/internal/service"
)

const (
	// ToolName is the name assistants call.
	ToolName = "ask_pmc"

	serverName    = "pmcbot"
	serverVersion = "1.0.0"
)

// NewServer builds an MCP server with the ask_pmc tool registered.
func NewServer(chat service.ChatService) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.AddTool(AskTool(), NewAskHandler(chat))
	return s
}

// ServeStdio serves s on stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// AskTool describes the ask_pmc tool.
func AskTool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Answer questions about Pune Municipal Corporation services, circulars, gardens, hospitals, schools and other civic records. Accepts English or Marathi."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The citizen's question"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session id returned by a previous call, to ask follow-up questions"),
		),
	)
}

// NewAskHandler returns the tool handler. Validation problems become tool
// errors; other failures are logged and reported without detail.
func NewAskHandler(chat service.ChatService) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := contextutil.LoggerFromContext(ctx)

		question, err := req.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		resp, err := chat.Chat(ctx, service.ChatRequest{
			UserInput: question,
			SessionID: req.GetString("session_id", ""),
		})
		if err != nil {
			var validationErr *service.ValidationError
			if errors.As(err, &validationErr) {
				return mcp.NewToolResultError(validationErr.Error()), nil
			}
			logger.ErrorContext(ctx, "ask_pmc failed", "error", err)
			return mcp.NewToolResultError("The PMC assistant is unavailable right now. Please try again later."), nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(resp.Answer),
				mcp.NewTextContent("session_id: " + resp.SessionID),
			},
		}, nil
	}
}
