package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ameleshko/otvet/internal/agent"
	"github.com/ameleshko/otvet/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Agent    Asker
	Store    *storage.Store
	TestMode func() bool // server-level default for the ask tool
}

// NewMCPServer creates an MCP server with the ask and history tools and the
// recent-chats resource registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"otvet",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("otvet is a conversational agent that answers questions, pulling in fresh web data when the question calls for it."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask the agent a question. Time-sensitive questions are answered with fresh web data."),
			mcp.WithString("query", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithBoolean("test_mode", mcp.Description("Answer from canned responses without calling external APIs")),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("history",
			mcp.WithDescription("List stored question-answer exchanges, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpHistory(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"chat://recent",
			"Recent Chats",
			mcp.WithResourceDescription("Last 10 stored exchanges (queries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		testMode := false
		if deps.TestMode != nil {
			testMode = deps.TestMode()
		}
		testMode = req.GetBool("test_mode", testMode)

		ex, err := deps.Agent.Ask(ctx, query, agent.Options{TestMode: testMode})
		if err != nil {
			return mcpError(fmt.Sprintf("ask failed: %v", err)), nil
		}

		record := storage.ChatRecord{
			ID:              uuid.New().String(),
			CreatedAt:       time.Now().UTC(),
			UserInput:       query,
			Response:        ex.Response,
			SearchPerformed: ex.SearchPerformed,
			TestMode:        testMode,
		}
		if err := deps.Store.SaveChat(record); err != nil {
			return mcpError(fmt.Sprintf("answered but failed to persist: %v", err)), nil
		}

		return mcpText(ex.Response), nil
	}
}

func mcpHistory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 50 {
			limit = 50
		}

		records, err := deps.Store.ListChats(limit, 0)
		if err != nil {
			return mcpError(fmt.Sprintf("history failed: %v", err)), nil
		}

		if len(records) == 0 {
			return mcpText("[]"), nil
		}

		views := make([]ChatView, len(records))
		for i, r := range records {
			views[i] = chatView(r)
		}

		b, err := json.Marshal(views)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		records, err := deps.Store.ListChats(10, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent chats: %w", err)
		}

		type chatSummary struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Query     string `json:"query"`
		}

		summaries := make([]chatSummary, len(records))
		for i, rec := range records {
			query := rec.UserInput
			if utf8.RuneCountInString(query) > 200 {
				runes := []rune(query)
				query = string(runes[:200]) + "..."
			}
			summaries[i] = chatSummary{
				ID:        rec.ID,
				CreatedAt: rec.CreatedAt.Format(time.RFC3339),
				Query:     query,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal chats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
