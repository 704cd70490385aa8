package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/perimeterlab/ragward/internal/ingest"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Pipeline QueryRunner
	Gate     Ingestor
	Scanner  EmbeddingScanner
}

// NewMCPServer creates an MCP server exposing the guarded pipeline as
// tools, so an agent host can query and feed the corpus while every
// guard stage stays in the loop.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"ragward",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("ragward guards a local RAG corpus: queries pass through drift, injection and mutation checks, and every detection is reported alongside the answer."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("guarded_query",
			mcp.WithDescription("Answer a question from the local corpus. Detections (drift, blocklisted phrases, policy mutations) are returned as alerts; they never block the answer."),
			mcp.WithString("query", mcp.Description("The question to answer"), mcp.Required()),
		),
		mcpGuardedQuery(deps),
	)

	s.AddTool(
		mcp.NewTool("ingest_document",
			mcp.WithDescription("Admit a document into the corpus through the ingestion gate (dedup and trust classification)."),
			mcp.WithString("source", mcp.Description("Source name for provenance tracking"), mcp.Required()),
			mcp.WithString("content", mcp.Description("Document text"), mcp.Required()),
		),
		mcpIngestDocument(deps),
	)

	s.AddTool(
		mcp.NewTool("scan_embeddings",
			mcp.WithDescription("Scan every stored embedding for norm outliers that suggest vector tampering."),
		),
		mcpScanEmbeddings(deps),
	)

	return s
}

func mcpGuardedQuery(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		ans, err := deps.Pipeline.Query(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("query failed: %v", err)), nil
		}

		sources := make([]string, len(ans.Chunks))
		for i, c := range ans.Chunks {
			sources[i] = c.Source
		}
		out, err := json.Marshal(map[string]any{
			"answer":  ans.Text,
			"alerts":  ans.Alerts,
			"sources": sources,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("encoding result: %v", err)), nil
		}
		return mcpText(string(out)), nil
	}
}

func mcpIngestDocument(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		source, err := req.RequireString("source")
		if err != nil {
			return mcpError("source is required"), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}

		result, err := deps.Gate.Ingest(ctx, []ingest.Document{{Source: source, Text: content}})
		if err != nil {
			return mcpError(fmt.Sprintf("ingest failed: %v", err)), nil
		}

		if len(result.Added) == 0 {
			return mcpText(fmt.Sprintf("Skipped %q: duplicate content", source)), nil
		}
		return mcpText(fmt.Sprintf("Ingested %q: %d chunks added", source, result.NewChunks)), nil
	}
}

func mcpScanEmbeddings(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		findings, err := deps.Scanner.Scan()
		if err != nil {
			return mcpError(fmt.Sprintf("scan failed: %v", err)), nil
		}
		if len(findings) == 0 {
			return mcpText("No embedding outliers found."), nil
		}

		out, err := json.Marshal(findings)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding findings: %v", err)), nil
		}
		return mcpText(string(out)), nil
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
