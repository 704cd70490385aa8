package api

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/perimeterlab/ragward/internal/ingest"
	"github.com/perimeterlab/ragward/internal/outlier"
	"github.com/perimeterlab/ragward/internal/pipeline"
)

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func TestMCPGuardedQuery(t *testing.T) {
	deps := MCPDeps{Pipeline: &mockPipeline{answer: pipeline.Answer{
		Text:   "the answer",
		Alerts: []string{"drift suspected"},
	}}}

	result, err := mcpGuardedQuery(deps)(context.Background(), makeCallToolRequest("guarded_query", map[string]interface{}{
		"query": "what changed?",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	text := toolText(t, result)
	if !strings.Contains(text, "the answer") || !strings.Contains(text, "drift suspected") {
		t.Errorf("result = %s", text)
	}
}

func TestMCPGuardedQuery_MissingQuery(t *testing.T) {
	deps := MCPDeps{Pipeline: &mockPipeline{}}
	result, err := mcpGuardedQuery(deps)(context.Background(), makeCallToolRequest("guarded_query", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("want tool error for missing query")
	}
}

func TestMCPGuardedQuery_PipelineFailure(t *testing.T) {
	deps := MCPDeps{Pipeline: &mockPipeline{err: errors.New("backend down")}}
	result, err := mcpGuardedQuery(deps)(context.Background(), makeCallToolRequest("guarded_query", map[string]interface{}{
		"query": "q",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("want tool error on pipeline failure")
	}
}

func TestMCPIngestDocument(t *testing.T) {
	gate := &mockGate{result: ingest.Result{Added: []string{"notes.md"}, NewChunks: 2}}
	deps := MCPDeps{Gate: gate}

	result, err := mcpIngestDocument(deps)(context.Background(), makeCallToolRequest("ingest_document", map[string]interface{}{
		"source":  "notes.md",
		"content": "hello",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := toolText(t, result)
	if !strings.Contains(text, "2 chunks") {
		t.Errorf("result = %s", text)
	}
	if len(gate.docs) != 1 || gate.docs[0].Source != "notes.md" {
		t.Errorf("gate received %+v", gate.docs)
	}
}

func TestMCPIngestDocument_Duplicate(t *testing.T) {
	deps := MCPDeps{Gate: &mockGate{result: ingest.Result{Skipped: []string{"notes.md"}}}}

	result, err := mcpIngestDocument(deps)(context.Background(), makeCallToolRequest("ingest_document", map[string]interface{}{
		"source":  "notes.md",
		"content": "hello",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(toolText(t, result), "duplicate") {
		t.Errorf("result = %s", toolText(t, result))
	}
}

func TestMCPScanEmbeddings(t *testing.T) {
	deps := MCPDeps{Scanner: &mockScanner{findings: []outlier.Finding{
		{ID: "c1", Source: "poisoned.md", ZScore: 3.0},
	}}}

	result, err := mcpScanEmbeddings(deps)(context.Background(), makeCallToolRequest("scan_embeddings", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(toolText(t, result), "poisoned.md") {
		t.Errorf("result = %s", toolText(t, result))
	}
}

func TestMCPScanEmbeddings_Clean(t *testing.T) {
	deps := MCPDeps{Scanner: &mockScanner{}}

	result, err := mcpScanEmbeddings(deps)(context.Background(), makeCallToolRequest("scan_embeddings", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(toolText(t, result), "No embedding outliers") {
		t.Errorf("result = %s", toolText(t, result))
	}
}
