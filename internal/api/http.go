// Package api exposes the guarded pipeline over HTTP and MCP. Both
// surfaces are thin: validation and shaping here, all guard semantics in
// the pipeline and its collaborators.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/perimeterlab/ragward/internal/audit"
	"github.com/perimeterlab/ragward/internal/ingest"
	"github.com/perimeterlab/ragward/internal/outlier"
	"github.com/perimeterlab/ragward/internal/pipeline"
)

const maxBodySize = 10 << 20 // 10MB

// QueryRunner runs one guarded query.
type QueryRunner interface {
	Query(ctx context.Context, query string) (pipeline.Answer, error)
}

// Ingestor admits documents through the ingestion gate.
type Ingestor interface {
	Ingest(ctx context.Context, docs []ingest.Document) (ingest.Result, error)
}

// EmbeddingScanner runs the whole-collection outlier scan.
type EmbeddingScanner interface {
	Scan() ([]outlier.Finding, error)
}

// AppDeps holds the HTTP surface's collaborators.
type AppDeps struct {
	Pipeline QueryRunner
	Gate     Ingestor
	Scanner  EmbeddingScanner
	// LedgerPath feeds the audit endpoint; empty disables it.
	LedgerPath string
	// Token enables bearer auth when non-empty. The health endpoint is
	// always open so orchestrators can probe without credentials.
	Token string
}

// NewAppHandler builds the HTTP router.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealth())

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/query", handleQuery(deps))
		r.Post("/ingest", handleIngest(deps))
		r.Post("/scan", handleScan(deps))
		r.Get("/audit", handleAudit(deps))
	})

	return r
}

type queryRequest struct {
	Query string `json:"query"`
}

type chunkResponse struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	TrustLevel string  `json:"trust_level"`
	Score      float32 `json:"score"`
	Text       string  `json:"text"`
}

type queryResponse struct {
	Answer     string          `json:"answer"`
	Alerts     []string        `json:"alerts"`
	Chunks     []chunkResponse `json:"chunks"`
	DurationMs int64           `json:"duration_ms"`
}

func handleQuery(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		ans, err := deps.Pipeline.Query(r.Context(), req.Query)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "query failed: %v", err)
			return
		}

		resp := queryResponse{
			Answer:     ans.Text,
			Alerts:     ans.Alerts,
			DurationMs: ans.DurationMs,
		}
		if resp.Alerts == nil {
			resp.Alerts = []string{}
		}
		resp.Chunks = make([]chunkResponse, len(ans.Chunks))
		for i, c := range ans.Chunks {
			resp.Chunks[i] = chunkResponse{
				ID:         c.ID,
				Source:     c.Source,
				TrustLevel: string(c.TrustLevel),
				Score:      c.Score,
				Text:       c.Text,
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type ingestRequest struct {
	Documents []struct {
		Source  string `json:"source"`
		Content string `json:"content"`
	} `json:"documents"`
}

func handleIngest(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Documents) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "documents is required and must not be empty")
			return
		}

		docs := make([]ingest.Document, len(req.Documents))
		for i, d := range req.Documents {
			if d.Source == "" || d.Content == "" {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "document %d: source and content are required", i)
				return
			}
			docs[i] = ingest.Document{Source: d.Source, Text: d.Content}
		}

		result, err := deps.Gate.Ingest(r.Context(), docs)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "ingest failed: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]int{
			"added":      len(result.Added),
			"skipped":    len(result.Skipped),
			"new_chunks": result.NewChunks,
		})
	}
}

type findingResponse struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	DocHash string  `json:"doc_hash"`
	Norm    float64 `json:"norm"`
	ZScore  float64 `json:"z_score"`
}

func handleScan(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		findings, err := deps.Scanner.Scan()
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "scan failed: %v", err)
			return
		}

		resp := make([]findingResponse, len(findings))
		for i, f := range findings {
			resp[i] = findingResponse{
				ID:      f.ID,
				Source:  f.Source,
				DocHash: f.DocHash,
				Norm:    f.Norm,
				ZScore:  f.ZScore,
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"findings": resp})
	}
}

func handleAudit(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.LedgerPath == "" {
			httpError(w, http.StatusNotFound, "invalid_request_error", "audit ledger not configured")
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil || limit <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid limit %q", raw)
				return
			}
		}

		events, err := audit.Tail(deps.LedgerPath, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "reading ledger: %v", err)
			return
		}
		if events == nil {
			events = []audit.Event{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events})
	}
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
