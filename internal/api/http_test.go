package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/perimeterlab/ragward/internal/ingest"
	"github.com/perimeterlab/ragward/internal/outlier"
	"github.com/perimeterlab/ragward/internal/pipeline"
	"github.com/perimeterlab/ragward/internal/retrieval"
	"github.com/perimeterlab/ragward/internal/trust"
)

// --- mocks ---

type mockPipeline struct {
	answer pipeline.Answer
	err    error
	query  string
}

func (m *mockPipeline) Query(_ context.Context, query string) (pipeline.Answer, error) {
	m.query = query
	return m.answer, m.err
}

type mockGate struct {
	result ingest.Result
	err    error
	docs   []ingest.Document
}

func (m *mockGate) Ingest(_ context.Context, docs []ingest.Document) (ingest.Result, error) {
	m.docs = docs
	return m.result, m.err
}

type mockScanner struct {
	findings []outlier.Finding
	err      error
}

func (m *mockScanner) Scan() ([]outlier.Finding, error) {
	return m.findings, m.err
}

func newTestHandler(deps AppDeps) http.Handler {
	if deps.Pipeline == nil {
		deps.Pipeline = &mockPipeline{}
	}
	if deps.Gate == nil {
		deps.Gate = &mockGate{}
	}
	if deps.Scanner == nil {
		deps.Scanner = &mockScanner{}
	}
	return NewAppHandler(deps)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestHandleQuery(t *testing.T) {
	p := &mockPipeline{answer: pipeline.Answer{
		Text:   "the policy allows it",
		Alerts: []string{"new source: \"x.md\" has no retrieval history"},
		Chunks: []retrieval.ContextChunk{
			{ID: "c1", Source: "x.md", TrustLevel: trust.High, Score: 0.9, Text: "chunk"},
		},
	}}
	h := newTestHandler(AppDeps{Pipeline: p})

	rec := doJSON(t, h, http.MethodPost, "/query", `{"query":"what is allowed?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if p.query != "what is allowed?" {
		t.Errorf("pipeline received query %q", p.query)
	}

	var resp struct {
		Answer string   `json:"answer"`
		Alerts []string `json:"alerts"`
		Chunks []struct {
			Source     string `json:"source"`
			TrustLevel string `json:"trust_level"`
		} `json:"chunks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Answer != "the policy allows it" {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Alerts) != 1 {
		t.Errorf("alerts = %v", resp.Alerts)
	}
	if len(resp.Chunks) != 1 || resp.Chunks[0].TrustLevel != "high" {
		t.Errorf("chunks = %+v", resp.Chunks)
	}
}

func TestHandleQuery_EmptyAlertsIsArray(t *testing.T) {
	h := newTestHandler(AppDeps{Pipeline: &mockPipeline{answer: pipeline.Answer{Text: "ok"}}})

	rec := doJSON(t, h, http.MethodPost, "/query", `{"query":"q"}`)
	if !strings.Contains(rec.Body.String(), `"alerts":[]`) {
		t.Errorf("alerts must serialize as an empty array, got %s", rec.Body.String())
	}
}

func TestHandleQuery_MissingQuery(t *testing.T) {
	h := newTestHandler(AppDeps{})
	rec := doJSON(t, h, http.MethodPost, "/query", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleQuery_PipelineError(t *testing.T) {
	h := newTestHandler(AppDeps{Pipeline: &mockPipeline{err: errors.New("backend down")}})
	rec := doJSON(t, h, http.MethodPost, "/query", `{"query":"q"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestHandleIngest(t *testing.T) {
	g := &mockGate{result: ingest.Result{Added: []string{"a.md"}, Skipped: []string{"b.md"}, NewChunks: 3}}
	h := newTestHandler(AppDeps{Gate: g})

	body := `{"documents":[{"source":"a.md","content":"alpha"},{"source":"b.md","content":"alpha"}]}`
	rec := doJSON(t, h, http.MethodPost, "/ingest", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(g.docs) != 2 || g.docs[0].Source != "a.md" {
		t.Errorf("gate received %+v", g.docs)
	}

	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["added"] != 1 || resp["skipped"] != 1 || resp["new_chunks"] != 3 {
		t.Errorf("response = %v", resp)
	}
}

func TestHandleIngest_Validation(t *testing.T) {
	h := newTestHandler(AppDeps{})

	for _, body := range []string{
		`{}`,
		`{"documents":[]}`,
		`{"documents":[{"source":"","content":"x"}]}`,
		`{"documents":[{"source":"a.md","content":""}]}`,
	} {
		rec := doJSON(t, h, http.MethodPost, "/ingest", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestHandleScan(t *testing.T) {
	s := &mockScanner{findings: []outlier.Finding{
		{ID: "c9", Source: "poisoned.md", DocHash: "abc", Norm: 50, ZScore: 3.1},
	}}
	h := newTestHandler(AppDeps{Scanner: s})

	rec := doJSON(t, h, http.MethodPost, "/scan", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "poisoned.md") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandleAudit_NotConfigured(t *testing.T) {
	h := newTestHandler(AppDeps{})
	rec := doJSON(t, h, http.MethodGet, "/audit", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHealthzOpenWithoutToken(t *testing.T) {
	h := newTestHandler(AppDeps{Token: "sekrit"})

	rec := doJSON(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200 without auth", rec.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	h := newTestHandler(AppDeps{
		Token:    "sekrit",
		Pipeline: &mockPipeline{answer: pipeline.Answer{Text: "ok"}},
	})

	rec := doJSON(t, h, http.MethodPost, "/query", `{"query":"q"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"q"}`))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with wrong token = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"q"}`))
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with valid token = %d, want 200", rec.Code)
	}
}
