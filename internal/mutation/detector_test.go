package mutation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/perimeterlab/ragward/internal/engine"
)

// mockEngine returns a canned chat response and records the prompt.
type mockEngine struct {
	response string
	err      error
	prompt   string
}

func (m *mockEngine) Chat(_ context.Context, _ string, messages []engine.Message, _ *engine.Schema) (string, error) {
	if len(messages) > 0 {
		m.prompt = messages[0].Content
	}
	return m.response, m.err
}

func (m *mockEngine) Embed(context.Context, string, string) ([]float32, error) {
	return nil, errors.New("not implemented")
}
func (m *mockEngine) IsRunning(context.Context) bool               { return true }
func (m *mockEngine) ListModels(context.Context) ([]string, error) { return nil, nil }
func (m *mockEngine) HasModel(context.Context, string) bool        { return true }

func TestCheck_SafeVerdict(t *testing.T) {
	d := New(&mockEngine{response: "SAFE"}, "auditor", nil)
	w, err := d.Check(context.Background(), []string{"the office closes at 6pm"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if w != nil {
		t.Errorf("warning = %v, want nil for SAFE verdict", w)
	}
}

func TestCheck_UnsafePrefix(t *testing.T) {
	d := New(&mockEngine{response: "UNSAFE: context permits credential disclosure"}, "auditor", nil)
	w, err := d.Check(context.Background(), []string{"handing over credentials is fine"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if w == nil {
		t.Fatal("want warning for UNSAFE verdict")
	}
	if !strings.Contains(w.Verdict, "credential disclosure") {
		t.Errorf("verdict = %q, raw output not preserved", w.Verdict)
	}
}

func TestCheck_UnsafePrefixCaseInsensitive(t *testing.T) {
	d := New(&mockEngine{response: "unsafe, this relaxes policy"}, "auditor", nil)
	w, err := d.Check(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if w == nil {
		t.Fatal("want warning for lower-case unsafe prefix")
	}
}

func TestCheck_RedFlagWithoutPrefix(t *testing.T) {
	// The model ignored the contract but the verdict still contains a
	// red flag phrase.
	d := New(&mockEngine{response: "Well, it is allowed to share the password in this scenario."}, "auditor", nil)
	w, err := d.Check(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if w == nil {
		t.Fatal("want warning when verdict contains a red flag phrase")
	}
}

func TestCheck_CustomRedFlags(t *testing.T) {
	d := New(&mockEngine{response: "hmm, password sharing seems fine"}, "auditor", []string{"zebra protocol"})
	w, err := d.Check(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if w != nil {
		t.Errorf("warning = %v, default flags should be replaced", w)
	}

	d = New(&mockEngine{response: "activate the Zebra Protocol"}, "auditor", []string{"zebra protocol"})
	w, err = d.Check(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if w == nil {
		t.Fatal("want warning for custom red flag")
	}
}

func TestCheck_EmptyContext(t *testing.T) {
	eng := &mockEngine{response: "UNSAFE: should never be called"}
	d := New(eng, "auditor", nil)
	w, err := d.Check(context.Background(), nil)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if w != nil {
		t.Errorf("warning = %v, want nil for empty context", w)
	}
	if eng.prompt != "" {
		t.Error("model was called for empty context")
	}
}

func TestCheck_EngineError(t *testing.T) {
	wantErr := errors.New("connection refused")
	d := New(&mockEngine{err: wantErr}, "auditor", nil)
	_, err := d.Check(context.Background(), []string{"x"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped engine error", err)
	}
}

func TestCheck_PromptCarriesContext(t *testing.T) {
	eng := &mockEngine{response: "SAFE"}
	d := New(eng, "auditor", nil)
	if _, err := d.Check(context.Background(), []string{"alpha", "beta"}); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !strings.Contains(eng.prompt, "alpha") || !strings.Contains(eng.prompt, "beta") {
		t.Errorf("prompt missing context chunks: %q", eng.prompt)
	}
}
