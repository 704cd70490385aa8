package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCorpusFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoadDir_PlainText(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "good_policy.txt", "passwords are never shared")
	writeCorpusFile(t, dir, "notes.md", "# Security notes")

	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	// Sorted by source name.
	if docs[0].Source != "good_policy.txt" || docs[1].Source != "notes.md" {
		t.Errorf("unexpected order: %s, %s", docs[0].Source, docs[1].Source)
	}
	if docs[0].Text != "passwords are never shared" {
		t.Errorf("text = %q", docs[0].Text)
	}
}

func TestLoadDir_SkipsUnsupportedAndEmpty(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "image.png", "\x89PNG")
	writeCorpusFile(t, dir, "empty.txt", "   \n")
	writeCorpusFile(t, dir, "real.txt", "content")

	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 1 || docs[0].Source != "real.txt" {
		t.Errorf("docs = %+v, want only real.txt", docs)
	}
}

func TestLoadDir_HTMLStripped(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "page.html",
		`<html><head><style>body{color:red}</style><script>alert(1)</script></head>`+
			`<body><h1>Policy</h1><p>Do not share passwords.</p></body></html>`)

	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs, want 1", len(docs))
	}
	text := docs[0].Text
	if !strings.Contains(text, "Policy") || !strings.Contains(text, "Do not share passwords.") {
		t.Errorf("visible text missing: %q", text)
	}
	if strings.Contains(text, "alert(1)") || strings.Contains(text, "color:red") {
		t.Errorf("script/style content leaked: %q", text)
	}
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}
