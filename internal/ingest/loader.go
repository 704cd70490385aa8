package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// LoadDir reads all supported documents from a corpus directory. The
// filename is the source identifier. Supported formats: .txt and .md as
// plain text, .pdf extracted page by page, .html/.htm stripped to text.
// Unsupported files are ignored. Results are sorted by source name so
// ingestion order is deterministic.
func LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)

		var text string
		switch strings.ToLower(filepath.Ext(name)) {
		case ".txt", ".md":
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
			text = string(data)
		case ".pdf":
			text, err = extractPDF(path)
			if err != nil {
				return nil, fmt.Errorf("extracting %s: %w", name, err)
			}
		case ".html", ".htm":
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
			text = extractHTML(data)
		default:
			continue
		}

		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, Document{Source: name, Text: text})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Source < docs[j].Source })
	return docs, nil
}

// extractPDF pulls plain text from every page of a PDF file.
func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// extractHTML strips markup and returns the visible text content.
// Script and style bodies are dropped.
func extractHTML(data []byte) string {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		// Fall back to the raw bytes; the tokenizer is lenient, so this
		// only happens on reader errors.
		return string(data)
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String()
}
