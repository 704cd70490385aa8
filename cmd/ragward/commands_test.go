package main

import (
	"strings"
	"testing"
)

func TestIngestCommand_MissingArgs(t *testing.T) {
	err := ingestCmd.RunE(ingestCmd, nil)
	if err == nil {
		t.Fatal("want error when neither files nor --dir given")
	}
	if !strings.Contains(err.Error(), "--dir") {
		t.Errorf("err = %v, want hint about --dir", err)
	}
}

func TestNoColorFlag(t *testing.T) {
	noColor = true
	defer func() { noColor = false }()

	out := colorize(colorRed, "plain")
	if out != "plain" {
		t.Errorf("colorize with noColor = %q, want bare text", out)
	}

	noColor = false
	out = colorize(colorRed, "tinted")
	if !strings.HasPrefix(out, colorRed) || !strings.HasSuffix(out, colorReset) {
		t.Errorf("colorize = %q, want color escapes", out)
	}
}
