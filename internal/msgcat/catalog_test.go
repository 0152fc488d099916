package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedMessages(t *testing.T) {
	c := Default()
	got, err := c.Render("suggestion.move", map[string]string{"From": "e2", "To": "e4"})
	if err != nil || got != "e2 to e4" {
		t.Fatalf("suggestion.move: %q %v", got, err)
	}
	if got := c.Text("suggestion.calculating", nil); got != "Calculating..." {
		t.Fatalf("calculating: %q", got)
	}
	if got := c.Text("status.opponent", nil); got != "Turn: Opponent's Turn" {
		t.Fatalf("status.opponent: %q", got)
	}
}

func TestMissingDataIsAnError(t *testing.T) {
	c := Default()
	if _, err := c.Render("suggestion.move", map[string]string{"From": "e2"}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("expected not found error")
	}
	if got := c.Text("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("fallback should be the key, got %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("status:\n  draw: \"Remis!\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("status.draw", nil); got != "Remis!" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Text("status.you_win", nil); got != "You Win!" {
		t.Fatalf("default lost: %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yml"), []byte("status:\n  draw: \"Patt\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("status:\n  draw: 3\n"), 0o644)
	if _, err := New(dir); err == nil {
		t.Fatalf("expected error for numeric leaf")
	}
}
