package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("DEBUG"); got != log.DebugLevel {
		t.Fatalf("got %v", got)
	}
	if got := ParseLevel("nonsense"); got != log.InfoLevel {
		t.Fatalf("unknown levels should fall back to info, got %v", got)
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")
	l.Info("hidden")
	l.Warn("shown", "id", 7)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered at warn level:\n%s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "id=7") {
		t.Fatalf("expected warn line with fields:\n%s", out)
	}
}

func TestOpen_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "taskflow.log")
	l, closeFn, err := Open(Options{Level: "info", File: path}, os.Stderr)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	l.Info("hello file")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "hello file") {
		t.Fatalf("expected log line in file, got:\n%s", b)
	}
}
