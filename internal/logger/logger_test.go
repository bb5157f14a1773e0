package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	t.Setenv(LevelEnv, "")
	var buf bytes.Buffer
	l := New(&buf)

	l.Debug("hidden %d", 1)
	l.Info("generated %d samples", 10)
	l.Warning("count %d is low", 10)
	l.Error("failed: %s", "boom")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Expected debug output to be suppressed")
	}
	for _, want := range []string{"INFO    ", "generated 10 samples", "WARNING ", "ERROR   ", "failed: boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got %q", want, out)
		}
	}
}

func TestDebugFromEnv(t *testing.T) {
	t.Setenv(LevelEnv, "DEBUG")
	var buf bytes.Buffer
	New(&buf).Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("Expected debug output, got %q", buf.String())
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dentalsynth.log")
	var console bytes.Buffer
	l, err := NewWithFile(&console, path)
	if err != nil {
		t.Fatalf("NewWithFile failed: %v", err)
	}
	l.Info("written to file")
	if !strings.Contains(console.String(), "written to file") {
		t.Errorf("Expected console writer to get the entry, got %q", console.String())
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("Expected log file to contain entry, got %q", data)
	}
}
