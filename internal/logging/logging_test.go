package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, false)
	logger.Debug("hidden")
	logger.Info("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line logged at info level: %s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "app=meetme") || !strings.Contains(out, "k=v") {
		t.Fatalf("unexpected output: %s", out)
	}

	buf.Reset()
	NewWriter(&buf, true).Debug("visible")
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Fatalf("expected debug output, got %s", buf.String())
	}
}
