package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSONToExtraSinks(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("dev", "info", zapcore.AddSync(&buf))
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("hidden")
	log.Info("survey saved", zap.String("surveyId", "1234"))
	log.Sync()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected one entry above the level, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("extra sink entry is not JSON: %v", err)
	}
	if entry["msg"] != "survey saved" || entry["surveyId"] != "1234" || entry["level"] != "info" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestNewRejectsBadSettings(t *testing.T) {
	if _, err := New("prod", "loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := New("pretty", "info"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
