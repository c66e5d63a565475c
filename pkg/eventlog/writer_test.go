package eventlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	waLog "go.mau.fi/whatsmeow/util/log"
)

func TestNewWriterDisabledWithoutDir(t *testing.T) {
	w := NewWriter("  ", waLog.Noop)
	if w.Enabled() {
		t.Fatalf("expected writer disabled")
	}
	if err := w.Record("c1", "member.joined", nil); err != nil {
		t.Fatalf("disabled writer must be a no-op, got %v", err)
	}
}

func TestRecordWritesUnderScopeAndKind(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, waLog.Noop)
	w.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	payload := map[string]any{"viewerId": "u1", "message": "Welcome to the clan!"}
	if err := w.Record("../c1", "member.joined", payload); err != nil {
		t.Fatalf("record error: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "c1", "member.joined", "*.json"))
	if err != nil {
		t.Fatalf("glob error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one record file, got %v", matches)
	}
	raw, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if record["scope"] != "../c1" || record["kind"] != "member.joined" {
		t.Fatalf("unexpected record header %v", record)
	}
	body, ok := record["payload"].(map[string]any)
	if !ok || body["viewerId"] != "u1" {
		t.Fatalf("expected payload with viewerId u1, got %v", record["payload"])
	}
}

func TestSanitizeSegment(t *testing.T) {
	tests := map[string]string{
		"":            "unknown",
		"...":         "unknown",
		"clan 42":     "clan_42",
		"../etc":      "etc",
		"member.role": "member.role",
	}
	for in, want := range tests {
		if got := sanitizeSegment(in); got != want {
			t.Errorf("sanitizeSegment(%q) = %q, want %q", in, got, want)
		}
	}
}
