package events

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLogNoopForNilLoggerAndEmptyPath(t *testing.T) {
	var nilLogger *Logger
	if err := nilLogger.Log(Event{Phase: "dispatch"}); err != nil {
		t.Fatalf("nil logger should be a no-op: %v", err)
	}
	if err := New("").Log(Event{Phase: "dispatch"}); err != nil {
		t.Fatalf("empty-path logger should be a no-op: %v", err)
	}
}

func TestLogWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	logger := New(path)

	if err := logger.Log(Event{Linter: "gofmt-check", Phase: "invoke", Status: "done", ExitCode: 0}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := logger.Log(Event{Linter: "gofmt-fix", Phase: "invoke", Status: "done", Mutated: []string{"a.go"}}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []Event
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("Unmarshal line: %v", err)
		}
		lines = append(lines, ev)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	if lines[0].Timestamp == "" {
		t.Fatalf("expected Log to stamp the timestamp")
	}
	if lines[1].Mutated[0] != "a.go" {
		t.Fatalf("unexpected mutated field: %+v", lines[1])
	}
}
