package fallback

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/record"
)

func newRecord(id string) record.ExecutionRecord {
	return record.ExecutionRecord{
		Type:      "track",
		Event:     record.EventStarted,
		Timestamp: "2023-01-01T10:00:00.000Z",
		MessageID: id,
		Tags:      []string{},
	}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	for sc.Scan() {
		if sc.Text() != "" {
			n++
		}
	}
	return n
}

func TestLog_AppendOne_WritesOneLineOfJSON(t *testing.T) {
	dir := t.TempDir()
	l := NewLog(dir, nil)

	l.AppendOne("Queue overflow - message dropped", newRecord("m1"))

	path := filepath.Join(dir, "kafka-fallback-0.log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data[:len(data)-1], &parsed); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if parsed["reason"] != "Queue overflow - message dropped" {
		t.Errorf("reason = %v", parsed["reason"])
	}
	if _, ok := parsed["message"]; !ok {
		t.Error("expected a \"message\" field for a single-record entry")
	}
}

func TestLog_AppendBatch_EmptyIsNoop(t *testing.T) {
	dir := t.TempDir()
	l := NewLog(dir, nil)
	l.AppendBatch("Send failed: AUTHENTICATION", nil)

	path := filepath.Join(dir, "kafka-fallback-0.log")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected no file to be created for an empty batch")
	}
}

func TestLog_Rotation(t *testing.T) {
	dir := t.TempDir()
	// Small max size forces rotation after roughly one record per file.
	l := NewLog(dir, nil, WithMaxFileSize(200), WithMaxFiles(3))

	for i := 0; i < 10; i++ {
		l.AppendOne("test", newRecord("m"+string(rune('0'+i))))
	}

	// At most maxFiles files should exist.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) > 3 {
		t.Errorf("got %d files, want at most 3", len(entries))
	}

	// The active file must never exceed maxFileSize once rotation kicks in
	// for newly-started files (the record that triggers rotation lands in
	// the new file, not the oversized old one).
	active := filepath.Join(dir, "kafka-fallback-0.log")
	info, err := os.Stat(active)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() > 400 {
		t.Errorf("active file size = %d, unexpectedly large", info.Size())
	}
}

func TestLog_RotateOnStartup(t *testing.T) {
	dir := t.TempDir()
	l := NewLog(dir, nil)
	l.AppendOne("seed", newRecord("seed"))

	l2 := NewLog(dir, nil, WithRotateOnStartup(true))
	l2.AppendOne("after-restart", newRecord("m1"))

	// The seeded file should have been rotated to index 1.
	if _, err := os.Stat(filepath.Join(dir, "kafka-fallback-1.log")); err != nil {
		t.Errorf("expected rotated file at index 1: %v", err)
	}
}

func TestLog_NeverPanicsOnBadDirectory(t *testing.T) {
	// A path through a file (not a directory) cannot be mkdir'd into;
	// Log must still be usable without panicking.
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("fallback log panicked: %v", r)
		}
	}()

	l := NewLog(filepath.Join(blocker, "sub"), nil)
	l.AppendOne("reason", newRecord("m1"))
}

func TestLog_ClockOverride(t *testing.T) {
	dir := t.TempDir()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLog(dir, nil, WithClock(func() time.Time { return fixed }))
	l.AppendOne("r", newRecord("m"))

	data, _ := os.ReadFile(filepath.Join(dir, "kafka-fallback-0.log"))
	var parsed map[string]any
	_ = json.Unmarshal(data[:len(data)-1], &parsed)
	if parsed["timestamp"] != fixed.Format(time.RFC3339Nano) {
		t.Errorf("timestamp = %v", parsed["timestamp"])
	}
}
