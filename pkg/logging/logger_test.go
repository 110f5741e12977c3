package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Failed to unmarshal log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"Warn", WarnLevel},
		{"warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"", InfoLevel},
		{"invalid", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestStorageFieldHelpers(t *testing.T) {
	tests := []struct {
		field Field
		key   string
		value any
	}{
		{Key(7), "key", uint64(7)},
		{TableLevel(3), "level", 3},
		{Table("/data/level-0/1.sst"), "table", "/data/level-0/1.sst"},
		{Timestamp(99), "timestamp", uint64(99)},
		{Component("lsm"), "component", "lsm"},
		{Duration("timeout", 5 * time.Second), "timeout", "5s"},
		{Error(errors.New("boom")), "error", "boom"},
		{Error(nil), "error", nil},
	}

	for _, tt := range tests {
		if tt.field.Key != tt.key || tt.field.Value != tt.value {
			t.Errorf("field = %+v, want {%s %v}", tt.field, tt.key, tt.value)
		}
	}
}

func TestJSONLogger_BasicLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("flushed memtable", Count(12), TableLevel(0))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != "INFO" {
		t.Errorf("Level = %v, want INFO", entry.Level)
	}
	if entry.Message != "flushed memtable" {
		t.Errorf("Message = %v", entry.Message)
	}
	if entry.Fields["count"] != float64(12) { // JSON unmarshals numbers as float64
		t.Errorf("count field = %v, want 12", entry.Fields["count"])
	}
	if entry.Time == "" {
		t.Error("Time field is empty")
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != "WARN" || entries[1].Level != "ERROR" {
		t.Errorf("Levels = %s, %s; want WARN, ERROR", entries[0].Level, entries[1].Level)
	}
}

func TestJSONLogger_WithSharesLevelAndWriter(t *testing.T) {
	var buf bytes.Buffer
	parent := NewJSONLogger(&buf, InfoLevel)
	child := parent.With(Component("lsm"), String("store_id", "abc"))

	child.Info("opened")
	parent.SetLevel(ErrorLevel)
	child.Info("suppressed")

	if child.GetLevel() != ErrorLevel {
		t.Errorf("child level = %v, want ERROR", child.GetLevel())
	}

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Fields["component"] != "lsm" || entries[0].Fields["store_id"] != "abc" {
		t.Errorf("preset fields missing: %v", entries[0].Fields)
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	StartTimer(logger, "compaction", TableLevel(1)).End(Count(3))
	StartTimer(logger, "flush").EndError(errors.New("disk full"))

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "compaction" || entries[0].Fields["latency"] == nil {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Level != "ERROR" || entries[1].Message != "flush failed" || entries[1].Fields["error"] != "disk full" {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("ignored", Key(1))
	if logger.With(Component("x")) == nil {
		t.Error("With returned nil")
	}
	if logger.GetLevel() != InfoLevel {
		t.Errorf("GetLevel() = %v, want INFO", logger.GetLevel())
	}
}

func TestDefaultLogger(t *testing.T) {
	original := DefaultLogger()
	defer SetDefaultLogger(original)

	nop := NewNopLogger()
	SetDefaultLogger(nop)
	if DefaultLogger() != nop {
		t.Error("SetDefaultLogger did not replace the default logger")
	}
}
