package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCapture(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("Failed to write capture: %v", err)
	}
	return path
}

func TestAnalyzeCapture(t *testing.T) {
	capture := `{"topic":"coworking_session:lobby","event":"phx_join","payload":{},"ref":"1"}
{"topic":"coworking_session:lobby","event":"phx_reply","payload":{"status":"ok","response":{}},"ref":"1"}
{"topic":"coworking_session:xyz123","event":"phx_join","payload":{},"ref":"2"}
{"topic":"coworking_session:xyz123","event":"lobby_update","payload":{"userIds":["u1","u2"]}}
`

	stats, err := analyzeCapture(writeCapture(t, capture))
	if err != nil {
		t.Fatalf("analyzeCapture failed: %v", err)
	}

	if stats.Frames != 4 {
		t.Errorf("Expected 4 frames, got %d", stats.Frames)
	}
	if stats.Malformed != 0 {
		t.Errorf("Expected no malformed frames, got %d", stats.Malformed)
	}
	if got := stats.Topics["coworking_session:lobby"]; got != 2 {
		t.Errorf("Expected 2 lobby frames, got %d", got)
	}
	if got := stats.Topics["coworking_session:xyz123"]; got != 2 {
		t.Errorf("Expected 2 session frames, got %d", got)
	}
	if got := stats.Events["phx_join"]; got != 2 {
		t.Errorf("Expected 2 join frames, got %d", got)
	}
}

func TestAnalyzeCaptureErrorReplies(t *testing.T) {
	capture := `{"topic":"coworking_session:xyz123","event":"phx_reply","payload":{"status":"error","response":"not found"},"ref":"9"}
`

	stats, err := analyzeCapture(writeCapture(t, capture))
	if err != nil {
		t.Fatalf("analyzeCapture failed: %v", err)
	}

	if len(stats.ErrorReplies) != 1 {
		t.Fatalf("Expected 1 error reply, got %d", len(stats.ErrorReplies))
	}
	if stats.ErrorReplies[0] != "coworking_session:xyz123: not found" {
		t.Errorf("Unexpected error reply: %s", stats.ErrorReplies[0])
	}
}

func TestAnalyzeCaptureMalformedAndBlankLines(t *testing.T) {
	capture := `{"topic":"coworking_session:lobby","event":"phx_join","payload":{}}

not json at all
{"event":"phx_join","payload":{}}
`

	stats, err := analyzeCapture(writeCapture(t, capture))
	if err != nil {
		t.Fatalf("analyzeCapture failed: %v", err)
	}

	// Blank lines are skipped entirely; the unparseable line and the
	// envelope without a topic both count as malformed.
	if stats.Frames != 3 {
		t.Errorf("Expected 3 frames, got %d", stats.Frames)
	}
	if stats.Malformed != 2 {
		t.Errorf("Expected 2 malformed frames, got %d", stats.Malformed)
	}
}

func TestAnalyzeCaptureCountsUnclassified(t *testing.T) {
	capture := `{"topic":"other:topic","event":"something","payload":{}}
{"topic":"coworking_session:lobby","event":"mystery_event","payload":{}}
`

	stats, err := analyzeCapture(writeCapture(t, capture))
	if err != nil {
		t.Fatalf("analyzeCapture failed: %v", err)
	}

	if stats.Unrecognized != 2 {
		t.Errorf("Expected 2 unclassified frames, got %d", stats.Unrecognized)
	}
}

func TestAnalyzeCaptureMissingFile(t *testing.T) {
	if _, err := analyzeCapture(filepath.Join(t.TempDir(), "nope.jsonl")); err == nil {
		t.Error("Expected error for missing capture file")
	}
}
