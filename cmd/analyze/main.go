// Command analyze prints quick, human-readable statistics about captured
// channel traffic. It reads frame capture files (one JSON envelope per
// line, the wire format the socket sends and receives), classifies each
// frame, and summarizes topics, events, error replies, and frames the
// classifier could not place.
package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	"github.com/cowork-labs/cowork-core/reconcile"
	"github.com/cowork-labs/cowork-core/transport/channel"
)

// captureStats accumulates per-file counters during analysis.
type captureStats struct {
	Frames       int
	Malformed    int
	Topics       map[string]int
	Events       map[string]int
	ErrorReplies []string
	Unrecognized int
}

func newCaptureStats() *captureStats {
	return &captureStats{
		Topics: make(map[string]int),
		Events: make(map[string]int),
	}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: analyze <capture-file> [...]")
		os.Exit(1)
	}

	failed := false
	for _, path := range os.Args[1:] {
		fmt.Printf("\n=== Analyzing %s ===\n", path)
		stats, err := analyzeCapture(path)
		if err != nil {
			fmt.Printf("Error reading capture: %v\n", err)
			failed = true
			continue
		}
		printStats(stats)
	}
	if failed {
		os.Exit(1)
	}
}

// analyzeCapture reads a capture file line by line and classifies every
// frame. Lines that do not decode as envelopes are counted as malformed
// rather than aborting the run, so a truncated capture still reports.
func analyzeCapture(path string) (*captureStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stats := newCaptureStats()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		stats.Frames++

		env, err := channel.DecodeEnvelope(line)
		if err != nil {
			stats.Malformed++
			continue
		}
		stats.Topics[env.Topic]++
		stats.Events[env.Event]++

		switch msg := reconcile.Decode(env).(type) {
		case reconcile.ErrorReported:
			stats.ErrorReplies = append(stats.ErrorReplies, fmt.Sprintf("%s: %s", msg.Topic, msg.Reason))
		case reconcile.Unrecognized:
			stats.Unrecognized++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func printStats(stats *captureStats) {
	fmt.Printf("Frames: %d\n", stats.Frames)
	if stats.Malformed > 0 {
		fmt.Printf("Malformed: %d\n", stats.Malformed)
	}

	fmt.Println("Topics:")
	for _, topic := range sortedKeys(stats.Topics) {
		marker := " "
		if !channel.IsCoworkingTopic(topic) {
			marker = "?"
		}
		fmt.Printf("  %s %-40s %d\n", marker, topic, stats.Topics[topic])
	}

	fmt.Println("Events:")
	for _, event := range sortedKeys(stats.Events) {
		fmt.Printf("    %-40s %d\n", event, stats.Events[event])
	}

	if len(stats.ErrorReplies) > 0 {
		fmt.Printf("Error replies: %d\n", len(stats.ErrorReplies))
		for i, reason := range stats.ErrorReplies {
			if i >= 5 {
				fmt.Printf("  ... and %d more\n", len(stats.ErrorReplies)-5)
				break
			}
			fmt.Printf("  %s\n", reason)
		}
	}
	if stats.Unrecognized > 0 {
		fmt.Printf("Unclassified frames: %d\n", stats.Unrecognized)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
