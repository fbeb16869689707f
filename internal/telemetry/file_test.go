package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileSink_AppendsJSONLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.jsonl")
	sink := NewFileSink(path)

	latency := int64(42)
	events := []Event{
		{
			Timestamp:  time.Date(2026, time.April, 2, 8, 0, 0, 0, time.UTC),
			Intent:     "navigate_next",
			Confidence: 0.95,
			Backend:    "remote",
			LatencyMs:  &latency,
			Slots:      map[string]any{"count": 5},
		},
		{
			Timestamp:  time.Date(2026, time.April, 2, 8, 0, 1, 0, time.UTC),
			Intent:     "unknown",
			Confidence: 0,
			Backend:    "local_fallback",
		},
	}
	for _, ev := range events {
		if err := sink.LogIntentEvent(context.Background(), ev); err != nil {
			t.Fatalf("LogIntentEvent: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var got []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		got = append(got, ev)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != len(events) {
		t.Fatalf("got %d lines, want %d", len(got), len(events))
	}
	if got[0].Intent != "navigate_next" || got[0].Backend != "remote" {
		t.Errorf("first event = %+v", got[0])
	}
	if got[0].LatencyMs == nil || *got[0].LatencyMs != 42 {
		t.Errorf("first event LatencyMs = %v, want 42", got[0].LatencyMs)
	}
	if got[1].Intent != "unknown" || got[1].Backend != "local_fallback" {
		t.Errorf("second event = %+v", got[1])
	}
}

func TestFileSink_ConcurrentWritesStayLineAtomic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.jsonl")
	sink := NewFileSink(path)

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				ev := Event{Timestamp: time.Now(), Intent: "pause", Backend: "remote"}
				if err := sink.LogIntentEvent(context.Background(), ev); err != nil {
					t.Errorf("LogIntentEvent: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		lines++
	}
	if lines != writers*perWriter {
		t.Errorf("got %d lines, want %d", lines, writers*perWriter)
	}
}

func TestFileSink_UnwritablePath(t *testing.T) {
	t.Parallel()

	sink := NewFileSink(filepath.Join(t.TempDir(), "missing-dir", "events.jsonl"))
	if err := sink.LogIntentEvent(context.Background(), Event{Intent: "pause"}); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}

func TestNopSink(t *testing.T) {
	t.Parallel()

	var sink Sink = Nop{}
	if err := sink.LogIntentEvent(context.Background(), Event{Intent: "pause"}); err != nil {
		t.Fatalf("Nop sink returned error: %v", err)
	}
}
