package botlog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/FocuswithJustin/DailyBread/internal/logging"
)

func newTestLog(cfg Config) (*Log, *time.Time) {
	l := New(cfg)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestRecordAndRecent(t *testing.T) {
	l, _ := newTestLog(Config{})
	ctx := context.Background()

	l.Record(ctx, LevelInfo, "verse_sent", "", map[string]string{"book": "JHN"})
	l.Record(ctx, LevelInfo, "verse_sent", "", map[string]string{"book": "GEN"})

	entries := l.Recent(0)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Fields["book"] != "JHN" || entries[1].Fields["book"] != "GEN" {
		t.Errorf("entries out of order: %+v", entries)
	}

	limited := l.Recent(1)
	if len(limited) != 1 || limited[0].Fields["book"] != "GEN" {
		t.Errorf("Recent(1) = %+v, want newest entry", limited)
	}
}

func TestLevelThreshold(t *testing.T) {
	l, _ := newTestLog(Config{Level: LevelWarn})
	ctx := context.Background()

	l.Record(ctx, LevelInfo, "ignored", "", nil)
	l.Record(ctx, LevelDebug, "ignored", "", nil)
	l.Record(ctx, LevelError, "kept", "", nil)

	entries := l.Recent(0)
	if len(entries) != 1 || entries[0].Event != "kept" {
		t.Errorf("entries = %+v, want only error event", entries)
	}
}

func TestCapacityDropsOldest(t *testing.T) {
	l, _ := newTestLog(Config{Capacity: 3})
	ctx := context.Background()

	for _, event := range []string{"a", "b", "c", "d"} {
		l.Record(ctx, LevelInfo, event, "", nil)
	}

	entries := l.Recent(0)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Event != "b" || entries[2].Event != "d" {
		t.Errorf("ring contents wrong: %+v", entries)
	}
	if l.Health().Dropped != 1 {
		t.Errorf("dropped = %d, want 1", l.Health().Dropped)
	}
}

func TestCoalescesRepeatedErrors(t *testing.T) {
	l, now := newTestLog(Config{CoalesceWindow: 15 * time.Second})
	ctx := context.Background()

	l.Record(ctx, LevelError, "api_failure", "timeout", nil)
	*now = now.Add(5 * time.Second)
	l.Record(ctx, LevelError, "api_failure", "timeout", nil)
	*now = now.Add(5 * time.Second)
	l.Record(ctx, LevelError, "api_failure", "timeout", nil)

	entries := l.Recent(0)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 coalesced", len(entries))
	}
	if entries[0].Count != 3 {
		t.Errorf("count = %d, want 3", entries[0].Count)
	}

	// Outside the window a fresh entry starts.
	*now = now.Add(time.Minute)
	l.Record(ctx, LevelError, "api_failure", "timeout", nil)
	if got := len(l.Recent(0)); got != 2 {
		t.Errorf("got %d entries after window, want 2", got)
	}
}

func TestInfoEventsNeverCoalesce(t *testing.T) {
	l, _ := newTestLog(Config{})
	ctx := context.Background()

	l.Record(ctx, LevelInfo, "verse_sent", "same", nil)
	l.Record(ctx, LevelInfo, "verse_sent", "same", nil)

	if got := len(l.Recent(0)); got != 2 {
		t.Errorf("got %d entries, want 2 distinct info events", got)
	}
}

func TestSubscribeReceivesEntries(t *testing.T) {
	l, _ := newTestLog(Config{})
	ch, cancel := l.Subscribe()
	defer cancel()

	l.Record(context.Background(), LevelInfo, "verse_sent", "", nil)

	select {
	case entry := <-ch:
		if entry.Event != "verse_sent" {
			t.Errorf("event = %q", entry.Event)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive entry")
	}
}

func TestCancelClosesSubscription(t *testing.T) {
	l, _ := newTestLog(Config{})
	ch, cancel := l.Subscribe()
	cancel()
	cancel() // double cancel is safe

	if _, open := <-ch; open {
		t.Error("channel should be closed after cancel")
	}
	if got := l.Health().Subscribers; got != 0 {
		t.Errorf("subscribers = %d, want 0", got)
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	l, _ := newTestLog(Config{SubscriberBuffer: 1})
	_, cancel := l.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			l.Record(context.Background(), LevelInfo, "burst", "", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full subscriber channel")
	}
}

func TestRecordError(t *testing.T) {
	l, _ := newTestLog(Config{})

	l.RecordError(context.Background(), "upstream_failure", errors.New("boom"), map[string]string{"url": "/x"})

	entries := l.Recent(0)
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Level != LevelError || entries[0].Fields["error"] != "boom" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestRecordCarriesCorrelationID(t *testing.T) {
	l, _ := newTestLog(Config{})
	ctx := logging.WithRequestID(context.Background(), "cid-42")

	l.Record(ctx, LevelInfo, "verse_sent", "", nil)

	entries := l.Recent(0)
	if entries[0].CorrelationID != "cid-42" {
		t.Errorf("correlationId = %q, want cid-42", entries[0].CorrelationID)
	}
}

func TestEntryLine(t *testing.T) {
	entry := Entry{
		Timestamp:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Level:         LevelWarn,
		Event:         "api_retry",
		Message:       "line one\nline two",
		CorrelationID: "cid-1",
		Fields:        map[string]string{"b": "2", "a": "1", "empty": ""},
		Count:         3,
	}

	line := entry.Line()
	want := "2026-03-01T12:00:00Z [WARN] api_retry cid=cid-1 msg=line one\\nline two a=1 b=2 x3"
	if line != want {
		t.Errorf("Line() = %q, want %q", line, want)
	}
	if strings.Contains(line, "empty=") {
		t.Error("empty fields must be omitted")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{" WARN ", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
