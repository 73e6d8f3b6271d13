// Package botlog keeps a bounded in-memory log of operational events and
// fans them out to live subscribers. Events also land on the structured
// logger so they can be grepped from container logs.
package botlog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/FocuswithJustin/DailyBread/internal/logging"
)

// Level is an event severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

var levelRank = map[Level]int{
	LevelDebug: 10,
	LevelInfo:  20,
	LevelWarn:  30,
	LevelError: 40,
}

// ParseLevel maps a config string to a Level. Unknown strings map to info.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// Entry is a single logged event.
type Entry struct {
	Timestamp     time.Time         `json:"timestamp"`
	Level         Level             `json:"level"`
	Event         string            `json:"event"`
	Message       string            `json:"message,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	// Count > 1 means identical warn/error events were coalesced.
	Count int `json:"count"`
}

// Line renders the entry as a single log line, fields in key order.
func (e Entry) Line() string {
	var b strings.Builder
	b.WriteString(e.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString(" [")
	b.WriteString(strings.ToUpper(string(e.Level)))
	b.WriteString("] ")
	b.WriteString(e.Event)

	if e.CorrelationID != "" {
		b.WriteString(" cid=")
		b.WriteString(sanitizeValue(e.CorrelationID))
	}
	if e.Message != "" {
		b.WriteString(" msg=")
		b.WriteString(sanitizeValue(e.Message))
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if e.Fields[k] == "" {
			continue
		}
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(sanitizeValue(e.Fields[k]))
	}

	if e.Count > 1 {
		b.WriteString(" x")
		b.WriteString(intToString(e.Count))
	}

	return b.String()
}

func intToString(n int) string {
	if n == 0 {
		return "0"
	}
	var digits [20]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}

const maxValueChars = 500

func sanitizeValue(v string) string {
	v = strings.ReplaceAll(v, "\r", "")
	v = strings.ReplaceAll(v, "\n", "\\n")
	if len(v) > maxValueChars {
		v = v[:maxValueChars]
	}
	return v
}

// Config tunes the event log.
type Config struct {
	// Level is the minimum severity recorded.
	Level Level
	// Capacity bounds the retained ring; older entries are dropped.
	Capacity int
	// CoalesceWindow merges identical consecutive warn/error events
	// recorded within the window into one counted entry.
	CoalesceWindow time.Duration
	// SubscriberBuffer sizes per-subscriber channels. Slow subscribers
	// miss events rather than blocking the recorder.
	SubscriberBuffer int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Level:            LevelInfo,
		Capacity:         500,
		CoalesceWindow:   15 * time.Second,
		SubscriberBuffer: 64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Level == "" {
		c.Level = d.Level
	}
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	if c.CoalesceWindow <= 0 {
		c.CoalesceWindow = d.CoalesceWindow
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = d.SubscriberBuffer
	}
	return c
}

// Health is a snapshot of the log's internal counters.
type Health struct {
	Level       Level      `json:"level"`
	Size        int        `json:"size"`
	Capacity    int        `json:"capacity"`
	Dropped     int64      `json:"dropped"`
	Subscribers int        `json:"subscribers"`
	LastEventAt *time.Time `json:"lastEventAt,omitempty"`
}

// Log is a bounded, subscribable event log. The zero value is not usable;
// construct with New.
type Log struct {
	cfg Config
	now func() time.Time

	mu          sync.Mutex
	entries     []Entry
	dropped     int64
	lastKey     string
	lastAt      time.Time
	subscribers map[chan Entry]struct{}
}

// New constructs a Log with the given config; zero fields take defaults.
func New(cfg Config) *Log {
	return &Log{
		cfg:         cfg.withDefaults(),
		now:         time.Now,
		subscribers: make(map[chan Entry]struct{}),
	}
}

// Record logs an event. Events under the configured level are discarded.
// Fields are copied.
func (l *Log) Record(ctx context.Context, level Level, event, message string, fields map[string]string) {
	if levelRank[level] == 0 {
		level = LevelInfo
	}
	if levelRank[level] < levelRank[l.cfg.Level] {
		return
	}

	entry := Entry{
		Timestamp:     l.now(),
		Level:         level,
		Event:         strings.TrimSpace(event),
		Message:       message,
		CorrelationID: logging.GetRequestID(ctx),
		Count:         1,
	}
	if entry.Event == "" {
		entry.Event = "event"
	}
	if len(fields) > 0 {
		entry.Fields = make(map[string]string, len(fields))
		for k, v := range fields {
			entry.Fields[k] = v
		}
	}

	l.logStructured(ctx, entry)

	l.mu.Lock()
	key := string(entry.Level) + "|" + entry.Event + "|" + entry.Message
	canCoalesce := entry.Level == LevelWarn || entry.Level == LevelError
	if canCoalesce && len(l.entries) > 0 && l.lastKey == key &&
		entry.Timestamp.Sub(l.lastAt) <= l.cfg.CoalesceWindow {
		last := &l.entries[len(l.entries)-1]
		lastEntryKey := string(last.Level) + "|" + last.Event + "|" + last.Message
		if lastEntryKey == key {
			last.Count++
			last.Timestamp = entry.Timestamp
			l.lastAt = entry.Timestamp
			l.mu.Unlock()
			return
		}
	}

	if len(l.entries) >= l.cfg.Capacity {
		l.dropped++
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, entry)
	l.lastKey = key
	l.lastAt = entry.Timestamp

	for ch := range l.subscribers {
		select {
		case ch <- entry:
		default:
			// Slow subscriber: skip rather than block the recorder.
		}
	}
	l.mu.Unlock()
}

func (l *Log) logStructured(ctx context.Context, entry Entry) {
	args := []any{"event", entry.Event}
	if entry.Message != "" {
		args = append(args, "message", entry.Message)
	}
	for k, v := range entry.Fields {
		args = append(args, k, v)
	}
	switch entry.Level {
	case LevelDebug:
		logging.DebugContext(ctx, "bot_event", args...)
	case LevelWarn:
		logging.WarnContext(ctx, "bot_event", args...)
	case LevelError:
		logging.ErrorContext(ctx, "bot_event", args...)
	default:
		logging.InfoContext(ctx, "bot_event", args...)
	}
}

// RecordError logs an error-level event carrying the error text.
func (l *Log) RecordError(ctx context.Context, event string, err error, fields map[string]string) {
	merged := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	if err != nil {
		merged["error"] = err.Error()
	}
	l.Record(ctx, LevelError, event, "", merged)
}

// Recent returns up to limit most recent entries, oldest first.
// limit <= 0 returns everything retained.
func (l *Log) Recent(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Subscribe registers a live feed of new entries. The returned cancel
// function must be called to release the subscription.
func (l *Log) Subscribe() (<-chan Entry, func()) {
	ch := make(chan Entry, l.cfg.SubscriberBuffer)

	l.mu.Lock()
	l.subscribers[ch] = struct{}{}
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		if _, ok := l.subscribers[ch]; ok {
			delete(l.subscribers, ch)
			close(ch)
		}
		l.mu.Unlock()
	}
	return ch, cancel
}

// Health reports current counters.
func (l *Log) Health() Health {
	l.mu.Lock()
	defer l.mu.Unlock()

	h := Health{
		Level:       l.cfg.Level,
		Size:        len(l.entries),
		Capacity:    l.cfg.Capacity,
		Dropped:     l.dropped,
		Subscribers: len(l.subscribers),
	}
	if len(l.entries) > 0 {
		ts := l.entries[len(l.entries)-1].Timestamp
		h.LastEventAt = &ts
	}
	return h
}
