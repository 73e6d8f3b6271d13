// Package disambig holds pending book-confirmation sessions. When a parse
// cannot confidently resolve a book name, the pending state is parked here
// under a session ID until the caller confirms a candidate or the session
// expires.
package disambig

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/DailyBread/core/ref"
	"github.com/FocuswithJustin/DailyBread/internal/botlog"
)

const (
	// DefaultTTL is how long an unconfirmed session stays valid.
	DefaultTTL = 25 * time.Minute
	// DefaultMaxSessions bounds the store; oldest sessions are evicted.
	DefaultMaxSessions = 250
)

var (
	// ErrNotFound means the session ID is unknown or expired.
	ErrNotFound = errors.New("disambiguation session not found or expired")
)

// Session is one pending confirmation.
type Session struct {
	ID        string     `json:"id"`
	Pending   ref.Result `json:"pending"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Config tunes a Store.
type Config struct {
	TTL         time.Duration
	MaxSessions int
}

// Store keeps pending sessions in memory. Expired sessions are swept
// lazily on access.
type Store struct {
	parser *ref.Parser
	events *botlog.Log
	ttl    time.Duration
	max    int
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	order    []string // insertion order for oldest-first eviction
}

// NewStore builds a Store backed by the given parser. The events log may
// be nil. Zero config fields take defaults.
func NewStore(parser *ref.Parser, events *botlog.Log, cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	return &Store{
		parser:   parser,
		events:   events,
		ttl:      cfg.TTL,
		max:      cfg.MaxSessions,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create parks a needs_confirmation result and returns its session.
func (s *Store) Create(ctx context.Context, pending ref.Result) (*Session, error) {
	if pending.Kind != ref.KindNeedsConfirmation {
		return nil, errors.New("only needs_confirmation results can open a session")
	}

	now := s.now()
	session := &Session{
		ID:        uuid.NewString(),
		Pending:   pending,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sweepLocked(now)
	s.pruneLocked()
	s.sessions[session.ID] = session
	s.order = append(s.order, session.ID)
	s.mu.Unlock()

	s.record(ctx, "disambig.created", session.ID, map[string]string{
		"book_part":  pending.BookPart,
		"chapter":    strconv.Itoa(pending.Chapter),
		"candidates": strconv.Itoa(candidateCount(pending)),
	})
	return session, nil
}

// Get fetches a live session.
func (s *Store) Get(id string) (*Session, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if now.After(session.ExpiresAt) {
		s.deleteLocked(id)
		return nil, ErrNotFound
	}
	return session, nil
}

// Resolve confirms a candidate book for a pending session. On a successful
// or failed parse the session is consumed either way; the caller gets the
// final parse result.
func (s *Store) Resolve(ctx context.Context, id, bookID string) (ref.Result, error) {
	session, err := s.Get(id)
	if err != nil {
		return ref.Result{}, err
	}

	result := s.parser.ParseConfirmed(session.Pending, bookID)

	s.mu.Lock()
	s.deleteLocked(id)
	s.mu.Unlock()

	fields := map[string]string{"book_id": bookID, "kind": string(result.Kind)}
	s.record(ctx, "disambig.resolved", id, fields)
	return result, nil
}

// Cancel drops a pending session. Unknown IDs report ErrNotFound.
func (s *Store) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	if ok {
		s.deleteLocked(id)
	}
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.record(ctx, "disambig.cancelled", id, nil)
	return nil
}

// Len reports the number of retained sessions, expired ones included
// until the next sweep.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) record(ctx context.Context, event, sessionID string, fields map[string]string) {
	if s.events == nil {
		return
	}
	merged := map[string]string{"session_id": sessionID}
	for k, v := range fields {
		merged[k] = v
	}
	s.events.Record(ctx, botlog.LevelInfo, event, "", merged)
}

func (s *Store) sweepLocked(now time.Time) {
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			s.deleteLocked(id)
		}
	}
}

func (s *Store) pruneLocked() {
	for len(s.sessions) >= s.max && len(s.order) > 0 {
		oldest := s.order[0]
		if _, ok := s.sessions[oldest]; ok {
			delete(s.sessions, oldest)
		}
		s.order = s.order[1:]
	}
}

func (s *Store) deleteLocked(id string) {
	delete(s.sessions, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func candidateCount(pending ref.Result) int {
	if pending.Resolver == nil {
		return 0
	}
	return len(pending.Resolver.Candidates)
}
