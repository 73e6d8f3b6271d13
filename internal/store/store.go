// Package store persists verse subscriptions and delivery counters in
// SQLite. The schema is bootstrapped on open so a fresh deployment needs
// no migration step.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/FocuswithJustin/DailyBread/core/sqlite"
	"github.com/FocuswithJustin/DailyBread/internal/logging"
)

// ErrAlreadySubscribed is returned when subscribing a subscribed user.
var ErrAlreadySubscribed = errors.New("user is already subscribed")

// ErrNotSubscribed is returned when unsubscribing an unknown user.
var ErrNotSubscribed = errors.New("user is not subscribed")

// Counter names tracked in the stats table.
const (
	CounterVersesSent       = "verses_sent"
	CounterCommandsExecuted = "commands_executed"
	CounterReferencesParsed = "references_parsed"
)

const schema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	user_id    TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS stats (
	name  TEXT PRIMARY KEY,
	value INTEGER NOT NULL DEFAULT 0
);
`

// Subscription is one subscribed user.
type Subscription struct {
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats is a snapshot of the tracked counters.
type Stats struct {
	SubscribedUsers  int64 `json:"subscribedUsersCount"`
	VersesSent       int64 `json:"totalVersesSent"`
	CommandsExecuted int64 `json:"totalCommandsExecuted"`
	ReferencesParsed int64 `json:"totalReferencesParsed"`
}

// Store wraps the SQLite database. Safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the store at path and bootstraps the
// schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrapping store schema: %w", err)
	}
	logging.Info("store_opened", "path", path, "driver", sqlite.DriverType())
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Subscribe adds a user. Subscribing twice reports ErrAlreadySubscribed.
func (s *Store) Subscribe(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("userID is required")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, created_at) VALUES (?, ?) ON CONFLICT (user_id) DO NOTHING`,
		userID, s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("subscribing %s: %w", userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadySubscribed
	}
	return nil
}

// Unsubscribe removes a user. Unknown users report ErrNotSubscribed.
func (s *Store) Unsubscribe(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("unsubscribing %s: %w", userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotSubscribed
	}
	return nil
}

// IsSubscribed reports whether a user is subscribed.
func (s *Store) IsSubscribed(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM subscriptions WHERE user_id = ?`, userID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Subscriptions lists subscribed users ordered by signup time, then
// user ID for a stable order. limit <= 0 means no limit.
func (s *Store) Subscriptions(ctx context.Context, limit, offset int) ([]Subscription, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, created_at FROM subscriptions ORDER BY created_at, user_id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		var createdAt string
		if err := rows.Scan(&sub.UserID, &createdAt); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			sub.CreatedAt = ts
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// RemoveAllSubscriptions drops every subscription and returns the count
// removed.
func (s *Store) RemoveAllSubscriptions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// IncrementCounter bumps a named counter by one.
func (s *Store) IncrementCounter(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stats (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = value + 1`,
		name,
	)
	if err != nil {
		return fmt.Errorf("incrementing counter %s: %w", name, err)
	}
	return nil
}

// Counter reads a named counter; unknown counters read as zero.
func (s *Store) Counter(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM stats WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return value, err
}

// Stats assembles the full counter snapshot, including the live
// subscription count.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions`).Scan(&stats.SubscribedUsers); err != nil {
		return Stats{}, err
	}

	var err error
	if stats.VersesSent, err = s.Counter(ctx, CounterVersesSent); err != nil {
		return Stats{}, err
	}
	if stats.CommandsExecuted, err = s.Counter(ctx, CounterCommandsExecuted); err != nil {
		return Stats{}, err
	}
	if stats.ReferencesParsed, err = s.Counter(ctx, CounterReferencesParsed); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
