package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSubscribeAndIsSubscribed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Subscribe(ctx, "user-1"); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	subscribed, err := s.IsSubscribed(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if !subscribed {
		t.Error("user-1 should be subscribed")
	}

	subscribed, err = s.IsSubscribed(ctx, "user-2")
	if err != nil {
		t.Fatal(err)
	}
	if subscribed {
		t.Error("user-2 should not be subscribed")
	}
}

func TestSubscribeTwice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Subscribe(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Subscribe(ctx, "user-1"); err != ErrAlreadySubscribed {
		t.Errorf("second Subscribe = %v, want ErrAlreadySubscribed", err)
	}
}

func TestSubscribeRequiresUserID(t *testing.T) {
	s := newTestStore(t)
	if err := s.Subscribe(context.Background(), ""); err == nil {
		t.Error("empty userID should fail")
	}
}

func TestUnsubscribe(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Subscribe(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Unsubscribe(ctx, "user-1"); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if err := s.Unsubscribe(ctx, "user-1"); err != ErrNotSubscribed {
		t.Errorf("second Unsubscribe = %v, want ErrNotSubscribed", err)
	}

	subscribed, _ := s.IsSubscribed(ctx, "user-1")
	if subscribed {
		t.Error("user-1 should be gone")
	}
}

func TestSubscriptionsOrderAndPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, user := range []string{"alpha", "bravo", "charlie"} {
		tick := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return tick }
		if err := s.Subscribe(ctx, user); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.Subscriptions(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d subscriptions, want 3", len(all))
	}
	if all[0].UserID != "alpha" || all[2].UserID != "charlie" {
		t.Errorf("order wrong: %+v", all)
	}
	if all[0].CreatedAt.IsZero() {
		t.Error("createdAt should round-trip")
	}

	page, err := s.Subscriptions(ctx, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].UserID != "bravo" {
		t.Errorf("page = %+v, want [bravo]", page)
	}
}

func TestRemoveAllSubscriptions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, user := range []string{"a", "b"} {
		if err := s.Subscribe(ctx, user); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.RemoveAllSubscriptions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.SubscribedUsers != 0 {
		t.Errorf("subscribedUsersCount = %d, want 0", stats.SubscribedUsers)
	}
}

func TestCounters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if got, err := s.Counter(ctx, CounterVersesSent); err != nil || got != 0 {
		t.Errorf("fresh counter = %d, %v; want 0, nil", got, err)
	}

	for i := 0; i < 3; i++ {
		if err := s.IncrementCounter(ctx, CounterVersesSent); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.IncrementCounter(ctx, CounterCommandsExecuted); err != nil {
		t.Fatal(err)
	}

	if got, _ := s.Counter(ctx, CounterVersesSent); got != 3 {
		t.Errorf("verses_sent = %d, want 3", got)
	}
	if got, _ := s.Counter(ctx, CounterCommandsExecuted); got != 1 {
		t.Errorf("commands_executed = %d, want 1", got)
	}
}

func TestStatsSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Subscribe(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementCounter(ctx, CounterVersesSent); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementCounter(ctx, CounterReferencesParsed); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.SubscribedUsers != 1 || stats.VersesSent != 1 || stats.ReferencesParsed != 1 || stats.CommandsExecuted != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestOpenBootstrapsTwice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	first, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Subscribe(context.Background(), "user-1"); err != nil {
		t.Fatal(err)
	}
	first.Close()

	// Reopening must not clobber existing data.
	second, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	subscribed, err := second.IsSubscribed(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if !subscribed {
		t.Error("data should survive reopen")
	}
}
