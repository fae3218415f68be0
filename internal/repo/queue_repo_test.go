package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sisolabs/go-community-backend/internal/domain"
)

func TestEnterQueue_Error_NoTable(t *testing.T) {
	db := newRepoDB(t /* no migrations */)
	e, err := EnterQueue(context.Background(), db, "u1", "Te")
	if err == nil || e != nil {
		t.Fatalf("expected error without table, got e=%v err=%v", e, err)
	}
}

func TestEnterQueue_CreatesWaitingRow(t *testing.T) {
	db := newRepoDB(t, &domain.QueueEntry{})

	e, err := EnterQueue(context.Background(), db, "u1", "Te")
	if err != nil {
		t.Fatalf("EnterQueue: %v", err)
	}
	if e.ID == "" || e.Status != domain.QueueStatusWaiting || e.Language != "Te" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if n, _ := CountWaiting(context.Background(), db); n != 1 {
		t.Fatalf("waiting = %d; want 1", n)
	}
}

func TestEnterQueue_ReplacesPreviousEntry(t *testing.T) {
	db := newRepoDB(t, &domain.QueueEntry{})

	first, err := EnterQueue(context.Background(), db, "u1", "Te")
	if err != nil {
		t.Fatalf("first EnterQueue: %v", err)
	}
	second, err := EnterQueue(context.Background(), db, "u1", "Hi")
	if err != nil {
		t.Fatalf("second EnterQueue: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("re-entry must create a fresh row")
	}

	// Exactly one row for the user, carrying the new language.
	entries, err := ListWaiting(context.Background(), db)
	if err != nil {
		t.Fatalf("ListWaiting: %v", err)
	}
	if len(entries) != 1 || entries[0].Language != "Hi" {
		t.Fatalf("queue = %+v; want single Hi entry", entries)
	}
}

func TestListWaiting_OldestFirst(t *testing.T) {
	db := newRepoDB(t, &domain.QueueEntry{})

	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, u := range []string{"c", "a", "b"} {
		e := domain.QueueEntry{
			ID: u + "-id", UserID: u, Language: "Te",
			Status: domain.QueueStatusWaiting, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(&e).Error; err != nil {
			t.Fatalf("seed %s: %v", u, err)
		}
	}

	out, err := ListWaiting(context.Background(), db)
	if err != nil {
		t.Fatalf("ListWaiting: %v", err)
	}
	if len(out) != 3 || out[0].UserID != "c" || out[2].UserID != "b" {
		t.Fatalf("order wrong: %+v", out)
	}
}

func TestRemoveFromQueue_Idempotent(t *testing.T) {
	db := newRepoDB(t, &domain.QueueEntry{})
	if _, err := EnterQueue(context.Background(), db, "u1", "Te"); err != nil {
		t.Fatalf("EnterQueue: %v", err)
	}

	n, err := RemoveFromQueue(context.Background(), db, "u1")
	if err != nil || n != 1 {
		t.Fatalf("RemoveFromQueue = %d, %v; want 1", n, err)
	}
	n, err = RemoveFromQueue(context.Background(), db, "u1")
	if err != nil || n != 0 {
		t.Fatalf("second remove = %d, %v; want 0", n, err)
	}
}

func TestRemoveMatchedPair_DeletesBoth(t *testing.T) {
	db := newRepoDB(t, &domain.QueueEntry{})
	for _, u := range []string{"a", "b", "c"} {
		if _, err := EnterQueue(context.Background(), db, u, "Te"); err != nil {
			t.Fatalf("EnterQueue(%s): %v", u, err)
		}
	}

	if err := RemoveMatchedPair(context.Background(), db, "a", "b"); err != nil {
		t.Fatalf("RemoveMatchedPair: %v", err)
	}
	out, _ := ListWaiting(context.Background(), db)
	if len(out) != 1 || out[0].UserID != "c" {
		t.Fatalf("queue after pair removal: %+v", out)
	}
}

func TestFindWaiting(t *testing.T) {
	db := newRepoDB(t, &domain.QueueEntry{})
	if _, err := EnterQueue(context.Background(), db, "u1", "Ka"); err != nil {
		t.Fatalf("EnterQueue: %v", err)
	}

	e, err := FindWaiting(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("FindWaiting: %v", err)
	}
	if e.UserID != "u1" || e.Language != "Ka" {
		t.Fatalf("entry = %+v", e)
	}

	if _, err := FindWaiting(context.Background(), db, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteStaleEntries_RemovesOnlyOld(t *testing.T) {
	db := newRepoDB(t, &domain.QueueEntry{})

	now := time.Now().UTC()
	old := domain.QueueEntry{ID: "old", UserID: "old-user", Language: "Te",
		Status: domain.QueueStatusWaiting, CreatedAt: now.Add(-2 * time.Hour)}
	fresh := domain.QueueEntry{ID: "fresh", UserID: "fresh-user", Language: "Te",
		Status: domain.QueueStatusWaiting, CreatedAt: now}
	for _, e := range []domain.QueueEntry{old, fresh} {
		if err := db.Create(&e).Error; err != nil {
			t.Fatalf("seed %s: %v", e.ID, err)
		}
	}

	n, err := DeleteStaleEntries(context.Background(), db, now.Add(-time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("DeleteStaleEntries = %d, %v; want 1", n, err)
	}
	out, _ := ListWaiting(context.Background(), db)
	if len(out) != 1 || out[0].ID != "fresh" {
		t.Fatalf("surviving entries: %+v", out)
	}
}
