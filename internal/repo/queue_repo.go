// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the call
// matchmaking queue.
//
// The queue enforces "at most one entry per user" with a delete-then-insert
// executed inside a single transaction, plus a unique index on user_id as a
// backstop. Waiting entries are always read oldest-first so the matching
// policy sees a creation-ordered snapshot.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sisolabs/go-community-backend/internal/domain"
)

// EnterQueue places userID into the waiting queue with the given language.
// Any previous entry for the user is removed first; both steps run in one
// transaction so a crash cannot leave two rows for the same user.
func EnterQueue(ctx context.Context, db *gorm.DB, userID, language string) (*domain.QueueEntry, error) {
	entry := &domain.QueueEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Language:  language,
		Status:    domain.QueueStatusWaiting,
		CreatedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&domain.QueueEntry{}).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// RemoveFromQueue deletes the user's queue entry, if any, and reports how
// many rows were removed. Removing an absent entry is not an error, which
// makes cancellation idempotent.
func RemoveFromQueue(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.QueueEntry{})
	return res.RowsAffected, res.Error
}

// RemoveMatchedPair deletes both partners' queue entries with a single
// filtered delete. There is no optimistic lock here: a concurrent matcher
// could have acted on the same snapshot, and the delete simply removes
// whatever rows are still present.
func RemoveMatchedPair(ctx context.Context, db *gorm.DB, userID, partnerID string) error {
	return db.WithContext(ctx).
		Where("user_id IN ?", []string{userID, partnerID}).
		Delete(&domain.QueueEntry{}).Error
}

// ListWaiting returns all waiting entries ordered by creation time ascending
// (oldest first), the order the matching policy expects.
func ListWaiting(ctx context.Context, db *gorm.DB) ([]domain.QueueEntry, error) {
	var out []domain.QueueEntry
	err := db.WithContext(ctx).
		Where("status = ?", domain.QueueStatusWaiting).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// CountWaiting returns the number of users currently waiting for a match.
func CountWaiting(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.QueueEntry{}).
		Where("status = ?", domain.QueueStatusWaiting).
		Count(&n).Error
	return n, err
}

// FindWaiting fetches the waiting entry for userID, or ErrNotFound when the
// user has no live entry. Used for session resumption after a reload.
func FindWaiting(ctx context.Context, db *gorm.DB, userID string) (*domain.QueueEntry, error) {
	var e domain.QueueEntry
	err := db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, domain.QueueStatusWaiting).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteStaleEntries removes queue rows created before the cutoff. This is
// the crash/abandonment recovery path run by the cleanup sweeper.
func DeleteStaleEntries(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.QueueEntry{})
	return res.RowsAffected, res.Error
}
