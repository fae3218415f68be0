// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for call session
// audit rows and per-user call statistics.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sisolabs/go-community-backend/internal/domain"
)

// CreateCallSession records the audit row for a successful match. Sessions
// are write-only: nothing in the application reads them back.
func CreateCallSession(ctx context.Context, db *gorm.DB, roomID, user1ID, user2ID, lang1, lang2 string) error {
	s := &domain.CallSession{
		ID:            uuid.NewString(),
		RoomID:        roomID,
		User1ID:       user1ID,
		User2ID:       user2ID,
		User1Language: lang1,
		User2Language: lang2,
		StartedAt:     time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(s).Error
}

// UpsertUserStats bumps the user's call total and refreshes the preferred
// language and last-active timestamp. The ON CONFLICT upsert keeps the
// increment atomic even when two matches for the same user land close
// together.
func UpsertUserStats(ctx context.Context, db *gorm.DB, userID, language string, now time.Time) error {
	row := &domain.UserStats{
		ID:                uuid.NewString(),
		UserID:            userID,
		TotalCalls:        1,
		PreferredLanguage: language,
		LastActive:        now,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_calls":        gorm.Expr("total_calls + 1"),
			"preferred_language": language,
			"last_active":        now,
		}),
	}).Create(row).Error
}

// GetUserStats fetches the stats row for userID, or ErrNotFound.
func GetUserStats(ctx context.Context, db *gorm.DB, userID string) (*domain.UserStats, error) {
	var s domain.UserStats
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
