// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// for the directory statistics endpoint and for conditional responses
// (ETag generation) in the HTTP layer. Each function is context-aware and
// safe to call from services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sisolabs/go-community-backend/internal/domain"
)

// DirectoryStats aggregates the business directory: listing count, total
// views, total likes, and how many listings are featured.
type DirectoryStats struct {
	TotalBusinesses int64 `json:"total_businesses"`
	TotalViews      int64 `json:"total_views"`
	TotalLikes      int64 `json:"total_likes"`
	FeaturedCount   int64 `json:"featured_count"`
}

// GetDirectoryStats computes directory-wide totals in one aggregate query
// plus a featured count.
func GetDirectoryStats(ctx context.Context, db *gorm.DB) (DirectoryStats, error) {
	var s DirectoryStats
	row := struct {
		Total int64
		Views int64
		Likes int64
	}{}
	err := db.WithContext(ctx).
		Model(&domain.Business{}).
		Select("COUNT(*) AS total, COALESCE(SUM(views),0) AS views, COALESCE(SUM(likes),0) AS likes").
		Scan(&row).Error
	if err != nil {
		return s, err
	}
	s.TotalBusinesses = row.Total
	s.TotalViews = row.Views
	s.TotalLikes = row.Likes

	err = db.WithContext(ctx).
		Model(&domain.Business{}).
		Where("featured = ?", true).
		Count(&s.FeaturedCount).Error
	return s, err
}

// BusinessesStats returns aggregate metadata for the listings table: the
// total number of rows and the maximum UpdatedAt timestamp among them.
// Used for weak ETag generation on the list endpoint. When the table is
// empty, the returned count is 0 and maxUpdatedAt is nil.
func BusinessesStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Business{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// ExperiencesStats returns aggregate metadata for the experience feed: the
// total number of posts and the maximum UpdatedAt timestamp among them.
// When the feed is empty, the returned count is 0 and maxUpdatedAt is nil.
func ExperiencesStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Experience{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
