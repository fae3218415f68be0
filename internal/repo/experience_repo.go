// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for experience
// posts and their comments.
//
// Counter semantics mirror the business repository: likes are bumped with an
// atomic SQL increment, and the comment counter is bumped in the same
// transaction that inserts the comment row so the counter cannot drift from
// the actual row count.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sisolabs/go-community-backend/internal/domain"
)

// Experience sort keys.
const (
	ExperienceSortNewest = "newest"
	ExperienceSortOldest = "oldest"
	ExperienceSortLikes  = "likes"
)

// ExperienceQuery describes one feed query: a single category filter, a
// single sort key, and pagination bounds. The empty (or "All") category
// matches every post.
type ExperienceQuery struct {
	Category string
	Sort     string
	Offset   int
	Limit    int
}

// CreateExperience inserts a new post with a UUID key and UTC timestamp.
func CreateExperience(ctx context.Context, db *gorm.DB, e *domain.Experience) (*domain.Experience, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// GetExperience fetches a single post by ID, or ErrNotFound if missing.
func GetExperience(ctx context.Context, db *gorm.DB, id string) (*domain.Experience, error) {
	var e domain.Experience
	if err := db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExperiences returns a page of posts matching q in the requested order.
func ListExperiences(ctx context.Context, db *gorm.DB, q ExperienceQuery) ([]domain.Experience, error) {
	var out []domain.Experience
	err := experienceScope(db.WithContext(ctx), q).
		Order(experienceOrder(q.Sort)).
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&out).Error
	return out, err
}

// CountExperiences returns the number of posts matching q, ignoring
// pagination bounds.
func CountExperiences(ctx context.Context, db *gorm.DB, q ExperienceQuery) (int64, error) {
	var total int64
	err := experienceScope(db.WithContext(ctx), q).
		Model(&domain.Experience{}).
		Count(&total).Error
	return total, err
}

func experienceScope(db *gorm.DB, q ExperienceQuery) *gorm.DB {
	if q.Category != "" && q.Category != "All" {
		return db.Where("category = ?", q.Category)
	}
	return db
}

func experienceOrder(sort string) string {
	switch sort {
	case ExperienceSortOldest:
		return "created_at asc"
	case ExperienceSortLikes:
		return "likes desc, created_at desc"
	default:
		return "created_at desc"
	}
}

// IncrementExperienceLikes bumps the like counter atomically and returns the
// new value. ErrNotFound is returned when the post does not exist.
func IncrementExperienceLikes(ctx context.Context, db *gorm.DB, id string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Experience{}).
		Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("likes + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	var row struct{ N int64 }
	err := db.WithContext(ctx).
		Model(&domain.Experience{}).
		Select("likes AS n").
		Where("id = ?", id).
		Scan(&row).Error
	return row.N, err
}

// AddExperienceComment inserts the comment row and bumps the parent post's
// comment counter in one transaction. It returns the persisted comment and
// the new counter value. ErrNotFound is returned when the post is missing.
func AddExperienceComment(ctx context.Context, db *gorm.DB, experienceID, userID, content string) (*domain.ExperienceComment, int64, error) {
	c := &domain.ExperienceComment{
		ID:           uuid.NewString(),
		ExperienceID: experienceID,
		UserID:       userID,
		Content:      content,
		CreatedAt:    time.Now().UTC(),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Experience{}).
			Where("id = ?", experienceID).
			UpdateColumn("comments", gorm.Expr("comments + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(c).Error
	})
	if err != nil {
		return nil, 0, err
	}
	var row struct{ N int64 }
	err = db.WithContext(ctx).
		Model(&domain.Experience{}).
		Select("comments AS n").
		Where("id = ?", experienceID).
		Scan(&row).Error
	return c, row.N, err
}

// ListExperienceComments returns a post's comments oldest-first.
func ListExperienceComments(ctx context.Context, db *gorm.DB, experienceID string) ([]domain.ExperienceComment, error) {
	var out []domain.ExperienceComment
	err := db.WithContext(ctx).
		Where("experience_id = ?", experienceID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
