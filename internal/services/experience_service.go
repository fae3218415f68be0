// Package services – ExperienceService
//
// This file implements the ExperienceService, which manages the anonymous
// experience feed: creating posts, browsing with a category filter and sort,
// liking posts, and commenting. Like and comment counters are denormalized
// and only ever move through atomic repository updates; the comment counter
// and comment row are written in one transaction so the two cannot drift.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/sisolabs/go-community-backend/internal/domain"
	"github.com/sisolabs/go-community-backend/internal/repo"
)

// Experience feed defaults applied to blank submissions.
const (
	DefaultExperienceCategory = "Life"
	DefaultExperienceMood     = "Happy"
)

// ExperienceRepo defines the repository contract required by
// ExperienceService.
type ExperienceRepo interface {
	// CreateExperience inserts a new post.
	CreateExperience(ctx context.Context, db *gorm.DB, e *domain.Experience) (*domain.Experience, error)

	// GetExperience fetches a post by ID.
	GetExperience(ctx context.Context, db *gorm.DB, id string) (*domain.Experience, error)

	// ListExperiences returns a page of posts matching the query.
	ListExperiences(ctx context.Context, db *gorm.DB, q repo.ExperienceQuery) ([]domain.Experience, error)

	// CountExperiences returns the total matching the query.
	CountExperiences(ctx context.Context, db *gorm.DB, q repo.ExperienceQuery) (int64, error)

	// IncrementExperienceLikes bumps the like counter atomically.
	IncrementExperienceLikes(ctx context.Context, db *gorm.DB, id string) (int64, error)

	// AddExperienceComment inserts a comment and bumps the parent counter in
	// one transaction.
	AddExperienceComment(ctx context.Context, db *gorm.DB, experienceID, userID, content string) (*domain.ExperienceComment, int64, error)

	// ListExperienceComments returns a post's comments, oldest first.
	ListExperienceComments(ctx context.Context, db *gorm.DB, experienceID string) ([]domain.ExperienceComment, error)
}

// ExperienceService provides feed-level operations: posting, browsing,
// liking, and commenting on experiences.
type ExperienceService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the experience repository used by this service.
	Repo ExperienceRepo
}

// NewExperienceService constructs an ExperienceService.
func NewExperienceService(db *gorm.DB, r ExperienceRepo) *ExperienceService {
	return &ExperienceService{DB: db, Repo: r}
}

// CreateExperienceInput carries a new post submission.
type CreateExperienceInput struct {
	Content  string
	Category string
	Mood     string
}

// ExperienceListInput carries one feed browse request.
type ExperienceListInput struct {
	Category string
	Sort     string
	Page     int
	PageSize int
}

// Create validates and inserts a new post. Content is required; category and
// mood default when blank. Validation happens before any repository call.
func (s *ExperienceService) Create(ctx context.Context, userID string, in CreateExperienceInput) (*domain.Experience, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	category := collapseSpaces(in.Category)
	if category == "" {
		category = DefaultExperienceCategory
	}
	mood := collapseSpaces(in.Mood)
	if mood == "" {
		mood = DefaultExperienceMood
	}
	return s.Repo.CreateExperience(ctx, s.DB, &domain.Experience{
		Content:  content,
		Category: category,
		Mood:     mood,
	})
}

// ListPage returns a page of posts with the applied category filter and sort,
// plus the total match count. Defaults are applied for invalid page/pageSize.
func (s *ExperienceService) ListPage(ctx context.Context, in ExperienceListInput) ([]domain.Experience, int64, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.PageSize <= 0 {
		in.PageSize = 20
	}

	q := repo.ExperienceQuery{
		Category: in.Category,
		Sort:     in.Sort,
		Offset:   (in.Page - 1) * in.PageSize,
		Limit:    in.PageSize,
	}

	total, err := s.Repo.CountExperiences(ctx, s.DB, q)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Experience{}, 0, nil
	}

	items, err := s.Repo.ListExperiences(ctx, s.DB, q)
	return items, total, err
}

// Like bumps the post's like counter atomically and returns the new count.
func (s *ExperienceService) Like(ctx context.Context, id string) (int64, error) {
	n, err := s.Repo.IncrementExperienceLikes(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, ErrExperienceNotFound
		}
		return 0, err
	}
	return n, nil
}

// Comment validates and inserts a comment on the post, returning the new
// comment and the post's updated comment count.
func (s *ExperienceService) Comment(ctx context.Context, userID, experienceID, content string) (*domain.ExperienceComment, int64, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, 0, ErrEmptyContent
	}
	c, total, err := s.Repo.AddExperienceComment(ctx, s.DB, experienceID, userID, content)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrExperienceNotFound
		}
		return nil, 0, err
	}
	return c, total, nil
}

// Comments returns a post's comments, oldest first. The post must exist.
func (s *ExperienceService) Comments(ctx context.Context, experienceID string) ([]domain.ExperienceComment, error) {
	if _, err := s.Repo.GetExperience(ctx, s.DB, experienceID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrExperienceNotFound
		}
		return nil, err
	}
	return s.Repo.ListExperienceComments(ctx, s.DB, experienceID)
}
