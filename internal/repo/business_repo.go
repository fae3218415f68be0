// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for business
// listings and their engagement records (views, likes, contact requests).
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a listing is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Duplicate like rows surface as ErrDuplicate.
//   - On other DB errors, the raw gorm error is propagated.
//
// Counter semantics: view and like counters are mutated with atomic SQL
// increments rather than read-modify-write, so concurrent actions from
// different clients cannot lose updates.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sisolabs/go-community-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// Business list filters. A list request carries at most one of these.
const (
	BusinessFilterAll      = "all"
	BusinessFilterFeatured = "featured"
	BusinessFilterNew      = "new"
	BusinessFilterPopular  = "popular"
)

// Business sort keys.
const (
	BusinessSortNewest = "newest"
	BusinessSortViews  = "views"
	BusinessSortLikes  = "likes"
)

// BusinessQuery describes one listing query: a single filter, an optional
// free-text search, a single sort key, and pagination bounds. Filters are
// not composable; Category takes precedence over Filter when both are set.
type BusinessQuery struct {
	Filter   string // all|featured|new|popular
	Category string // exact category name
	Search   string // substring over title/description/category/tags
	Sort     string // newest|views|likes
	Offset   int
	Limit    int

	// NewWithin bounds the "new" filter window; callers default it to 7 days.
	NewWithin time.Duration
	// Now anchors the "new" window; zero means time.Now().UTC().
	Now time.Time
}

// CreateBusiness inserts a new listing. The ID is a randomly generated UUID
// and CreatedAt is set to UTC. Counters start at zero.
func CreateBusiness(ctx context.Context, db *gorm.DB, b *domain.Business) (*domain.Business, error) {
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

// GetBusiness fetches a single listing by ID, or ErrNotFound if missing.
func GetBusiness(ctx context.Context, db *gorm.DB, id string) (*domain.Business, error) {
	var b domain.Business
	if err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBusinesses returns a page of listings matching q, ordered by the
// requested sort key (creation time descending by default).
func ListBusinesses(ctx context.Context, db *gorm.DB, q BusinessQuery) ([]domain.Business, error) {
	var out []domain.Business
	err := businessScope(db.WithContext(ctx), q).
		Order(businessOrder(q.Sort)).
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&out).Error
	return out, err
}

// CountBusinesses returns the number of listings matching q, ignoring
// pagination bounds.
func CountBusinesses(ctx context.Context, db *gorm.DB, q BusinessQuery) (int64, error) {
	var total int64
	err := businessScope(db.WithContext(ctx), q).
		Model(&domain.Business{}).
		Count(&total).Error
	return total, err
}

// businessScope applies the single active filter and the search term.
func businessScope(db *gorm.DB, q BusinessQuery) *gorm.DB {
	s := db
	switch {
	case q.Category != "":
		s = s.Where("category = ?", q.Category)
	case q.Filter == BusinessFilterFeatured:
		s = s.Where("featured = ?", true)
	case q.Filter == BusinessFilterNew:
		window := q.NewWithin
		if window <= 0 {
			window = 7 * 24 * time.Hour
		}
		now := q.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		s = s.Where("created_at > ?", now.Add(-window))
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		s = s.Where(
			"LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ? OR LOWER(tags) LIKE ?",
			like, like, like, like,
		)
	}
	return s
}

// businessOrder maps a sort key to an ORDER BY clause. The legacy "popular"
// filter sorts by views, so it shares the views ordering.
func businessOrder(sort string) string {
	switch sort {
	case BusinessSortViews:
		return "views desc, created_at desc"
	case BusinessSortLikes:
		return "likes desc, created_at desc"
	default:
		return "created_at desc"
	}
}

// IncrementBusinessViews bumps the view counter atomically and returns the
// new value. ErrNotFound is returned when the listing does not exist.
func IncrementBusinessViews(ctx context.Context, db *gorm.DB, id string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Business{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return readBusinessCounter(ctx, db, id, "views")
}

// AdjustBusinessLikes applies delta to the like counter atomically, clamped
// at zero, and returns the new value. ErrNotFound is returned when the
// listing does not exist.
func AdjustBusinessLikes(ctx context.Context, db *gorm.DB, id string, delta int) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Business{}).
		Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("MAX(0, likes + ?)", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return readBusinessCounter(ctx, db, id, "likes")
}

// readBusinessCounter reads back a single counter column.
func readBusinessCounter(ctx context.Context, db *gorm.DB, id, column string) (int64, error) {
	var row struct{ N int64 }
	err := db.WithContext(ctx).
		Model(&domain.Business{}).
		Select(column+" AS n").
		Where("id = ?", id).
		Scan(&row).Error
	return row.N, err
}

// CreateBusinessView appends a view audit row. Failures here are expected to
// be treated as best-effort by callers.
func CreateBusinessView(ctx context.Context, db *gorm.DB, businessID, userID string) error {
	v := &domain.BusinessView{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		UserID:     userID,
		CreatedAt:  time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(v).Error
}

// CreateBusinessLike inserts a like row with (business_id, user_id)
// uniqueness semantics. A second like by the same user yields ErrDuplicate.
func CreateBusinessLike(ctx context.Context, db *gorm.DB, businessID, userID string) error {
	l := &domain.BusinessLike{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		UserID:     userID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// DeleteBusinessLike removes the like row for (businessID, userID) and
// reports how many rows were removed (0 or 1).
func DeleteBusinessLike(ctx context.Context, db *gorm.DB, businessID, userID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("business_id = ? AND user_id = ?", businessID, userID).
		Delete(&domain.BusinessLike{})
	return res.RowsAffected, res.Error
}

// HasBusinessLike reports whether userID currently likes businessID. The
// liked state is answered from the like table, never from client storage.
func HasBusinessLike(ctx context.Context, db *gorm.DB, businessID, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.BusinessLike{}).
		Where("business_id = ? AND user_id = ?", businessID, userID).
		Count(&n).Error
	return n > 0, err
}

// ListBusinessLikes returns the set of business ids liked by userID among
// the given candidates. Used to annotate list responses.
func ListBusinessLikes(ctx context.Context, db *gorm.DB, userID string, businessIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(businessIDs))
	if len(businessIDs) == 0 {
		return out, nil
	}
	var rows []domain.BusinessLike
	err := db.WithContext(ctx).
		Where("user_id = ? AND business_id IN ?", userID, businessIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.BusinessID] = true
	}
	return out, nil
}

// CreateContactRequest persists a contact request addressed to a listing.
func CreateContactRequest(ctx context.Context, db *gorm.DB, r *domain.ContactRequest) (*domain.ContactRequest, error) {
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// isUniqueViolation detects unique-constraint violations across drivers.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
