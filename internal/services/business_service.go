// Package services – BusinessService
//
// This file implements the BusinessService, which manages the community
// business directory. It validates and normalizes submissions, coordinates
// repository operations for creating and listing businesses (with pagination
// and per-user liked annotations), and applies engagement actions (views,
// likes, contact requests) through atomic counter updates.
//
// Service-level errors (e.g., ErrBusinessNotFound, ErrAlreadyLiked) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/sisolabs/go-community-backend/internal/domain"
	"github.com/sisolabs/go-community-backend/internal/repo"
)

// MaxBusinessTags caps the number of tags a listing may carry.
const MaxBusinessTags = 5

// Category is one entry of the fixed directory category table.
type Category struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// Categories is the fixed category table served to clients. Listings whose
// category is not in the table render with a neutral color client-side.
var Categories = []Category{
	{Name: "Food", Icon: "🍔", Color: "#FF6B6B"},
	{Name: "Tech", Icon: "💻", Color: "#4ECDC4"},
	{Name: "Health", Icon: "🏥", Color: "#06D6A0"},
	{Name: "Education", Icon: "🎓", Color: "#118AB2"},
	{Name: "Retail", Icon: "🛍️", Color: "#FFD166"},
	{Name: "Service", Icon: "🔧", Color: "#9D4EDD"},
	{Name: "Local", Icon: "📍", Color: "#EF476F"},
	{Name: "Online", Icon: "🌐", Color: "#1B9AAA"},
	{Name: "Startup", Icon: "🚀", Color: "#7209B7"},
	{Name: "Other", Icon: "📊", Color: "#6C757D"},
}

// BusinessRepo defines the repository contract required by BusinessService.
// Implementations are responsible for persistence of listings and their
// engagement records.
type BusinessRepo interface {
	// CreateBusiness inserts a new listing.
	CreateBusiness(ctx context.Context, db *gorm.DB, b *domain.Business) (*domain.Business, error)

	// GetBusiness fetches a listing by ID.
	GetBusiness(ctx context.Context, db *gorm.DB, id string) (*domain.Business, error)

	// ListBusinesses returns a page of listings matching the query.
	ListBusinesses(ctx context.Context, db *gorm.DB, q repo.BusinessQuery) ([]domain.Business, error)

	// CountBusinesses returns the total matching the query, for pagination.
	CountBusinesses(ctx context.Context, db *gorm.DB, q repo.BusinessQuery) (int64, error)

	// IncrementBusinessViews bumps the view counter atomically.
	IncrementBusinessViews(ctx context.Context, db *gorm.DB, id string) (int64, error)

	// AdjustBusinessLikes applies a delta to the like counter atomically.
	AdjustBusinessLikes(ctx context.Context, db *gorm.DB, id string, delta int) (int64, error)

	// CreateBusinessView appends a view audit row (best-effort).
	CreateBusinessView(ctx context.Context, db *gorm.DB, businessID, userID string) error

	// CreateBusinessLike inserts a like row; ErrDuplicate on a second like.
	CreateBusinessLike(ctx context.Context, db *gorm.DB, businessID, userID string) error

	// DeleteBusinessLike removes a like row and reports rows removed.
	DeleteBusinessLike(ctx context.Context, db *gorm.DB, businessID, userID string) (int64, error)

	// ListBusinessLikes returns the liked subset of the given ids for a user.
	ListBusinessLikes(ctx context.Context, db *gorm.DB, userID string, businessIDs []string) (map[string]bool, error)

	// CreateContactRequest persists a contact request for a listing.
	CreateContactRequest(ctx context.Context, db *gorm.DB, r *domain.ContactRequest) (*domain.ContactRequest, error)

	// GetDirectoryStats aggregates directory-wide totals.
	GetDirectoryStats(ctx context.Context, db *gorm.DB) (repo.DirectoryStats, error)
}

// BusinessService provides directory-level operations: submitting listings,
// browsing with filters, and engagement (views, likes, contact requests).
type BusinessService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the business repository used by this service.
	Repo BusinessRepo

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
}

// NewBusinessService constructs a BusinessService with sane defaults.
func NewBusinessService(db *gorm.DB, r BusinessRepo) *BusinessService {
	return &BusinessService{
		DB:          db,
		Repo:        r,
		TitleMaxLen: 120,
	}
}

// CreateBusinessInput carries a new listing submission.
type CreateBusinessInput struct {
	Title       string
	Description string
	Category    string
	Contact     string
	ContactType string
	Location    string
	Tags        []string
}

// BusinessListInput carries one directory browse request: at most one filter
// (Filter or Category), an optional search term, one sort key, and a page.
type BusinessListInput struct {
	Filter   string
	Category string
	Search   string
	Sort     string
	Page     int
	PageSize int
}

// categoryCaser normalizes submitted category names to title case so that
// "food" and "Food" land in the same bucket.
var categoryCaser = cases.Title(language.English)

// Create validates and inserts a new listing. Title, description, and
// category are required; at most MaxBusinessTags tags are accepted. All
// validation happens before any repository call.
func (s *BusinessService) Create(ctx context.Context, userID string, in CreateBusinessInput) (*domain.Business, error) {
	title := collapseSpaces(in.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, ErrEmptyDescription
	}
	category := collapseSpaces(in.Category)
	if category == "" {
		return nil, ErrEmptyCategory
	}
	if len(in.Tags) > MaxBusinessTags {
		return nil, ErrTooManyTags
	}

	b := &domain.Business{
		Title:       s.clip(title),
		Description: desc,
		Category:    categoryCaser.String(category),
		Contact:     strings.TrimSpace(in.Contact),
		ContactType: strings.ToLower(strings.TrimSpace(in.ContactType)),
		Location:    strings.TrimSpace(in.Location),
	}
	b.SetTagList(trimTags(in.Tags))
	return s.Repo.CreateBusiness(ctx, s.DB, b)
}

// Get fetches a single listing and whether userID currently likes it.
func (s *BusinessService) Get(ctx context.Context, userID, id string) (*domain.Business, bool, error) {
	b, err := s.Repo.GetBusiness(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, ErrBusinessNotFound
		}
		return nil, false, err
	}
	liked, err := s.Repo.ListBusinessLikes(ctx, s.DB, userID, []string{id})
	if err != nil {
		return nil, false, err
	}
	return b, liked[id], nil
}

// ListPage returns a page of listings for the given browse request, the total
// match count, and the per-listing liked state for userID. Defaults are
// applied for invalid page/pageSize.
func (s *BusinessService) ListPage(ctx context.Context, userID string, in BusinessListInput) ([]domain.Business, int64, map[string]bool, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.PageSize <= 0 {
		in.PageSize = 20
	}

	q := repo.BusinessQuery{
		Filter:   in.Filter,
		Category: in.Category,
		Search:   in.Search,
		Sort:     listSort(in),
		Offset:   (in.Page - 1) * in.PageSize,
		Limit:    in.PageSize,
	}

	total, err := s.Repo.CountBusinesses(ctx, s.DB, q)
	if err != nil {
		return nil, 0, nil, err
	}
	if total == 0 {
		return []domain.Business{}, 0, map[string]bool{}, nil
	}

	items, err := s.Repo.ListBusinesses(ctx, s.DB, q)
	if err != nil {
		return nil, 0, nil, err
	}

	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	liked, err := s.Repo.ListBusinessLikes(ctx, s.DB, userID, ids)
	if err != nil {
		return nil, 0, nil, err
	}
	return items, total, liked, nil
}

// listSort resolves the effective sort key. The "popular" filter implies a
// views ordering when no explicit sort was requested.
func listSort(in BusinessListInput) string {
	if in.Sort != "" {
		return in.Sort
	}
	if in.Filter == repo.BusinessFilterPopular {
		return repo.BusinessSortViews
	}
	return repo.BusinessSortNewest
}

// RecordView bumps the view counter atomically and returns the new value.
// The per-view audit row is best-effort: a failure there is logged and does
// not fail the request.
func (s *BusinessService) RecordView(ctx context.Context, userID, id string) (int64, error) {
	views, err := s.Repo.IncrementBusinessViews(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, ErrBusinessNotFound
		}
		return 0, err
	}
	if err := s.Repo.CreateBusinessView(ctx, s.DB, id, userID); err != nil {
		log.Warn().Err(err).Str("business_id", id).Msg("view audit row not recorded")
	}
	return views, nil
}

// Like records that userID likes the listing and bumps the like counter by
// exactly one. A repeat like yields ErrAlreadyLiked and leaves the counter
// untouched. The like row and the counter update run in one transaction.
func (s *BusinessService) Like(ctx context.Context, userID, id string) (int64, error) {
	var likes int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Repo.CreateBusinessLike(ctx, tx, id, userID); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrAlreadyLiked
			}
			return err
		}
		n, err := s.Repo.AdjustBusinessLikes(ctx, tx, id, 1)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrBusinessNotFound
			}
			return err
		}
		likes = n
		return nil
	})
	return likes, err
}

// Unlike removes the user's like and decrements the counter (clamped at
// zero). Unliking a listing the user never liked yields ErrNotLiked.
func (s *BusinessService) Unlike(ctx context.Context, userID, id string) (int64, error) {
	var likes int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed, err := s.Repo.DeleteBusinessLike(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if removed == 0 {
			return ErrNotLiked
		}
		n, err := s.Repo.AdjustBusinessLikes(ctx, tx, id, -1)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrBusinessNotFound
			}
			return err
		}
		likes = n
		return nil
	})
	return likes, err
}

// ContactInput carries one contact request addressed to a listing owner.
type ContactInput struct {
	SenderName    string
	SenderContact string
	Message       string
}

// Contact validates and records a contact request for the listing. All three
// fields are required; the listing must exist.
func (s *BusinessService) Contact(ctx context.Context, id string, in ContactInput) (*domain.ContactRequest, error) {
	name := strings.TrimSpace(in.SenderName)
	contact := strings.TrimSpace(in.SenderContact)
	msg := strings.TrimSpace(in.Message)
	if name == "" || contact == "" || msg == "" {
		return nil, ErrInvalidContact
	}
	if _, err := s.Repo.GetBusiness(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}
	return s.Repo.CreateContactRequest(ctx, s.DB, &domain.ContactRequest{
		BusinessID:    id,
		SenderName:    name,
		SenderContact: contact,
		Message:       msg,
	})
}

// Stats returns directory-wide totals: listing count, total views, total
// likes, featured count.
func (s *BusinessService) Stats(ctx context.Context) (repo.DirectoryStats, error) {
	return s.Repo.GetDirectoryStats(ctx, s.DB)
}

// clip truncates a listing title to the configured maximum rune length.
func (s *BusinessService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// trimTags trims each tag and drops blanks, preserving order.
func trimTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// collapseSpaces trims whitespace and collapses runs of it to single spaces.
func collapseSpaces(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
