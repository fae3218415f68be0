// Business directory HTTP handlers.
//
// This file exposes REST endpoints for the community business directory:
//   - POST   /businesses               (create)
//   - GET    /businesses               (list, filtered, paginated, ETag support)
//   - POST   /businesses/{id}/view     (record a view)
//   - PUT    /businesses/{id}/like     (like)
//   - DELETE /businesses/{id}/like     (unlike)
//   - POST   /businesses/{id}/contact  (contact request)
//   - GET    /businesses/stats         (directory totals)
//   - GET    /businesses/categories    (fixed category table)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sisolabs/go-community-backend/internal/domain"
	"github.com/sisolabs/go-community-backend/internal/repo"
	"github.com/sisolabs/go-community-backend/internal/services"
	"github.com/sisolabs/go-community-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// BusinessService defines directory operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type BusinessService interface {
	// Create validates and inserts a new listing.
	Create(ctx context.Context, userID string, in services.CreateBusinessInput) (*domain.Business, error)
	// Get fetches one listing and the caller's liked state.
	Get(ctx context.Context, userID, id string) (*domain.Business, bool, error)
	// ListPage returns a page of listings, the total count, and per-listing
	// liked state for the user.
	ListPage(ctx context.Context, userID string, in services.BusinessListInput) ([]domain.Business, int64, map[string]bool, error)
	// RecordView bumps the view counter and returns the new value.
	RecordView(ctx context.Context, userID, id string) (int64, error)
	// Like records a like and returns the new counter value.
	Like(ctx context.Context, userID, id string) (int64, error)
	// Unlike removes a like and returns the new counter value.
	Unlike(ctx context.Context, userID, id string) (int64, error)
	// Contact records a contact request for a listing.
	Contact(ctx context.Context, id string, in services.ContactInput) (*domain.ContactRequest, error)
	// Stats aggregates directory-wide totals.
	Stats(ctx context.Context) (repo.DirectoryStats, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for the directory, call matchmaking, and the
// experience feed. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	bizSvc  BusinessService
	callSvc CallService
	expSvc  ExperienceService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(bizSvc BusinessService, callSvc CallService, expSvc ExperienceService) *Handlers {
	return &Handlers{bizSvc: bizSvc, callSvc: callSvc, expSvc: expSvc}
}

// userID extracts the caller's pseudonymous id from Gin context (set by
// upstream middleware). If absent, it falls back to the "X-User-ID" header
// (the client-remembered device id), and finally to "demo-user". It never
// touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CreateBusinessRequest is the JSON payload for submitting a listing.
type CreateBusinessRequest struct {
	Title       string   `json:"title" binding:"required" example:"Amma's Kitchen"`
	Description string   `json:"description" binding:"required" example:"Home-style tiffins, daily"`
	Category    string   `json:"category" binding:"required" example:"Food"`
	Contact     string   `json:"contact" example:"+91 98765 43210"`
	ContactType string   `json:"contact_type" example:"phone"`
	Location    string   `json:"location" example:"Hyderabad"`
	Tags        []string `json:"tags" example:"tiffins,breakfast"`
}

// ContactBusinessRequest is the JSON payload for a contact request.
type ContactBusinessRequest struct {
	Name    string `json:"name" binding:"required" example:"Ravi"`
	Contact string `json:"contact" binding:"required" example:"ravi@example.com"`
	Message string `json:"message" binding:"required" example:"Do you deliver on Sundays?"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// BusinessItem is one listing in API responses: the stored listing plus the
// decoded tag array and the caller's liked state.
type BusinessItem struct {
	domain.Business
	Tags  []string `json:"tags"`
	Liked bool     `json:"liked"`
}

// ListBusinessesResponse wraps a page of listings and pagination information.
type ListBusinessesResponse struct {
	Businesses []BusinessItem `json:"businesses"`
	Pagination Pagination     `json:"pagination"`
}

// CounterResponse reports a counter's new value after a mutation.
type CounterResponse struct {
	ID    string `json:"id"`
	Count int64  `json:"count"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// businessItem decorates a stored listing for API responses.
func businessItem(b domain.Business, liked bool) BusinessItem {
	tags := b.TagList()
	if tags == nil {
		tags = []string{}
	}
	return BusinessItem{Business: b, Tags: tags, Liked: liked}
}

//
// Handlers
//

// CreateBusiness godoc
// @ID          createBusiness
// @Summary     Submit a business listing
// @Description Creates an anonymous listing and returns the stored resource.
// @Tags        Businesses
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (device pseudonym)"  example(user_1724934000000_k3j2h)
// @Param       body       body    handlers.CreateBusinessRequest  true  "Listing payload"
//
// @Success     201  {object}  handlers.BusinessItem
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /businesses [post]
func (h *Handlers) CreateBusiness(c *gin.Context) {
	var req CreateBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	b, err := h.bizSvc.Create(c.Request.Context(), userID(c), services.CreateBusinessInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Contact:     req.Contact,
		ContactType: req.ContactType,
		Location:    req.Location,
		Tags:        req.Tags,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyTitle),
			errors.Is(err, services.ErrEmptyDescription),
			errors.Is(err, services.ErrEmptyCategory),
			errors.Is(err, services.ErrTooManyTags):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, businessItem(*b, false))
}

// ListBusinesses godoc
// @ID          listBusinesses
// @Summary     Browse the directory (paginated)
// @Description Returns a page of listings with one filter, search, and sort applied. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Businesses
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (device pseudonym)"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       filter         query   string  false "all|featured|new|popular"      default(all)
// @Param       category       query   string  false "Exact category name"
// @Param       q              query   string  false "Search term"
// @Param       sort           query   string  false "newest|views|likes"
// @Param       page           query   int     false "Page number"                   minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"                minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListBusinessesResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /businesses [get]
func (h *Handlers) ListBusinesses(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.bizSvc.(*services.BusinessService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.BusinessesStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"businesses:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, liked, err := h.bizSvc.ListPage(ctx, uid, services.BusinessListInput{
		Filter:   c.DefaultQuery("filter", repo.BusinessFilterAll),
		Category: strings.TrimSpace(c.Query("category")),
		Search:   c.Query("q"),
		Sort:     c.Query("sort"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	out := make([]BusinessItem, len(items))
	for i, b := range items {
		out[i] = businessItem(b, liked[b.ID])
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListBusinessesResponse{
		Businesses: out,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetBusiness godoc
// @ID          getBusiness
// @Summary     Fetch a single listing
// @Description Returns one listing with the caller's liked state.
// @Tags        Businesses
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (device pseudonym)"
// @Param       id         path    string  true  "Business ID (UUID)" format(uuid)
//
// @Success     200  {object} handlers.BusinessItem
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Business not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /businesses/{id} [get]
func (h *Handlers) GetBusiness(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "business id must be a UUID")
		return
	}

	b, liked, err := h.bizSvc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrBusinessNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "business not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, businessItem(*b, liked))
}

// RecordBusinessView godoc
// @ID          recordBusinessView
// @Summary     Record a listing view
// @Description Bumps the listing's view counter atomically and returns the new value.
// @Tags        Businesses
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (device pseudonym)"
// @Param       id         path    string  true  "Business ID (UUID)" format(uuid)
//
// @Success     200  {object} handlers.CounterResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Business not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /businesses/{id}/view [post]
func (h *Handlers) RecordBusinessView(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "business id must be a UUID")
		return
	}

	views, err := h.bizSvc.RecordView(c.Request.Context(), userID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrBusinessNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "business not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, CounterResponse{ID: id, Count: views})
}

// LikeBusiness godoc
// @ID          likeBusiness
// @Summary     Like a listing
// @Description Records the caller's like and bumps the counter by exactly one.
// @Tags        Businesses
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (device pseudonym)"
// @Param       id         path    string  true  "Business ID (UUID)" format(uuid)
//
// @Success     200  {object} handlers.CounterResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Business not found"
// @Failure     409  {object} handlers.ErrorResponse "Already liked"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /businesses/{id}/like [put]
func (h *Handlers) LikeBusiness(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "business id must be a UUID")
		return
	}

	likes, err := h.bizSvc.Like(c.Request.Context(), userID(c), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyLiked):
			fail(c, http.StatusConflict, ErrCodeConflict, "already liked")
		case errors.Is(err, services.ErrBusinessNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "business not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, CounterResponse{ID: id, Count: likes})
}

// UnlikeBusiness godoc
// @ID          unlikeBusiness
// @Summary     Unlike a listing
// @Description Removes the caller's like and decrements the counter (never below zero).
// @Tags        Businesses
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (device pseudonym)"
// @Param       id         path    string  true  "Business ID (UUID)" format(uuid)
//
// @Success     200  {object} handlers.CounterResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     409  {object} handlers.ErrorResponse "Not liked"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /businesses/{id}/like [delete]
func (h *Handlers) UnlikeBusiness(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "business id must be a UUID")
		return
	}

	likes, err := h.bizSvc.Unlike(c.Request.Context(), userID(c), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotLiked):
			fail(c, http.StatusConflict, ErrCodeConflict, "not liked")
		case errors.Is(err, services.ErrBusinessNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "business not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, CounterResponse{ID: id, Count: likes})
}

// ContactBusiness godoc
// @ID          contactBusiness
// @Summary     Send a contact request
// @Description Records a message from an interested visitor to the listing owner.
// @Tags        Businesses
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (device pseudonym)"
// @Param       id         path    string  true  "Business ID (UUID)" format(uuid)
// @Param       body       body    handlers.ContactBusinessRequest  true  "Contact payload"
//
// @Success     201  {object} domain.ContactRequest
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Business not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /businesses/{id}/contact [post]
func (h *Handlers) ContactBusiness(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "business id must be a UUID")
		return
	}

	var req ContactBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, contact and message are required")
		return
	}

	r, err := h.bizSvc.Contact(c.Request.Context(), id, services.ContactInput{
		SenderName:    req.Name,
		SenderContact: req.Contact,
		Message:       req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidContact):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrBusinessNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "business not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, r)
}

// BusinessStats godoc
// @ID          businessStats
// @Summary     Directory totals
// @Description Returns the listing count, total views, total likes, and featured count.
// @Tags        Businesses
// @Produce     json
//
// @Success     200  {object} repo.DirectoryStats
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /businesses/stats [get]
func (h *Handlers) BusinessStats(c *gin.Context) {
	stats, err := h.bizSvc.Stats(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}

// ListCategories godoc
// @ID          listCategories
// @Summary     Category table
// @Description Returns the fixed directory category table (name, icon, color).
// @Tags        Businesses
// @Produce     json
//
// @Success     200  {array} services.Category
// @Router      /businesses/categories [get]
func (h *Handlers) ListCategories(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"categories": services.Categories})
}
