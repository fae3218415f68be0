// Experience feed HTTP handlers.
//
// This file exposes REST endpoints for the anonymous experience feed:
//   - POST /experiences                  (create)
//   - GET  /experiences                  (list, filtered, paginated, ETag support)
//   - POST /experiences/{id}/like        (like)
//   - GET  /experiences/{id}/comments    (list comments)
//   - POST /experiences/{id}/comments    (add comment)
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
)

// ExperienceService defines feed operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ExperienceService interface {
	// Create validates and inserts a new post.
	Create(ctx context.Context, userID string, in services.CreateExperienceInput) (*domain.Experience, error)
	// ListPage returns a page of posts and the total count.
	ListPage(ctx context.Context, in services.ExperienceListInput) ([]domain.Experience, int64, error)
	// Like bumps a post's like counter and returns the new count.
	Like(ctx context.Context, id string) (int64, error)
	// Comment adds a comment and returns it with the new comment count.
	Comment(ctx context.Context, userID, experienceID, content string) (*domain.ExperienceComment, int64, error)
	// Comments returns a post's comments, oldest first.
	Comments(ctx context.Context, experienceID string) ([]domain.ExperienceComment, error)
}

//
// DTOs
//

// CreateExperienceRequest is the JSON payload for posting an experience.
type CreateExperienceRequest struct {
	Content  string `json:"content" binding:"required" example:"Finally found a job after 6 months!"`
	Category string `json:"category" example:"Work"`
	Mood     string `json:"mood" example:"Happy"`
}

// CreateCommentRequest is the JSON payload for commenting on a post.
type CreateCommentRequest struct {
	Content string `json:"content" binding:"required" example:"Congratulations!"`
}

// ListExperiencesResponse wraps a page of posts and pagination information.
type ListExperiencesResponse struct {
	Experiences []domain.Experience `json:"experiences"`
	Pagination  Pagination          `json:"pagination"`
}

// CommentResponse returns a new comment with the post's updated count.
type CommentResponse struct {
	Comment *domain.ExperienceComment `json:"comment"`
	Total   int64                     `json:"total"`
}

//
// Handlers
//

// CreateExperience godoc
// @ID          createExperience
// @Summary     Post an experience
// @Description Creates an anonymous post; category and mood default when blank.
// @Tags        Experiences
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (device pseudonym)"
// @Param       body       body    handlers.CreateExperienceRequest  true  "Post payload"
//
// @Success     201  {object} domain.Experience
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /experiences [post]
func (h *Handlers) CreateExperience(c *gin.Context) {
	var req CreateExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content is required")
		return
	}

	e, err := h.expSvc.Create(c.Request.Context(), userID(c), services.CreateExperienceInput{
		Content:  req.Content,
		Category: req.Category,
		Mood:     req.Mood,
	})
	if err != nil {
		if errors.Is(err, services.ErrEmptyContent) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, e)
}

// ListExperiences godoc
// @ID          listExperiences
// @Summary     Browse the feed (paginated)
// @Description Returns a page of posts with a category filter and sort applied. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Experiences
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       category       query   string  false "Category name ('All' disables the filter)"
// @Param       sort           query   string  false "newest|oldest|likes" default(newest)
// @Param       page           query   int     false "Page number" minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListExperiencesResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /experiences [get]
func (h *Handlers) ListExperiences(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.expSvc.(*services.ExperienceService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ExperiencesStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"experiences:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.expSvc.ListPage(ctx, services.ExperienceListInput{
		Category: strings.TrimSpace(c.Query("category")),
		Sort:     c.DefaultQuery("sort", repo.ExperienceSortNewest),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListExperiencesResponse{
		Experiences: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// LikeExperience godoc
// @ID          likeExperience
// @Summary     Like a post
// @Description Bumps the post's like counter atomically and returns the new count.
// @Tags        Experiences
// @Produce     json
//
// @Param       id  path  string  true  "Experience ID (UUID)" format(uuid)
//
// @Success     200  {object} handlers.CounterResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Experience not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /experiences/{id}/like [post]
func (h *Handlers) LikeExperience(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "experience id must be a UUID")
		return
	}

	likes, err := h.expSvc.Like(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrExperienceNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "experience not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, CounterResponse{ID: id, Count: likes})
}

// ListExperienceComments godoc
// @ID          listExperienceComments
// @Summary     List comments
// @Description Returns a post's comments, oldest first.
// @Tags        Experiences
// @Produce     json
//
// @Param       id  path  string  true  "Experience ID (UUID)" format(uuid)
//
// @Success     200  {object} map[string][]domain.ExperienceComment
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Experience not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /experiences/{id}/comments [get]
func (h *Handlers) ListExperienceComments(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "experience id must be a UUID")
		return
	}

	comments, err := h.expSvc.Comments(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrExperienceNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "experience not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if comments == nil {
		comments = []domain.ExperienceComment{}
	}
	ok(c, http.StatusOK, gin.H{"comments": comments})
}

// CreateExperienceComment godoc
// @ID          createExperienceComment
// @Summary     Comment on a post
// @Description Inserts the comment and bumps the post's counter in one transaction.
// @Tags        Experiences
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (device pseudonym)"
// @Param       id         path    string  true  "Experience ID (UUID)" format(uuid)
// @Param       body       body    handlers.CreateCommentRequest  true  "Comment payload"
//
// @Success     201  {object} handlers.CommentResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Experience not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /experiences/{id}/comments [post]
func (h *Handlers) CreateExperienceComment(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "experience id must be a UUID")
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content is required")
		return
	}

	comment, total, err := h.expSvc.Comment(c.Request.Context(), userID(c), id, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyContent):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrExperienceNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "experience not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, CommentResponse{Comment: comment, Total: total})
}
