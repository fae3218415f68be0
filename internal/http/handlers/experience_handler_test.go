package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gorm.io/gorm"

	"github.com/sisolabs/go-community-backend/internal/domain"
	"github.com/sisolabs/go-community-backend/internal/repo"
	"github.com/sisolabs/go-community-backend/internal/services"
)

// Minimal shim implementing services.ExperienceRepo using repo package (like router.go)
type testExpRepo struct{}

func (testExpRepo) CreateExperience(ctx context.Context, db *gorm.DB, e *domain.Experience) (*domain.Experience, error) {
	return repo.CreateExperience(ctx, db, e)
}

func (testExpRepo) GetExperience(ctx context.Context, db *gorm.DB, id string) (*domain.Experience, error) {
	return repo.GetExperience(ctx, db, id)
}

func (testExpRepo) ListExperiences(ctx context.Context, db *gorm.DB, q repo.ExperienceQuery) ([]domain.Experience, error) {
	return repo.ListExperiences(ctx, db, q)
}

func (testExpRepo) CountExperiences(ctx context.Context, db *gorm.DB, q repo.ExperienceQuery) (int64, error) {
	return repo.CountExperiences(ctx, db, q)
}

func (testExpRepo) IncrementExperienceLikes(ctx context.Context, db *gorm.DB, id string) (int64, error) {
	return repo.IncrementExperienceLikes(ctx, db, id)
}

func (testExpRepo) AddExperienceComment(ctx context.Context, db *gorm.DB, experienceID, userID, content string) (*domain.ExperienceComment, int64, error) {
	return repo.AddExperienceComment(ctx, db, experienceID, userID, content)
}

func (testExpRepo) ListExperienceComments(ctx context.Context, db *gorm.DB, experienceID string) ([]domain.ExperienceComment, error) {
	return repo.ListExperienceComments(ctx, db, experienceID)
}

// Flexible experience service stub; zero value returns benign defaults.
type stubExpSvc struct {
	create   func(context.Context, string, services.CreateExperienceInput) (*domain.Experience, error)
	listPage func(context.Context, services.ExperienceListInput) ([]domain.Experience, int64, error)
	like     func(context.Context, string) (int64, error)
	comment  func(context.Context, string, string, string) (*domain.ExperienceComment, int64, error)
	comments func(context.Context, string) ([]domain.ExperienceComment, error)
}

func (s stubExpSvc) Create(ctx context.Context, u string, in services.CreateExperienceInput) (*domain.Experience, error) {
	if s.create != nil {
		return s.create(ctx, u, in)
	}
	return &domain.Experience{ID: uuid.NewString(), Content: in.Content}, nil
}

func (s stubExpSvc) ListPage(ctx context.Context, in services.ExperienceListInput) ([]domain.Experience, int64, error) {
	if s.listPage != nil {
		return s.listPage(ctx, in)
	}
	return nil, 0, nil
}

func (s stubExpSvc) Like(ctx context.Context, id string) (int64, error) {
	if s.like != nil {
		return s.like(ctx, id)
	}
	return 1, nil
}

func (s stubExpSvc) Comment(ctx context.Context, u, id, content string) (*domain.ExperienceComment, int64, error) {
	if s.comment != nil {
		return s.comment(ctx, u, id, content)
	}
	return &domain.ExperienceComment{ID: uuid.NewString(), ExperienceID: id, Content: content}, 1, nil
}

func (s stubExpSvc) Comments(ctx context.Context, id string) ([]domain.ExperienceComment, error) {
	if s.comments != nil {
		return s.comments(ctx, id)
	}
	return nil, nil
}

func newExpHandlers(svc ExperienceService) *Handlers {
	return New(stubBizSvc{}, stubCallSvcBiz{}, svc)
}

// ---------- CreateExperience ----------

func TestCreateExperience_BadJSON_Empty_Success_Internal(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Bad JSON -> 400
	{
		h := newExpHandlers(stubExpSvc{})
		r := gin.New()
		r.POST("/experiences", h.CreateExperience)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/experiences", bytes.NewBufferString("{bad")))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("bad json -> %d", w.Code)
		}
	}

	// whitespace-only content -> 400 (service sentinel)
	{
		errSvc := stubExpSvc{create: func(context.Context, string, services.CreateExperienceInput) (*domain.Experience, error) {
			return nil, services.ErrEmptyContent
		}}
		h := newExpHandlers(errSvc)
		r := gin.New()
		r.POST("/experiences", h.CreateExperience)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/experiences", bytes.NewBufferString(`{"content":"   "}`)))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("empty content -> %d", w.Code)
		}
	}

	// Success -> 201 against the real service, defaults applied
	{
		db := newHandlersDB(t)
		svc := services.NewExperienceService(db, testExpRepo{})
		h := newExpHandlers(svc)
		r := gin.New()
		r.POST("/experiences", h.CreateExperience)

		w := httptest.NewRecorder()
		body := `{"content":"  Finally found a job!  "}`
		req := httptest.NewRequest(http.MethodPost, "/experiences", bytes.NewBufferString(body))
		req.Header.Set("X-User-ID", "u1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("create -> %d body=%s", w.Code, w.Body.String())
		}
		var out domain.Experience
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.Content != "Finally found a job!" {
			t.Fatalf("content = %q", out.Content)
		}
		if out.Category != "Life" || out.Mood != "Happy" {
			t.Fatalf("defaults: category=%q mood=%q", out.Category, out.Mood)
		}
	}

	// Internal error -> 500
	{
		errSvc := stubExpSvc{create: func(context.Context, string, services.CreateExperienceInput) (*domain.Experience, error) {
			return nil, gorm.ErrInvalidField
		}}
		h := newExpHandlers(errSvc)
		r := gin.New()
		r.POST("/experiences", h.CreateExperience)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/experiences", bytes.NewBufferString(`{"content":"x"}`)))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("internal -> %d", w.Code)
		}
	}
}

// ---------- ListExperiences ----------

func TestListExperiences_ETag304_and_SuccessPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlersDB(t)
	svc := services.NewExperienceService(db, testExpRepo{})
	h := newExpHandlers(svc)

	now := time.Now().UTC()
	for i, content := range []string{"first", "second"} {
		e := &domain.Experience{
			ID:        uuid.NewString(),
			Content:   content,
			Category:  "Life",
			CreatedAt: now.Add(time.Duration(i) * time.Second),
			UpdatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(e).Error; err != nil {
			t.Fatalf("seed %s: %v", content, err)
		}
	}

	r := gin.New()
	r.GET("/experiences", h.ListExperiences)

	count, maxTS, err := repo.ExperiencesStats(context.Background(), db)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.Unix()
	}
	etag := fmt.Sprintf(`W/"experiences:%d:%d"`, count, ts)

	// 304 path
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/experiences", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("etag 304 -> %d", w.Code)
	}

	// 200 success with pagination
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/experiences?page=1&page_size=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list 200 -> %d body=%s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("ETag"); got != etag {
		t.Fatalf("ETag header = %q, want %q", got, etag)
	}
	var out ListExperiencesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Pagination.Total != count || out.Pagination.TotalPages != 2 || !out.Pagination.HasNext {
		t.Fatalf("pagination mismatch: %#v", out.Pagination)
	}
	if len(out.Experiences) != 1 {
		t.Fatalf("expected 1 post on page 1")
	}
	// newest first by default
	if out.Experiences[0].Content != "second" {
		t.Fatalf("default sort: got %q", out.Experiences[0].Content)
	}
}

func TestListExperiences_QueryPassthrough_and_Error(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got services.ExperienceListInput
	svc := stubExpSvc{listPage: func(ctx context.Context, in services.ExperienceListInput) ([]domain.Experience, int64, error) {
		got = in
		return nil, 0, nil
	}}
	h := newExpHandlers(svc)
	r := gin.New()
	r.GET("/experiences", h.ListExperiences)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/experiences?category=Work&sort=likes&page=3&page_size=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d", w.Code)
	}
	if got.Category != "Work" || got.Sort != repo.ExperienceSortLikes {
		t.Fatalf("query passthrough: %#v", got)
	}
	if got.Page != 3 || got.PageSize != 5 {
		t.Fatalf("page passthrough: %#v", got)
	}

	errSvc := stubExpSvc{listPage: func(context.Context, services.ExperienceListInput) ([]domain.Experience, int64, error) {
		return nil, 0, gorm.ErrInvalidField
	}}
	h = newExpHandlers(errSvc)
	r = gin.New()
	r.GET("/experiences", h.ListExperiences)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/experiences", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("list error -> %d", w.Code)
	}
}

// ---------- LikeExperience ----------

func TestLikeExperience_UUID_NotFound_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// bad UUID
	{
		h := newExpHandlers(stubExpSvc{})
		r := gin.New()
		r.POST("/experiences/:id/like", h.LikeExperience)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/experiences/nope/like", nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("uuid 400 -> %d", w.Code)
		}
	}

	// not found -> 404
	{
		errSvc := stubExpSvc{like: func(context.Context, string) (int64, error) {
			return 0, services.ErrExperienceNotFound
		}}
		h := newExpHandlers(errSvc)
		r := gin.New()
		r.POST("/experiences/:id/like", h.LikeExperience)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/experiences/"+uuid.NewString()+"/like", nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("not found -> %d", w.Code)
		}
	}

	// success -> 200 with counter
	{
		id := uuid.NewString()
		okSvc := stubExpSvc{like: func(ctx context.Context, gotID string) (int64, error) {
			if gotID != id {
				t.Fatalf("id = %q", gotID)
			}
			return 9, nil
		}}
		h := newExpHandlers(okSvc)
		r := gin.New()
		r.POST("/experiences/:id/like", h.LikeExperience)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/experiences/"+id+"/like", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("like -> %d", w.Code)
		}
		var out CounterResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.ID != id || out.Count != 9 {
			t.Fatalf("counter: %#v", out)
		}
	}
}

// ---------- comments ----------

func TestListExperienceComments_Codes_and_EmptyNeverNil(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.NewString()

	// bad UUID
	{
		h := newExpHandlers(stubExpSvc{})
		r := gin.New()
		r.GET("/experiences/:id/comments", h.ListExperienceComments)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/experiences/nope/comments", nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("uuid 400 -> %d", w.Code)
		}
	}

	// missing post -> 404
	{
		errSvc := stubExpSvc{comments: func(context.Context, string) ([]domain.ExperienceComment, error) {
			return nil, services.ErrExperienceNotFound
		}}
		h := newExpHandlers(errSvc)
		r := gin.New()
		r.GET("/experiences/:id/comments", h.ListExperienceComments)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/experiences/"+id+"/comments", nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("not found -> %d", w.Code)
		}
	}

	// nil slice from the service serializes as an empty array
	{
		h := newExpHandlers(stubExpSvc{})
		r := gin.New()
		r.GET("/experiences/:id/comments", h.ListExperienceComments)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/experiences/"+id+"/comments", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("comments -> %d", w.Code)
		}
		var out struct {
			Comments []domain.ExperienceComment `json:"comments"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.Comments == nil || len(out.Comments) != 0 {
			t.Fatalf("comments = %#v, want empty array", out.Comments)
		}
	}
}

func TestCreateExperienceComment_Binding_NotFound_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.NewString()

	// bad UUID
	{
		h := newExpHandlers(stubExpSvc{})
		r := gin.New()
		r.POST("/experiences/:id/comments", h.CreateExperienceComment)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/experiences/nope/comments", bytes.NewBufferString(`{"content":"x"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("uuid 400 -> %d", w.Code)
		}
	}

	// missing content -> 400
	{
		h := newExpHandlers(stubExpSvc{})
		r := gin.New()
		r.POST("/experiences/:id/comments", h.CreateExperienceComment)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/experiences/"+id+"/comments", bytes.NewBufferString(`{}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("binding 400 -> %d", w.Code)
		}
	}

	// missing post -> 404
	{
		errSvc := stubExpSvc{comment: func(context.Context, string, string, string) (*domain.ExperienceComment, int64, error) {
			return nil, 0, services.ErrExperienceNotFound
		}}
		h := newExpHandlers(errSvc)
		r := gin.New()
		r.POST("/experiences/:id/comments", h.CreateExperienceComment)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/experiences/"+id+"/comments", bytes.NewBufferString(`{"content":"hi"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Fatalf("not found -> %d", w.Code)
		}
	}

	// success -> 201 with the new total
	{
		var got struct{ uid, id, content string }
		okSvc := stubExpSvc{comment: func(ctx context.Context, u, gotID, content string) (*domain.ExperienceComment, int64, error) {
			got.uid, got.id, got.content = u, gotID, content
			return &domain.ExperienceComment{ID: uuid.NewString(), ExperienceID: gotID, Content: content}, 3, nil
		}}
		h := newExpHandlers(okSvc)
		r := gin.New()
		r.POST("/experiences/:id/comments", h.CreateExperienceComment)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/experiences/"+id+"/comments", bytes.NewBufferString(`{"content":"Congratulations!"}`))
		req.Header.Set("X-User-ID", "u5")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("comment -> %d body=%s", w.Code, w.Body.String())
		}
		if got.uid != "u5" || got.id != id || got.content != "Congratulations!" {
			t.Fatalf("service args: %+v", got)
		}
		var out CommentResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.Total != 3 || out.Comment == nil || out.Comment.Content != "Congratulations!" {
			t.Fatalf("response: %#v", out)
		}
	}
}
