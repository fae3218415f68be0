// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/sisolabs/go-community-backend/internal/config"
	"github.com/sisolabs/go-community-backend/internal/domain"
	"github.com/sisolabs/go-community-backend/internal/http/handlers"
	"github.com/sisolabs/go-community-backend/internal/http/middleware"
	"github.com/sisolabs/go-community-backend/internal/repo"
	"github.com/sisolabs/go-community-backend/internal/services"
)

// businessRepoShim adapts the repository free functions to the
// services.BusinessRepo interface expected by the BusinessService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type businessRepoShim struct{}

// CreateBusiness proxies repo.CreateBusiness.
func (businessRepoShim) CreateBusiness(ctx context.Context, db *gorm.DB, b *domain.Business) (*domain.Business, error) {
	return repo.CreateBusiness(ctx, db, b)
}

// GetBusiness proxies repo.GetBusiness.
func (businessRepoShim) GetBusiness(ctx context.Context, db *gorm.DB, id string) (*domain.Business, error) {
	return repo.GetBusiness(ctx, db, id)
}

// ListBusinesses proxies repo.ListBusinesses.
func (businessRepoShim) ListBusinesses(ctx context.Context, db *gorm.DB, q repo.BusinessQuery) ([]domain.Business, error) {
	return repo.ListBusinesses(ctx, db, q)
}

// CountBusinesses proxies repo.CountBusinesses.
func (businessRepoShim) CountBusinesses(ctx context.Context, db *gorm.DB, q repo.BusinessQuery) (int64, error) {
	return repo.CountBusinesses(ctx, db, q)
}

// IncrementBusinessViews proxies repo.IncrementBusinessViews.
func (businessRepoShim) IncrementBusinessViews(ctx context.Context, db *gorm.DB, id string) (int64, error) {
	return repo.IncrementBusinessViews(ctx, db, id)
}

// AdjustBusinessLikes proxies repo.AdjustBusinessLikes.
func (businessRepoShim) AdjustBusinessLikes(ctx context.Context, db *gorm.DB, id string, delta int) (int64, error) {
	return repo.AdjustBusinessLikes(ctx, db, id, delta)
}

// CreateBusinessView proxies repo.CreateBusinessView.
func (businessRepoShim) CreateBusinessView(ctx context.Context, db *gorm.DB, businessID, userID string) error {
	return repo.CreateBusinessView(ctx, db, businessID, userID)
}

// CreateBusinessLike proxies repo.CreateBusinessLike.
func (businessRepoShim) CreateBusinessLike(ctx context.Context, db *gorm.DB, businessID, userID string) error {
	return repo.CreateBusinessLike(ctx, db, businessID, userID)
}

// DeleteBusinessLike proxies repo.DeleteBusinessLike.
func (businessRepoShim) DeleteBusinessLike(ctx context.Context, db *gorm.DB, businessID, userID string) (int64, error) {
	return repo.DeleteBusinessLike(ctx, db, businessID, userID)
}

// ListBusinessLikes proxies repo.ListBusinessLikes.
func (businessRepoShim) ListBusinessLikes(ctx context.Context, db *gorm.DB, userID string, businessIDs []string) (map[string]bool, error) {
	return repo.ListBusinessLikes(ctx, db, userID, businessIDs)
}

// CreateContactRequest proxies repo.CreateContactRequest.
func (businessRepoShim) CreateContactRequest(ctx context.Context, db *gorm.DB, r *domain.ContactRequest) (*domain.ContactRequest, error) {
	return repo.CreateContactRequest(ctx, db, r)
}

// GetDirectoryStats proxies repo.GetDirectoryStats.
func (businessRepoShim) GetDirectoryStats(ctx context.Context, db *gorm.DB) (repo.DirectoryStats, error) {
	return repo.GetDirectoryStats(ctx, db)
}

// queueRepoShim adapts the repository free functions to the
// services.QueueRepo interface expected by the CallService.
type queueRepoShim struct{}

// EnterQueue proxies repo.EnterQueue.
func (queueRepoShim) EnterQueue(ctx context.Context, db *gorm.DB, userID, language string) (*domain.QueueEntry, error) {
	return repo.EnterQueue(ctx, db, userID, language)
}

// RemoveFromQueue proxies repo.RemoveFromQueue.
func (queueRepoShim) RemoveFromQueue(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.RemoveFromQueue(ctx, db, userID)
}

// RemoveMatchedPair proxies repo.RemoveMatchedPair.
func (queueRepoShim) RemoveMatchedPair(ctx context.Context, db *gorm.DB, userID, partnerID string) error {
	return repo.RemoveMatchedPair(ctx, db, userID, partnerID)
}

// ListWaiting proxies repo.ListWaiting.
func (queueRepoShim) ListWaiting(ctx context.Context, db *gorm.DB) ([]domain.QueueEntry, error) {
	return repo.ListWaiting(ctx, db)
}

// CountWaiting proxies repo.CountWaiting.
func (queueRepoShim) CountWaiting(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountWaiting(ctx, db)
}

// FindWaiting proxies repo.FindWaiting.
func (queueRepoShim) FindWaiting(ctx context.Context, db *gorm.DB, userID string) (*domain.QueueEntry, error) {
	return repo.FindWaiting(ctx, db, userID)
}

// DeleteStaleEntries proxies repo.DeleteStaleEntries.
func (queueRepoShim) DeleteStaleEntries(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	return repo.DeleteStaleEntries(ctx, db, cutoff)
}

// CreateCallSession proxies repo.CreateCallSession.
func (queueRepoShim) CreateCallSession(ctx context.Context, db *gorm.DB, roomID, user1ID, user2ID, lang1, lang2 string) error {
	return repo.CreateCallSession(ctx, db, roomID, user1ID, user2ID, lang1, lang2)
}

// UpsertUserStats proxies repo.UpsertUserStats.
func (queueRepoShim) UpsertUserStats(ctx context.Context, db *gorm.DB, userID, language string, now time.Time) error {
	return repo.UpsertUserStats(ctx, db, userID, language, now)
}

// experienceRepoShim adapts the repository free functions to the
// services.ExperienceRepo interface expected by the ExperienceService.
type experienceRepoShim struct{}

// CreateExperience proxies repo.CreateExperience.
func (experienceRepoShim) CreateExperience(ctx context.Context, db *gorm.DB, e *domain.Experience) (*domain.Experience, error) {
	return repo.CreateExperience(ctx, db, e)
}

// GetExperience proxies repo.GetExperience.
func (experienceRepoShim) GetExperience(ctx context.Context, db *gorm.DB, id string) (*domain.Experience, error) {
	return repo.GetExperience(ctx, db, id)
}

// ListExperiences proxies repo.ListExperiences.
func (experienceRepoShim) ListExperiences(ctx context.Context, db *gorm.DB, q repo.ExperienceQuery) ([]domain.Experience, error) {
	return repo.ListExperiences(ctx, db, q)
}

// CountExperiences proxies repo.CountExperiences.
func (experienceRepoShim) CountExperiences(ctx context.Context, db *gorm.DB, q repo.ExperienceQuery) (int64, error) {
	return repo.CountExperiences(ctx, db, q)
}

// IncrementExperienceLikes proxies repo.IncrementExperienceLikes.
func (experienceRepoShim) IncrementExperienceLikes(ctx context.Context, db *gorm.DB, id string) (int64, error) {
	return repo.IncrementExperienceLikes(ctx, db, id)
}

// AddExperienceComment proxies repo.AddExperienceComment.
func (experienceRepoShim) AddExperienceComment(ctx context.Context, db *gorm.DB, experienceID, userID, content string) (*domain.ExperienceComment, int64, error) {
	return repo.AddExperienceComment(ctx, db, experienceID, userID, content)
}

// ListExperienceComments proxies repo.ListExperienceComments.
func (experienceRepoShim) ListExperienceComments(ctx context.Context, db *gorm.DB, experienceID string) ([]domain.ExperienceComment, error) {
	return repo.ListExperienceComments(ctx, db, experienceID)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// It returns the CallService so the entrypoint can start the cleanup sweeper
// and stop in-flight searches on shutdown.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) *services.CallService {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction. The device pseudonym header is
	// masked so access logs cannot be joined against per-user activity.
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-User-ID",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// Compress large list responses; /metrics is excluded so Prometheus
	// scrapes stay uncompressed.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db
	bizSvc := services.NewBusinessService(db, businessRepoShim{})
	expSvc := services.NewExperienceService(db, experienceRepoShim{})

	callSvc := services.NewCallService(db, queueRepoShim{})
	callSvc.MatchInterval = cfg.Call.MatchInterval
	callSvc.MaxWait = cfg.Call.MaxWaitTime
	callSvc.CleanupInterval = cfg.Call.CleanupInterval
	callSvc.QueueTTL = cfg.Call.QueueTTL
	callSvc.ConferenceDomain = cfg.Call.ConferenceDomain

	h := handlers.New(bizSvc, callSvc, expSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Business directory
		api.POST("/businesses", h.CreateBusiness)
		api.GET("/businesses", h.ListBusinesses)
		api.GET("/businesses/stats", h.BusinessStats)
		api.GET("/businesses/categories", h.ListCategories)
		api.GET("/businesses/:id", h.GetBusiness)
		api.POST("/businesses/:id/view", h.RecordBusinessView)
		api.PUT("/businesses/:id/like", h.LikeBusiness)
		api.DELETE("/businesses/:id/like", h.UnlikeBusiness)
		api.POST("/businesses/:id/contact", h.ContactBusiness)

		// Call matchmaking
		api.POST("/calls/search", h.StartCallSearch)
		api.GET("/calls/search", h.CallSearchStatus)
		api.DELETE("/calls/search", h.CancelCallSearch)
		api.POST("/calls/events", h.PostCallEvent)
		api.GET("/calls/online", h.CallOnline)
		api.GET("/calls/config", h.CallConfig)

		// Experience feed
		api.POST("/experiences", h.CreateExperience)
		api.GET("/experiences", h.ListExperiences)
		api.POST("/experiences/:id/like", h.LikeExperience)
		api.GET("/experiences/:id/comments", h.ListExperienceComments)
		api.POST("/experiences/:id/comments", h.CreateExperienceComment)
	}

	return callSvc
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
