// Call matchmaking HTTP handlers.
//
// This file exposes REST endpoints for anonymous call matchmaking:
//   - POST   /calls/search  (enter the queue, start searching)
//   - GET    /calls/search  (session status; resumes from a remote queue row)
//   - DELETE /calls/search  (cancel, idempotent)
//   - POST   /calls/events  (conferencing-widget lifecycle event)
//   - GET    /calls/online  (waiting-queue size)
//   - GET    /calls/config  (conference config and language table)
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sisolabs/go-community-backend/internal/match"
	"github.com/sisolabs/go-community-backend/internal/services"
)

// CallService defines matchmaking operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CallService interface {
	// StartSearch enters the queue and begins polling for a partner.
	StartSearch(ctx context.Context, userID, language string, allowAny bool) (services.SearchStatus, error)
	// Status reports the user's current session, resuming from a remote
	// queue row when needed.
	Status(ctx context.Context, userID string) (services.SearchStatus, error)
	// Cancel stops the search; cancelling an idle session is a no-op.
	Cancel(ctx context.Context, userID string) error
	// HandleEvent tears the session down for a widget lifecycle event.
	HandleEvent(ctx context.Context, userID, event string) error
	// OnlineCount reports the waiting-queue size.
	OnlineCount(ctx context.Context) (int64, error)
	// Conference returns the widget configuration.
	Conference() services.ConferenceConfig
}

//
// DTOs
//

// StartSearchRequest is the JSON payload for starting a partner search.
type StartSearchRequest struct {
	// Language is the preferred language code from the fixed table.
	Language string `json:"language" binding:"required" example:"Te"`
	// AllowAny permits cross-language fallback after same-language matching.
	AllowAny *bool `json:"allow_any" example:"true"`
}

// CallEventRequest is the JSON payload for a widget lifecycle event.
type CallEventRequest struct {
	Event string `json:"event" binding:"required" example:"conference_left"`
}

// SearchStatusResponse wraps the session status; Conference is present only
// when the session is matched.
type SearchStatusResponse struct {
	services.SearchStatus
	Conference *services.ConferenceConfig `json:"conference,omitempty"`
}

//
// Handlers
//

// StartCallSearch godoc
// @ID          startCallSearch
// @Summary     Start searching for a call partner
// @Description Enters the waiting queue (replacing any previous entry) and starts the matching loop.
// @Tags        Calls
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (device pseudonym)"
// @Param       body       body    handlers.StartSearchRequest  true  "Search preferences"
//
// @Success     202  {object} handlers.SearchStatusResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     409  {object} handlers.ErrorResponse "Search already in progress"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /calls/search [post]
func (h *Handlers) StartCallSearch(c *gin.Context) {
	var req StartSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "language is required")
		return
	}
	allowAny := true
	if req.AllowAny != nil {
		allowAny = *req.AllowAny
	}

	st, err := h.callSvc.StartSearch(c.Request.Context(), userID(c), req.Language, allowAny)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidLanguage):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrAlreadySearching):
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSearchFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusAccepted, h.searchResponse(st))
}

// CallSearchStatus godoc
// @ID          callSearchStatus
// @Summary     Search session status
// @Description Reports the current matchmaking state. A waiting queue row without an in-memory session resumes the search.
// @Tags        Calls
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (device pseudonym)"
//
// @Success     200  {object} handlers.SearchStatusResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /calls/search [get]
func (h *Handlers) CallSearchStatus(c *gin.Context) {
	st, err := h.callSvc.Status(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSearchFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, h.searchResponse(st))
}

// CancelCallSearch godoc
// @ID          cancelCallSearch
// @Summary     Cancel the search
// @Description Stops the matching loop and removes the caller's queue entry. Idempotent.
// @Tags        Calls
//
// @Param       X-User-ID  header  string  false "User ID (device pseudonym)"
//
// @Success     204  {string} string "No Content"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /calls/search [delete]
func (h *Handlers) CancelCallSearch(c *gin.Context) {
	if err := h.callSvc.Cancel(c.Request.Context(), userID(c)); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSearchFailed, err.Error())
		return
	}
	noContent(c)
}

// PostCallEvent godoc
// @ID          postCallEvent
// @Summary     Report a widget lifecycle event
// @Description Ends the call session. Every event kind (ready_to_close, participant_left, conference_left, widget_error) converges on the same teardown.
// @Tags        Calls
// @Accept      json
//
// @Param       X-User-ID  header  string  false "User ID (device pseudonym)"
// @Param       body       body    handlers.CallEventRequest  true  "Event payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /calls/events [post]
func (h *Handlers) PostCallEvent(c *gin.Context) {
	var req CallEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "event is required")
		return
	}
	if err := h.callSvc.HandleEvent(c.Request.Context(), userID(c), req.Event); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	noContent(c)
}

// CallOnline godoc
// @ID          callOnline
// @Summary     Waiting-queue size
// @Tags        Calls
// @Produce     json
//
// @Success     200  {object} map[string]int64
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /calls/online [get]
func (h *Handlers) CallOnline(c *gin.Context) {
	n, err := h.callSvc.OnlineCount(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"online": n})
}

// CallConfig godoc
// @ID          callConfig
// @Summary     Conference and language configuration
// @Description Returns the conferencing-widget configuration and the fixed language table.
// @Tags        Calls
// @Produce     json
//
// @Success     200  {object} map[string]any
// @Router      /calls/config [get]
func (h *Handlers) CallConfig(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"conference": h.callSvc.Conference(),
		"languages":  match.Languages,
	})
}

// searchResponse attaches the conference config when the session is matched.
func (h *Handlers) searchResponse(st services.SearchStatus) SearchStatusResponse {
	resp := SearchStatusResponse{SearchStatus: st}
	if st.State == services.StateMatched {
		cfg := h.callSvc.Conference()
		resp.Conference = &cfg
	}
	return resp
}
