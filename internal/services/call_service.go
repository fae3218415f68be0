// Package services – CallService
//
// This file implements the CallService, which owns the anonymous call
// matchmaking lifecycle. Each searching user has an in-memory session moving
// through a small state machine (idle → searching → matched → idle). While
// searching, a scheduled task re-reads the waiting queue on a fixed interval
// and applies the matching policy; matching, timeout, cancellation, and
// widget lifecycle events all converge on the same teardown path.
//
// Time is abstracted behind Clock and Scheduler so tests can drive ticks and
// timeouts with simulated time. The call-session audit row and the per-user
// stats upsert after a match are best-effort: failures there are logged and
// never break the match.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/sisolabs/go-community-backend/internal/domain"
	"github.com/sisolabs/go-community-backend/internal/match"
)

// Search session states.
const (
	StateIdle      = "idle"
	StateSearching = "searching"
	StateMatched   = "matched"
)

// Terminal outcomes reported once a search leaves the searching state.
const (
	OutcomeMatched   = "matched"
	OutcomeCancelled = "cancelled"
	OutcomeTimeout   = "timeout"
	OutcomeRemoved   = "removed"
	OutcomeEnded     = "ended"
)

// Widget lifecycle events accepted by HandleEvent. Every one of them tears
// the session down the same way.
const (
	EventReadyToClose    = "ready_to_close"
	EventParticipantLeft = "participant_left"
	EventConferenceLeft  = "conference_left"
	EventWidgetError     = "widget_error"
)

// QueueRepo defines the repository contract required by CallService.
type QueueRepo interface {
	// EnterQueue replaces any previous entry for the user with a fresh
	// waiting row, inside one transaction.
	EnterQueue(ctx context.Context, db *gorm.DB, userID, language string) (*domain.QueueEntry, error)

	// RemoveFromQueue deletes the user's entry and reports rows removed.
	RemoveFromQueue(ctx context.Context, db *gorm.DB, userID string) (int64, error)

	// RemoveMatchedPair deletes both matched entries with one filtered delete.
	RemoveMatchedPair(ctx context.Context, db *gorm.DB, userID, partnerID string) error

	// ListWaiting returns all waiting entries, oldest first.
	ListWaiting(ctx context.Context, db *gorm.DB) ([]domain.QueueEntry, error)

	// CountWaiting returns the waiting-queue size.
	CountWaiting(ctx context.Context, db *gorm.DB) (int64, error)

	// FindWaiting fetches the user's waiting entry, if any.
	FindWaiting(ctx context.Context, db *gorm.DB, userID string) (*domain.QueueEntry, error)

	// DeleteStaleEntries removes entries created before the cutoff.
	DeleteStaleEntries(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)

	// CreateCallSession writes the audit row for a successful match.
	CreateCallSession(ctx context.Context, db *gorm.DB, roomID, user1ID, user2ID, lang1, lang2 string) error

	// UpsertUserStats bumps the caller's call count and preference.
	UpsertUserStats(ctx context.Context, db *gorm.DB, userID, language string, now time.Time) error
}

// callSession is the in-memory state for one user's search. Guarded by
// CallService.mu.
type callSession struct {
	state     string
	language  string
	allowAny  bool
	startedAt time.Time
	attempts  int
	roomID    string
	outcome   string
	task      TaskHandle
}

// CallService coordinates anonymous call matchmaking: queue membership,
// per-user search sessions, the poll tick, and the stale-entry sweep.
type CallService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the queue repository used by this service.
	Repo QueueRepo

	// MatchInterval is the delay between queue polls while searching.
	MatchInterval time.Duration
	// MaxWait bounds how long a search may run before timing out.
	MaxWait time.Duration
	// QueueTTL bounds how old a queue row may get before the sweep removes it.
	QueueTTL time.Duration
	// CleanupInterval is the delay between stale-entry sweeps.
	CleanupInterval time.Duration
	// ConferenceDomain is the external conferencing host handed to clients.
	ConferenceDomain string

	// Now reads the current time; tests inject a manual clock.
	Now Clock
	// Scheduler runs the poll and cleanup tasks; tests drive ticks manually.
	Scheduler Scheduler

	mu       sync.Mutex
	sessions map[string]*callSession
}

// NewCallService constructs a CallService with production defaults: a real
// clock, a ticker-backed scheduler, a 3s poll, a 5m search timeout, and a 1h
// queue TTL swept every minute.
func NewCallService(db *gorm.DB, r QueueRepo) *CallService {
	return &CallService{
		DB:               db,
		Repo:             r,
		MatchInterval:    3 * time.Second,
		MaxWait:          5 * time.Minute,
		QueueTTL:         time.Hour,
		CleanupInterval:  time.Minute,
		ConferenceDomain: "meet.jit.si",
		Now:              time.Now,
		Scheduler:        TickerScheduler{},
		sessions:         make(map[string]*callSession),
	}
}

// SearchStatus is a point-in-time view of one user's matchmaking session.
type SearchStatus struct {
	State     string        `json:"state"`
	Language  string        `json:"language,omitempty"`
	AllowAny  bool          `json:"allow_any,omitempty"`
	QueueSize int64         `json:"queue_size"`
	Elapsed   time.Duration `json:"elapsed_ms,omitempty"`
	Attempts  int           `json:"attempts,omitempty"`
	RoomID    string        `json:"room_id,omitempty"`
	Outcome   string        `json:"outcome,omitempty"`
}

// StartSearch puts the user in the waiting queue and begins polling for a
// partner. Any previous queue row for the user is replaced in the same
// transaction. A search that is already running yields ErrAlreadySearching.
func (s *CallService) StartSearch(ctx context.Context, userID, language string, allowAny bool) (SearchStatus, error) {
	if !match.ValidLanguage(language) {
		return SearchStatus{}, ErrInvalidLanguage
	}

	s.mu.Lock()
	if sess, ok := s.sessions[userID]; ok && sess.state != StateIdle {
		s.mu.Unlock()
		return SearchStatus{}, ErrAlreadySearching
	}
	s.mu.Unlock()

	if _, err := s.Repo.EnterQueue(ctx, s.DB, userID, language); err != nil {
		return SearchStatus{}, err
	}

	now := s.Now()
	sess := &callSession{
		state:     StateSearching,
		language:  language,
		allowAny:  allowAny,
		startedAt: now,
	}
	sess.task = s.Scheduler.Every(s.MatchInterval, func() { s.pollOnce(userID) })

	s.mu.Lock()
	s.sessions[userID] = sess
	s.mu.Unlock()

	return s.statusLocked(ctx, userID), nil
}

// pollOnce runs one matching attempt for userID. It is invoked by the
// scheduled task and tolerates transient repository errors by simply waiting
// for the next tick.
func (s *CallService) pollOnce(userID string) {
	ctx := context.Background()

	s.mu.Lock()
	sess, ok := s.sessions[userID]
	if !ok || sess.state != StateSearching {
		s.mu.Unlock()
		return
	}
	sess.attempts++
	language, allowAny, startedAt := sess.language, sess.allowAny, sess.startedAt
	s.mu.Unlock()

	queue, err := s.Repo.ListWaiting(ctx, s.DB)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("queue poll failed")
		return
	}

	// The row can disappear underneath us (another device cancelled, or the
	// sweep removed it). Treat that as an external cancellation.
	if !inQueue(queue, userID) {
		s.finish(userID, OutcomeRemoved)
		return
	}

	if s.Now().Sub(startedAt) >= s.MaxWait {
		if _, err := s.Repo.RemoveFromQueue(ctx, s.DB, userID); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("queue removal on timeout failed")
		}
		s.finish(userID, OutcomeTimeout)
		return
	}

	partner, ok := match.Select(queue, userID, language, allowAny)
	if !ok {
		return
	}

	if err := s.Repo.RemoveMatchedPair(ctx, s.DB, userID, partner.UserID); err != nil {
		// Leave both rows in place; next tick retries the whole decision.
		log.Warn().Err(err).Str("user_id", userID).Msg("matched pair removal failed")
		return
	}

	roomID := s.newRoomID()
	if err := s.Repo.CreateCallSession(ctx, s.DB, roomID, userID, partner.UserID, language, partner.Language); err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("call session audit row not recorded")
	}
	if err := s.Repo.UpsertUserStats(ctx, s.DB, userID, language, s.Now()); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("user stats upsert failed")
	}

	s.mu.Lock()
	if sess, ok := s.sessions[userID]; ok {
		if sess.task != nil {
			sess.task.Cancel()
			sess.task = nil
		}
		sess.state = StateMatched
		sess.roomID = roomID
		sess.outcome = OutcomeMatched
	}
	s.mu.Unlock()

	log.Info().
		Str("room_id", roomID).
		Str("language", language).
		Str("partner_language", partner.Language).
		Msg("call matched")
}

// Cancel stops the user's search and removes their queue row. Cancelling
// when no search is running is a no-op success.
func (s *CallService) Cancel(ctx context.Context, userID string) error {
	s.finish(userID, OutcomeCancelled)
	// The row may exist without an in-memory session (e.g. after a restart),
	// so the delete always runs. Zero rows removed is fine.
	_, err := s.Repo.RemoveFromQueue(ctx, s.DB, userID)
	return err
}

// HandleEvent processes a conferencing-widget lifecycle event. Every event
// kind ends the call session the same way.
func (s *CallService) HandleEvent(ctx context.Context, userID, event string) error {
	switch event {
	case EventReadyToClose, EventParticipantLeft, EventConferenceLeft, EventWidgetError:
	default:
		return fmt.Errorf("unknown call event %q", event)
	}
	s.finish(userID, OutcomeEnded)
	if _, err := s.Repo.RemoveFromQueue(ctx, s.DB, userID); err != nil {
		return err
	}
	log.Info().Str("event", event).Msg("call ended")
	return nil
}

// finish is the single teardown path: it cancels the poll task and moves the
// session back to idle with the given outcome. Safe to call when no session
// exists or the session is already idle.
func (s *CallService) finish(userID, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return
	}
	if sess.task != nil {
		sess.task.Cancel()
		sess.task = nil
	}
	if sess.state != StateIdle {
		sess.outcome = outcome
	}
	sess.state = StateIdle
	sess.roomID = ""
}

// Status reports the user's current session. When no in-memory session
// exists but a waiting queue row does (the process restarted, or another tab
// started the search), the searching session is rebuilt from the row and
// polling resumes.
func (s *CallService) Status(ctx context.Context, userID string) (SearchStatus, error) {
	s.mu.Lock()
	_, ok := s.sessions[userID]
	s.mu.Unlock()

	if !ok {
		if err := s.resume(ctx, userID); err != nil {
			return SearchStatus{}, err
		}
	}
	return s.statusLocked(ctx, userID), nil
}

// resume rebuilds a searching session from a remote waiting row. Without a
// row the user is simply idle. Resumed sessions allow cross-language
// fallback, matching the default preference.
func (s *CallService) resume(ctx context.Context, userID string) error {
	entry, err := s.Repo.FindWaiting(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	sess := &callSession{
		state:     StateSearching,
		language:  entry.Language,
		allowAny:  true,
		startedAt: entry.CreatedAt,
	}
	sess.task = s.Scheduler.Every(s.MatchInterval, func() { s.pollOnce(userID) })

	s.mu.Lock()
	if _, exists := s.sessions[userID]; exists {
		// Lost the race with a concurrent StartSearch.
		s.mu.Unlock()
		sess.task.Cancel()
		return nil
	}
	s.sessions[userID] = sess
	s.mu.Unlock()

	log.Info().Str("language", entry.Language).Msg("search session resumed from queue row")
	return nil
}

// statusLocked assembles the status snapshot, including the live queue size.
func (s *CallService) statusLocked(ctx context.Context, userID string) SearchStatus {
	size, err := s.Repo.CountWaiting(ctx, s.DB)
	if err != nil {
		log.Warn().Err(err).Msg("queue count failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return SearchStatus{State: StateIdle, QueueSize: size}
	}
	st := SearchStatus{
		State:     sess.state,
		Language:  sess.language,
		AllowAny:  sess.allowAny,
		QueueSize: size,
		Attempts:  sess.attempts,
		RoomID:    sess.roomID,
		Outcome:   sess.outcome,
	}
	if sess.state == StateSearching {
		st.Elapsed = s.Now().Sub(sess.startedAt)
	}
	return st
}

// OnlineCount reports the waiting-queue size.
func (s *CallService) OnlineCount(ctx context.Context) (int64, error) {
	return s.Repo.CountWaiting(ctx, s.DB)
}

// CleanupStale removes queue rows older than QueueTTL and reports how many
// were swept.
func (s *CallService) CleanupStale(ctx context.Context) (int64, error) {
	return s.Repo.DeleteStaleEntries(ctx, s.DB, s.Now().Add(-s.QueueTTL))
}

// StartCleanup launches the periodic stale-entry sweep and returns its
// handle for shutdown.
func (s *CallService) StartCleanup() TaskHandle {
	return s.Scheduler.Every(s.CleanupInterval, func() {
		n, err := s.CleanupStale(context.Background())
		if err != nil {
			log.Warn().Err(err).Msg("queue cleanup sweep failed")
			return
		}
		if n > 0 {
			log.Info().Int64("removed", n).Msg("stale queue entries swept")
		}
	})
}

// Close cancels every running poll task. Used on graceful shutdown.
func (s *CallService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.task != nil {
			sess.task.Cancel()
			sess.task = nil
		}
	}
}

// ConferenceConfig is the widget configuration handed to clients alongside
// a room id.
type ConferenceConfig struct {
	Domain              string   `json:"domain"`
	AppName             string   `json:"app_name"`
	StartAudioOnly      bool     `json:"start_audio_only"`
	StartWithVideoMuted bool     `json:"start_with_video_muted"`
	PrejoinPageEnabled  bool     `json:"prejoin_page_enabled"`
	ToolbarButtons      []string `json:"toolbar_buttons"`
}

// Conference returns the widget configuration for the external conferencing
// service. Audio-first defaults keep anonymous calls lightweight.
func (s *CallService) Conference() ConferenceConfig {
	return ConferenceConfig{
		Domain:              s.ConferenceDomain,
		AppName:             "SISO Call",
		StartAudioOnly:      true,
		StartWithVideoMuted: true,
		PrejoinPageEnabled:  false,
		ToolbarButtons:      []string{"microphone", "camera", "hangup", "settings", "videoquality"},
	}
}

// newRoomID builds a collision-resistant conference room name.
func (s *CallService) newRoomID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("siso-room-%d-%s", s.Now().UnixMilli(), suffix)
}

// inQueue reports whether userID has an entry in the snapshot.
func inQueue(queue []domain.QueueEntry, userID string) bool {
	for i := range queue {
		if queue[i].UserID == userID {
			return true
		}
	}
	return false
}
