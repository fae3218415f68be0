// Package domain defines the persistence models for the community backend:
// business listings and their engagement records, the anonymous call
// matchmaking queue, and the experience feed. These types are mapped with
// GORM and form the core data layer of the application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Business represents a community business listing. Listings are posted
// anonymously, accumulate views and likes, and are never deleted through
// the public API.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Title / Description / Category: core listing content.
//   - Contact / ContactType: optional contact handle and its kind
//     (email, phone, whatsapp, website, ...).
//   - Location: free-form place string.
//   - Tags: up to five labels, stored as a JSON-encoded array.
//   - Views / Likes: denormalized engagement counters, mutated only through
//     atomic SQL increments (see repo.IncrementBusinessViews et al.).
//   - Featured: curation flag, set out-of-band.
type Business struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	Title       string         `json:"title"        gorm:"type:varchar(255);not null"`
	Description string         `json:"description"  gorm:"type:text;not null"`
	Category    string         `json:"category"     gorm:"type:varchar(64);not null;index:idx_business_category"`
	Contact     string         `json:"contact"      gorm:"type:varchar(255)"`
	ContactType string         `json:"contact_type" gorm:"type:varchar(32)"`
	Location    string         `json:"location"     gorm:"type:varchar(255)"`
	Tags        string         `json:"-"            gorm:"type:text"` // JSON array, exposed via TagList
	Views       int64          `json:"views"        gorm:"not null;default:0"`
	Likes       int64          `json:"likes"        gorm:"not null;default:0"`
	Featured    bool           `json:"featured"     gorm:"not null;default:false;index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for Business.
func (Business) TableName() string { return "businesses" }

// BusinessView is an append-only audit record of a single listing view.
// There is no invariant linking the number of rows to Business.Views; the
// counter is the source of truth for display, the rows are for analysis.
type BusinessView struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	BusinessID string    `json:"business_id" gorm:"type:char(36);not null;index"`
	UserID     string    `json:"user_id"     gorm:"type:varchar(64);not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for BusinessView.
func (BusinessView) TableName() string { return "business_views" }

// BusinessLike marks that a user likes a listing. Uniqueness per
// (business_id, user_id) is enforced by the database so the liked state can
// be answered from this table rather than from device-local storage.
type BusinessLike struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	BusinessID string    `json:"business_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_like_business_user"`
	UserID     string    `json:"user_id"     gorm:"type:varchar(64);not null;uniqueIndex:ux_like_business_user"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for BusinessLike.
func (BusinessLike) TableName() string { return "business_likes" }

// ContactRequest is a message from an interested visitor to a listing owner.
type ContactRequest struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	BusinessID    string    `json:"business_id"    gorm:"type:char(36);not null;index"`
	SenderName    string    `json:"sender_name"    gorm:"type:varchar(255);not null"`
	SenderContact string    `json:"sender_contact" gorm:"type:varchar(255);not null"`
	Message       string    `json:"message"        gorm:"type:text;not null"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName returns the database table name for ContactRequest.
func (ContactRequest) TableName() string { return "contact_requests" }

// Queue entry status values. Only "waiting" entries participate in matching.
const QueueStatusWaiting = "waiting"

// QueueEntry is one user actively searching for an anonymous call partner.
// At most one entry exists per user: entering the queue deletes any previous
// row and inserts a fresh one inside a single transaction. Entries disappear
// on match, on cancel, or when the cleanup sweep removes stale rows.
type QueueEntry struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_queue_user"`
	Language  string    `json:"language"   gorm:"type:varchar(8);not null"`
	Status    string    `json:"status"     gorm:"type:varchar(16);not null;default:'waiting';index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for QueueEntry.
func (QueueEntry) TableName() string { return "call_queue" }

// CallSession is a write-only audit row recorded once per successful match.
// It is never read back by the application.
type CallSession struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	RoomID        string    `json:"room_id"        gorm:"type:varchar(128);not null"`
	User1ID       string    `json:"user1_id"       gorm:"type:varchar(64);not null"`
	User2ID       string    `json:"user2_id"       gorm:"type:varchar(64);not null"`
	User1Language string    `json:"user1_language" gorm:"type:varchar(8)"`
	User2Language string    `json:"user2_language" gorm:"type:varchar(8)"`
	StartedAt     time.Time `json:"started_at"`
}

// TableName returns the database table name for CallSession.
func (CallSession) TableName() string { return "call_sessions" }

// UserStats tracks per-user call activity. The row is upserted after each
// successful match.
type UserStats struct {
	ID                string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	UserID            string    `json:"user_id"            gorm:"type:varchar(64);not null;uniqueIndex:ux_stats_user"`
	TotalCalls        int64     `json:"total_calls"        gorm:"not null;default:0"`
	PreferredLanguage string    `json:"preferred_language" gorm:"type:varchar(8)"`
	LastActive        time.Time `json:"last_active"`
}

// TableName returns the database table name for UserStats.
func (UserStats) TableName() string { return "user_stats" }

// Experience is an anonymous post on the experience feed.
//
// Likes and Comments are denormalized counters. They are mutated through
// atomic SQL increments, and the comment counter is bumped in the same
// transaction that inserts the comment row, so the two cannot drift.
type Experience struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Content   string         `json:"content"    gorm:"type:text;not null"`
	Category  string         `json:"category"   gorm:"type:varchar(64);not null;index:idx_experience_category"`
	Mood      string         `json:"mood"       gorm:"type:varchar(64)"`
	Likes     int64          `json:"likes"      gorm:"not null;default:0"`
	Comments  int64          `json:"comments"   gorm:"not null;default:0"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Experience.
func (Experience) TableName() string { return "experiences" }

// ExperienceComment is a single anonymous comment on an experience post.
type ExperienceComment struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	ExperienceID string    `json:"experience_id" gorm:"type:char(36);not null;index:idx_comment_experience"`
	UserID       string    `json:"user_id"       gorm:"type:varchar(64);not null"`
	Content      string    `json:"content"       gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"created_at"`

	// Experience is the parent post. Comments are cascade-deleted if the
	// post is removed.
	Experience Experience `json:"-" gorm:"foreignKey:ExperienceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ExperienceComment.
func (ExperienceComment) TableName() string { return "experience_comments" }
