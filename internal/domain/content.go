package domain

import (
	"time"

	"github.com/lib/pq"
)

// ContentItem (Post) is owned by exactly one author. Engagement counters are
// derived from EngagementEvents applied through the event backbone; they are
// denormalized here for fast read access and are not the source of truth.
type ContentItem struct {
	ID             ContentID      `gorm:"type:uuid;primaryKey"`
	AuthorID       UserID         `gorm:"type:uuid;index;not null"`
	Body           string         `gorm:"type:text;not null"`
	MediaURLs      pq.StringArray `gorm:"type:text[]"`
	LikeCount      int64          `gorm:"default:0"`
	CommentCount   int64          `gorm:"default:0"`
	ShareCount     int64          `gorm:"default:0"`
	BookmarkCount  int64          `gorm:"default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time `gorm:"index"`
}

func (ContentItem) TableName() string { return "content_items" }

// IsVisible reports whether the item should appear in serving indices.
// Soft-deleted items are excluded from serving but kept for audit until
// retention expires (see internal/cleanup).
func (c *ContentItem) IsVisible() bool { return c.DeletedAt == nil }

// AgeHours returns the item's age in hours relative to now, used by both the
// ranking and fallback-ranking formulas.
func (c *ContentItem) AgeHours(now time.Time) float64 {
	return now.Sub(c.CreatedAt).Hours()
}

// EngagementKind enumerates the kinds of EngagementEvent.
type EngagementKind string

const (
	EngagementLike     EngagementKind = "like"
	EngagementComment  EngagementKind = "comment"
	EngagementShare    EngagementKind = "share"
	EngagementBookmark EngagementKind = "bookmark"
	EngagementView     EngagementKind = "view"
	EngagementComplete EngagementKind = "complete"
)

// EngagementEvent is an immutable, append-only analytics-store record. It is
// never mutated or deleted once written; only new events are appended.
type EngagementEvent struct {
	ActorID   UserID         `gorm:"type:uuid;index"`
	TargetID  ContentID      `gorm:"type:uuid;index"`
	Kind      EngagementKind `gorm:"size:32"`
	Timestamp time.Time
	SessionID string `gorm:"size:64"`
}

func (EngagementEvent) TableName() string { return "engagement_events" }
