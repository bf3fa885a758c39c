package domain

import "time"

// Follow, Block, and Mute are directed relations in the social graph.
// Blocking implies automatic unfollow in both directions (I3); muting is
// one-sided and does not affect the follow relation. See internal/social
// for the operations maintaining these invariants.

type Follow struct {
	FollowerID UserID `gorm:"type:uuid;primaryKey"`
	FollowedID UserID `gorm:"type:uuid;primaryKey"`
	CreatedAt  time.Time
}

func (Follow) TableName() string { return "follows" }

type Block struct {
	BlockerID UserID `gorm:"type:uuid;primaryKey"`
	BlockedID UserID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

func (Block) TableName() string { return "blocks" }

type Mute struct {
	MuterID   UserID `gorm:"type:uuid;primaryKey"`
	MutedID   UserID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

func (Mute) TableName() string { return "mutes" }
