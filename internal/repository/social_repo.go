package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/novafabric/backbone/internal/apperr"
	"github.com/novafabric/backbone/internal/domain"
)

// SocialRepo implements the follow/block/mute primitives, ported from
// original_source/backend/user-service/src/db/social_repo.rs. Every
// mutation is idempotent via ON CONFLICT DO NOTHING / affected-rows-
// tolerant deletes.
type SocialRepo struct {
	db *gorm.DB
}

func NewSocialRepo(db *gorm.DB) *SocialRepo { return &SocialRepo{db: db} }

func (r *SocialRepo) Follow(ctx context.Context, followerID, followedID domain.UserID) error {
	if followerID == followedID {
		return apperr.Validation("CANNOT_FOLLOW_SELF", "cannot follow yourself")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Follow{FollowerID: followerID, FollowedID: followedID}).Error
}

func (r *SocialRepo) Unfollow(ctx context.Context, followerID, followedID domain.UserID) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&domain.Follow{}).Error
}

// Block unconditionally attempts to unfollow in both directions first,
// matching the original's "Automatically unfollow when blocking" comment
// and invariant I3.
func (r *SocialRepo) Block(ctx context.Context, blockerID, blockedID domain.UserID) error {
	if blockerID == blockedID {
		return apperr.Validation("CANNOT_BLOCK_SELF", "cannot block yourself")
	}

	_ = r.Unfollow(ctx, blockerID, blockedID)
	_ = r.Unfollow(ctx, blockedID, blockerID)

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Block{BlockerID: blockerID, BlockedID: blockedID}).Error
}

func (r *SocialRepo) Unblock(ctx context.Context, blockerID, blockedID domain.UserID) error {
	return r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&domain.Block{}).Error
}

func (r *SocialRepo) Mute(ctx context.Context, muterID, mutedID domain.UserID) error {
	if muterID == mutedID {
		return apperr.Validation("CANNOT_MUTE_SELF", "cannot mute yourself")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Mute{MuterID: muterID, MutedID: mutedID}).Error
}

func (r *SocialRepo) Unmute(ctx context.Context, muterID, mutedID domain.UserID) error {
	return r.db.WithContext(ctx).
		Where("muter_id = ? AND muted_id = ?", muterID, mutedID).
		Delete(&domain.Mute{}).Error
}

func (r *SocialRepo) IsFollowing(ctx context.Context, followerID, followedID domain.UserID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	return count > 0, err
}

func (r *SocialRepo) IsBlocked(ctx context.Context, blockerID, blockedID domain.UserID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Block{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&count).Error
	return count > 0, err
}

// ListFollowing implements recall.FollowingLister for the social-graph
// recall strategy.
func (r *SocialRepo) ListFollowing(ctx context.Context, userID domain.UserID) ([]domain.UserID, error) {
	var follows []domain.Follow
	if err := r.db.WithContext(ctx).Where("follower_id = ?", userID).Find(&follows).Error; err != nil {
		return nil, err
	}
	ids := make([]domain.UserID, len(follows))
	for i, f := range follows {
		ids[i] = f.FollowedID
	}
	return ids, nil
}

// ListFollowers is the reverse of ListFollowing, used to fan out feed-cache
// invalidation to every follower of an author whose post/removal changes
// what their followers' feeds should show (§4.2.4).
func (r *SocialRepo) ListFollowers(ctx context.Context, userID domain.UserID) ([]domain.UserID, error) {
	var follows []domain.Follow
	if err := r.db.WithContext(ctx).Where("followed_id = ?", userID).Find(&follows).Error; err != nil {
		return nil, err
	}
	ids := make([]domain.UserID, len(follows))
	for i, f := range follows {
		ids[i] = f.FollowerID
	}
	return ids, nil
}

func (r *SocialRepo) FollowersCount(ctx context.Context, userID domain.UserID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Follow{}).Where("followed_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *SocialRepo) FollowingCount(ctx context.Context, userID domain.UserID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Follow{}).Where("follower_id = ?", userID).Count(&count).Error
	return count, err
}
