// Package social wraps internal/repository's SocialRepo with the
// cross-cutting concerns the row-store layer intentionally leaves out: block
// checks (Follow rejection and CanInteract), feed-cache invalidation, and
// audit logging for blocks, grounded on
// original_source/backend/user-service/src/db/social_repo.rs.
package social

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/novafabric/backbone/internal/apperr"
	"github.com/novafabric/backbone/internal/domain"
)

// Repo is the subset of internal/repository.SocialRepo this service needs.
type Repo interface {
	Follow(ctx context.Context, followerID, followedID domain.UserID) error
	Unfollow(ctx context.Context, followerID, followedID domain.UserID) error
	Block(ctx context.Context, blockerID, blockedID domain.UserID) error
	Unblock(ctx context.Context, blockerID, blockedID domain.UserID) error
	Mute(ctx context.Context, muterID, mutedID domain.UserID) error
	Unmute(ctx context.Context, muterID, mutedID domain.UserID) error
	IsFollowing(ctx context.Context, followerID, followedID domain.UserID) (bool, error)
	IsBlocked(ctx context.Context, blockerID, blockedID domain.UserID) (bool, error)
	ListFollowing(ctx context.Context, userID domain.UserID) ([]domain.UserID, error)
	FollowersCount(ctx context.Context, userID domain.UserID) (int64, error)
	FollowingCount(ctx context.Context, userID domain.UserID) (int64, error)
}

// Invalidator evicts a user's cached feed, implemented by
// cmd/feedsvc against internal/cache.Manager so this package doesn't need
// to depend on Redis directly.
type Invalidator interface {
	InvalidateFeed(ctx context.Context, userID domain.UserID) error
}

type Service struct {
	repo   Repo
	cache  Invalidator
	logger *logrus.Logger
}

func NewService(repo Repo, cache Invalidator, logger *logrus.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// invalidate evicts each user's cached feed, logging but not failing the
// caller on a cache error: a stale feed entry self-heals on its next TTL
// expiry, so cache invalidation is best-effort relative to the write it
// follows.
func (s *Service) invalidate(ctx context.Context, userIDs ...domain.UserID) {
	if s.cache == nil {
		return
	}
	for _, id := range userIDs {
		if err := s.cache.InvalidateFeed(ctx, id); err != nil {
			s.logger.WithError(err).WithField("user_id", id.String()).Warn("failed to invalidate feed cache")
		}
	}
}

func (s *Service) Follow(ctx context.Context, followerID, followedID domain.UserID) error {
	blocked, err := s.repo.IsBlocked(ctx, followedID, followerID)
	if err != nil {
		return err
	}
	if blocked {
		// Uniform with other authorization-denied paths: no hint that the
		// block exists, matching the "never reveal which side blocked" rule
		// used for conversation membership checks.
		return apperr.Forbidden("CANNOT_FOLLOW")
	}
	if err := s.repo.Follow(ctx, followerID, followedID); err != nil {
		return err
	}
	// Both feeds change: the follower's recall set gains the followed
	// author, per §4.2.4.
	s.invalidate(ctx, followerID, followedID)
	return nil
}

func (s *Service) Unfollow(ctx context.Context, followerID, followedID domain.UserID) error {
	if err := s.repo.Unfollow(ctx, followerID, followedID); err != nil {
		return err
	}
	s.invalidate(ctx, followerID, followedID)
	return nil
}

// Block unfollows both directions (delegated to the repo, which does this
// unconditionally per invariant I3) and audit-logs the action since blocks
// are moderation-sensitive.
func (s *Service) Block(ctx context.Context, blockerID, blockedID domain.UserID) error {
	if err := s.repo.Block(ctx, blockerID, blockedID); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"audit":      true,
		"action":     "social.block",
		"actor_id":   blockerID.String(),
		"target_id":  blockedID.String(),
	}).Info("user blocked")
	s.invalidate(ctx, blockerID, blockedID)
	return nil
}

func (s *Service) Unblock(ctx context.Context, blockerID, blockedID domain.UserID) error {
	if err := s.repo.Unblock(ctx, blockerID, blockedID); err != nil {
		return err
	}
	s.invalidate(ctx, blockerID, blockedID)
	return nil
}

func (s *Service) Mute(ctx context.Context, muterID, mutedID domain.UserID) error {
	return s.repo.Mute(ctx, muterID, mutedID)
}

func (s *Service) Unmute(ctx context.Context, muterID, mutedID domain.UserID) error {
	return s.repo.Unmute(ctx, muterID, mutedID)
}

// CanInteract reports whether actorID may engage with targetID at all
// (neither has blocked the other). No feed or notification path in this
// repository calls it.
func (s *Service) CanInteract(ctx context.Context, actorID, targetID domain.UserID) (bool, error) {
	blockedByTarget, err := s.repo.IsBlocked(ctx, targetID, actorID)
	if err != nil {
		return false, err
	}
	if blockedByTarget {
		return false, nil
	}
	blockedByActor, err := s.repo.IsBlocked(ctx, actorID, targetID)
	if err != nil {
		return false, err
	}
	return !blockedByActor, nil
}

func (s *Service) ListFollowing(ctx context.Context, userID domain.UserID) ([]domain.UserID, error) {
	return s.repo.ListFollowing(ctx, userID)
}

func (s *Service) FollowersCount(ctx context.Context, userID domain.UserID) (int64, error) {
	return s.repo.FollowersCount(ctx, userID)
}

func (s *Service) FollowingCount(ctx context.Context, userID domain.UserID) (int64, error) {
	return s.repo.FollowingCount(ctx, userID)
}
