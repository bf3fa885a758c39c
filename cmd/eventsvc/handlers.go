package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/novafabric/backbone/internal/analytics"
	"github.com/novafabric/backbone/internal/cache"
	"github.com/novafabric/backbone/internal/domain"
	"github.com/novafabric/backbone/internal/events"
	"github.com/novafabric/backbone/internal/metrics"
	"github.com/novafabric/backbone/internal/repository"
)

// followerFeedInvalidator evicts every follower's feed:v1:{user_id} cache
// entry when an author's content set changes in a way followers' feeds
// should reflect (new post, or admin/moderation removal), per §4.2.4's
// "followed-author-post" and "admin-moderation" invalidation triggers.
type followerFeedInvalidator struct {
	social *repository.SocialRepo
	cache  *cache.Manager
}

func (f *followerFeedInvalidator) invalidateFollowersOf(ctx context.Context, authorID domain.UserID, logger *logrus.Logger) {
	followers, err := f.social.ListFollowers(ctx, authorID)
	if err != nil {
		logger.WithError(err).WithField("author_id", authorID.String()).Warn("failed to list followers for cache invalidation")
		return
	}
	if len(followers) == 0 {
		return
	}
	keys := make([]string, len(followers))
	for i, id := range followers {
		keys[i] = cache.FeedKey(id.String())
	}
	if err := f.cache.Delete(ctx, keys...); err != nil {
		logger.WithError(err).WithField("author_id", authorID.String()).Warn("failed to invalidate followers' feed cache")
	}
}

// engagementColumns maps an engagement kind to the denormalized counter
// column it bumps on content_items. view/complete have no counter column;
// they only ever land in the analytics store for the feature/trending
// aggregates.
var engagementColumns = map[domain.EngagementKind]string{
	domain.EngagementLike:     "like_count",
	domain.EngagementComment:  "comment_count",
	domain.EngagementShare:    "share_count",
	domain.EngagementBookmark: "bookmark_count",
}

// registerHandlers wires every event_type this instance consumes onto the
// Consumer, per §4.1's event catalogue and §9 Open Question 2's
// conversation_id-keyed ordering. Each handler is wrapped to record the
// shared consumed/error counters under its resolved event_type label.
func registerHandlers(consumer *events.Consumer, content *repository.ContentRepo, store *analytics.Store, invalidator *followerFeedInvalidator, eventMetrics *metrics.Events, logger *logrus.Logger) {
	register := func(eventType string, h events.Handler, legacyAliases ...string) {
		consumer.On(eventType, metered(eventType, h, eventMetrics), legacyAliases...)
	}

	register("engagement.recorded", handleEngagementRecorded(content, store, logger), "EngagementRecordedEvent")
	register("identity.user.deleted", handleUserDeleted(content, logger), "UserDeletedEvent")
	register("content.created", handleContentCreated(content, invalidator, logger), "ContentCreatedEvent")
	register("content.deleted", handleContentDeleted(content, invalidator, logger), "ContentDeletedEvent")
}

// metered records the consumed/error counters around a handler under a
// fixed event_type label, so a legacy alias is attributed to the canonical
// type rather than fragmenting the metric.
func metered(eventType string, h events.Handler, m *metrics.Events) events.Handler {
	return func(ctx context.Context, env events.Envelope) error {
		m.Consumed.WithLabelValues(eventType).Inc()
		if err := h(ctx, env); err != nil {
			m.HandlerErrors.WithLabelValues(eventType).Inc()
			return err
		}
		return nil
	}
}

// handleEngagementRecorded applies a single engagement event: it records to
// the analytics store (the source of truth for trending/feature aggregates,
// deduplicated by event_id) and, for kinds with a denormalized counter,
// bumps content_items in the same handler invocation. A redelivered
// envelope is a no-op in both stores: RecordEngagement reports whether the
// row was newly inserted, and the counter bump is skipped when it wasn't,
// satisfying invariant I4's idempotent-upsert requirement.
func handleEngagementRecorded(content *repository.ContentRepo, store *analytics.Store, logger *logrus.Logger) events.Handler {
	return func(ctx context.Context, env events.Envelope) error {
		actorID, _ := env.Payload["actor_id"].(string)
		targetID, _ := env.Payload["target_id"].(string)
		kindRaw, _ := env.Payload["kind"].(string)
		sessionID, _ := env.Payload["session_id"].(string)

		kind := domain.EngagementKind(kindRaw)
		inserted, err := store.RecordEngagement(ctx, env.EventID, actorID, targetID, kindRaw, sessionID)
		if err != nil {
			return fmt.Errorf("record engagement: %w", err)
		}
		if !inserted {
			logger.WithField("event_id", env.EventID).Debug("duplicate engagement delivery, skipping counter update")
			return nil
		}

		column, hasCounter := engagementColumns[kind]
		if !hasCounter {
			return nil
		}
		contentID, err := domain.ParseContentID(targetID)
		if err != nil {
			logger.WithError(err).WithField("target_id", targetID).Debug("engagement target is not a content id, skipping counter update")
			return nil
		}
		return content.IncrementCounter(ctx, contentID, column, 1)
	}
}

// handleUserDeleted tombstones a deleted user's content eagerly, ahead of
// the periodic retention sweep (internal/cleanup), so their posts stop
// serving immediately rather than on the next cleanup cycle.
func handleUserDeleted(content *repository.ContentRepo, logger *logrus.Logger) events.Handler {
	return func(ctx context.Context, env events.Envelope) error {
		for _, id := range env.EntityIDs {
			contentID, err := domain.ParseContentID(id)
			if err != nil {
				continue // not a UUID; a user id parses too but matches no content row
			}
			if err := content.SoftDelete(ctx, contentID); err != nil {
				return fmt.Errorf("soft delete content %s: %w", id, err)
			}
		}
		return nil
	}
}

// handleContentCreated applies the "followed-author-post" invalidation
// trigger from §4.2.4: the row itself is written synchronously by the
// content-authoring path, not replayed through the bus, so this handler's
// only job is to evict every follower's cached feed so their next read sees
// the new post instead of a stale cached page.
func handleContentCreated(content *repository.ContentRepo, invalidator *followerFeedInvalidator, logger *logrus.Logger) events.Handler {
	return func(ctx context.Context, env events.Envelope) error {
		if len(env.EntityIDs) == 0 {
			return nil
		}
		contentID, err := domain.ParseContentID(env.EntityIDs[0])
		if err != nil {
			return nil
		}
		item, err := content.Get(ctx, contentID)
		if err != nil {
			logger.WithError(err).WithField("content_id", contentID.String()).Debug("content.created: content not found, skipping cache invalidation")
			return nil
		}
		invalidator.invalidateFollowersOf(ctx, item.AuthorID, logger)
		return nil
	}
}

// handleContentDeleted tombstones content removed via moderation/retention
// and, per §4.2.4's "admin-moderation" trigger, evicts the author's
// followers' feed caches so a removed post stops appearing in feeds served
// from cache.
func handleContentDeleted(content *repository.ContentRepo, invalidator *followerFeedInvalidator, logger *logrus.Logger) events.Handler {
	return func(ctx context.Context, env events.Envelope) error {
		for _, id := range env.EntityIDs {
			contentID, err := domain.ParseContentID(id)
			if err != nil {
				continue
			}
			item, getErr := content.Get(ctx, contentID)
			if err := content.SoftDelete(ctx, contentID); err != nil {
				return fmt.Errorf("soft delete content %s: %w", id, err)
			}
			if getErr == nil {
				invalidator.invalidateFollowersOf(ctx, item.AuthorID, logger)
			}
		}
		return nil
	}
}
