package recall

import (
	"context"

	"github.com/novafabric/backbone/internal/domain"
)

// Tuning constants grounded on
// original_source/backend/ranking-service/src/services/recall/user_cf_recall.rs.
const (
	MinUserSimilarity = 0.1
	MaxSimilarUsers   = 20
	PostsPerUser      = 5
)

// SimilarUsersStore exposes the Redis ZSET "user:similar:{user_id}",
// ZREVRANGEBYSCORE "+inf" down to MinUserSimilarity, capped at
// MaxSimilarUsers.
type SimilarUsersStore interface {
	SimilarUsers(ctx context.Context, userID domain.UserID, minSimilarity float64, limit int) (map[domain.UserID]float64, error)
}

// BatchUserPostsFetcher mirrors the original's BatchGetUserPosts gRPC call
// to the content service, returning up to PostsPerUser recent posts per
// similar user.
type BatchUserPostsFetcher interface {
	BatchGetUserPosts(ctx context.Context, userIDs []domain.UserID, perUser int) (map[domain.UserID][]domain.ContentItem, error)
}

// UserCFStrategy recalls items liked by users pre-computed similar to the
// requester.
type UserCFStrategy struct {
	Similar SimilarUsersStore
	Posts   BatchUserPostsFetcher
}

func NewUserCFStrategy(similar SimilarUsersStore, posts BatchUserPostsFetcher) *UserCFStrategy {
	return &UserCFStrategy{Similar: similar, Posts: posts}
}

func (u *UserCFStrategy) Name() domain.RecallSource { return domain.SourceUserCF }

func (u *UserCFStrategy) Recall(ctx context.Context, userID domain.UserID, limit int) ([]domain.RecallCandidate, error) {
	similarities, err := u.Similar.SimilarUsers(ctx, userID, MinUserSimilarity, MaxSimilarUsers)
	if err != nil {
		return nil, err
	}
	if len(similarities) == 0 {
		return nil, nil
	}

	similarUserIDs := make([]domain.UserID, 0, len(similarities))
	for id := range similarities {
		similarUserIDs = append(similarUserIDs, id)
	}

	postsByUser, err := u.Posts.BatchGetUserPosts(ctx, similarUserIDs, PostsPerUser)
	if err != nil {
		return nil, err
	}

	// Aggregate: take max similarity per post_id across contributing
	// similar users, per the original's aggregation rule.
	best := map[domain.ContentID]domain.RecallCandidate{}
	for similarUser, similarity := range similarities {
		clamped := similarity
		if clamped < MinUserSimilarity {
			clamped = MinUserSimilarity
		}
		if clamped > 1.0 {
			clamped = 1.0
		}

		for _, post := range postsByUser[similarUser] {
			existing, ok := best[post.ID]
			if !ok || clamped > existing.RecallWeight {
				best[post.ID] = domain.RecallCandidate{
					ContentID:    post.ID,
					Source:       domain.SourceUserCF,
					RecallWeight: clamped,
					Timestamp:    post.CreatedAt.Unix(),
					AuthorID:     post.AuthorID,
				}
			}
		}

		if len(best) >= limit {
			break
		}
	}

	out := make([]domain.RecallCandidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	return out, nil
}
