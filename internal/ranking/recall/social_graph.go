package recall

import (
	"context"
	"time"

	"github.com/novafabric/backbone/internal/domain"
)

// RecentPostsByAuthors lists content produced by the given authors since
// since, capped at limit. Backed by internal/repository.
type RecentPostsByAuthors interface {
	RecentPostsByAuthors(ctx context.Context, authorIDs []domain.UserID, since time.Time, limit int) ([]domain.ContentItem, error)
}

// FollowingLister returns the set of users a given user follows.
type FollowingLister interface {
	ListFollowing(ctx context.Context, userID domain.UserID) ([]domain.UserID, error)
}

// SocialGraphStrategy recalls items recently produced by followed users.
type SocialGraphStrategy struct {
	Following FollowingLister
	Posts     RecentPostsByAuthors
	Window    time.Duration
}

func NewSocialGraphStrategy(following FollowingLister, posts RecentPostsByAuthors) *SocialGraphStrategy {
	return &SocialGraphStrategy{Following: following, Posts: posts, Window: 72 * time.Hour}
}

func (s *SocialGraphStrategy) Name() domain.RecallSource { return domain.SourceSocialGraph }

func (s *SocialGraphStrategy) Recall(ctx context.Context, userID domain.UserID, limit int) ([]domain.RecallCandidate, error) {
	authors, err := s.Following.ListFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(authors) == 0 {
		return nil, nil
	}

	since := time.Now().Add(-s.Window)
	items, err := s.Posts.RecentPostsByAuthors(ctx, authors, since, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RecallCandidate, 0, len(items))
	for _, it := range items {
		out = append(out, domain.RecallCandidate{
			ContentID:    it.ID,
			Source:       domain.SourceSocialGraph,
			RecallWeight: 0.9,
			Timestamp:    it.CreatedAt.Unix(),
			AuthorID:     it.AuthorID,
		})
	}
	return out, nil
}
