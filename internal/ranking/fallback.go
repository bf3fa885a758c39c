package ranking

import (
	"math"
	"sort"

	"github.com/novafabric/backbone/internal/domain"
)

// FallbackCandidate is the minimal shape the degraded ranker needs: a post
// plus its raw engagement counters and age. Used exactly when the Feature
// Service call fails or times out (§4.2.5, §8 boundary behavior).
type FallbackCandidate struct {
	ContentID    domain.ContentID
	AuthorID     domain.UserID
	CreatedUnix  int64
	LikeCount    int64
	CommentCount int64
}

// FallbackRank implements score = time_score * engagement_boost exactly as
// original_source/backend/feed-service/src/services/fallback_ranking.rs.
func FallbackRank(nowUnix int64, posts []FallbackCandidate) []domain.RankedPost {
	ranked := make([]domain.RankedPost, len(posts))
	for i, p := range posts {
		ranked[i] = domain.RankedPost{
			ContentID: p.ContentID,
			AuthorID:  p.AuthorID,
			Source:    domain.SourceTrending,
			Score:     fallbackScore(nowUnix, p),
			Timestamp: p.CreatedUnix,
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func fallbackScore(nowUnix int64, p FallbackCandidate) float64 {
	ageHours := float64(nowUnix-p.CreatedUnix) / 3600.0
	if ageHours < 0 {
		ageHours = 0
	}

	timeScore := 1.0 / (1.0 + ageHours/24.0)

	engagementCount := float64(p.LikeCount) + float64(p.CommentCount)*2.0
	engagementBoost := 1.0 + math.Log(1.0+engagementCount)

	return timeScore * engagementBoost
}
