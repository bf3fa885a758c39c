package recall

import (
	"context"

	"github.com/novafabric/backbone/internal/domain"
)

// TrendingSource returns globally hot items within a rolling window, backed
// by the analytics-store's SummingMergeTree trending materialized views
// (internal/analytics), grounded on
// original_source/backend/search-service/src/services/clickhouse.rs's
// trending_searches_1h/1d views generalized to content trending.
type TrendingSource interface {
	Trending(ctx context.Context, window string, limit int) ([]domain.ContentItem, error)
}

// TrendingStrategy recalls globally hot items, independent of the
// requester's social graph.
type TrendingStrategy struct {
	Source TrendingSource
	Window string // "1h" | "24h" | "7d"
}

func NewTrendingStrategy(source TrendingSource) *TrendingStrategy {
	return &TrendingStrategy{Source: source, Window: "24h"}
}

func (t *TrendingStrategy) Name() domain.RecallSource { return domain.SourceTrending }

func (t *TrendingStrategy) Recall(ctx context.Context, userID domain.UserID, limit int) ([]domain.RecallCandidate, error) {
	items, err := t.Source.Trending(ctx, t.Window, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RecallCandidate, 0, len(items))
	for _, it := range items {
		out = append(out, domain.RecallCandidate{
			ContentID:    it.ID,
			Source:       domain.SourceTrending,
			RecallWeight: 0.6,
			Timestamp:    it.CreatedAt.Unix(),
			AuthorID:     it.AuthorID,
		})
	}
	return out, nil
}
