package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/novafabric/backbone/internal/domain"
)

// FeatureStore computes FeatureVectors from ClickHouse engagement
// aggregates, implementing ranking.FeatureSource. A cold miss (no rows for a
// content id) is represented by the caller substituting
// domain.DefaultFeatureVector() -- BatchGetFeatures simply omits ids it has
// no aggregate for, matching §8's cold-miss contract.
type FeatureStore struct {
	store *Store
}

func NewFeatureStore(store *Store) *FeatureStore {
	return &FeatureStore{store: store}
}

// BatchGetFeatures derives EngagementDensity and CompletionRate from the
// 24h engagement_events window; every other field keeps its
// domain.DefaultFeatureVector() value, since this aggregate-only store has
// no quality model.
func (f *FeatureStore) BatchGetFeatures(ctx context.Context, ids []domain.ContentID) (map[domain.ContentID]domain.FeatureVector, error) {
	out := make(map[domain.ContentID]domain.FeatureVector, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)*2)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id.String())
	}

	query := fmt.Sprintf(`
		SELECT
			target_id,
			countIf(kind = 'complete') AS completes,
			countIf(kind = 'view') AS views,
			count() AS total
		FROM engagement_events
		WHERE target_id IN (%s) AND timestamp >= now() - INTERVAL 24 HOUR
		GROUP BY target_id`, strings.Join(placeholders, ","))

	rows, err := f.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var targetID string
		var completes, views, total uint64
		if err := rows.Scan(&targetID, &completes, &views, &total); err != nil {
			return nil, err
		}

		id, err := domain.ParseContentID(targetID)
		if err != nil {
			continue
		}

		fv := domain.DefaultFeatureVector()
		if total > 0 {
			fv.EngagementDensity = domain.Clamp01(float64(total) / 100.0)
			fv.HasEngagement = true
		}
		if views > 0 {
			fv.CompletionRate = domain.Clamp01(float64(completes) / float64(views))
		}
		out[id] = fv
	}
	return out, rows.Err()
}
