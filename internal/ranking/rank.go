package ranking

import (
	"context"
	"math"
	"sort"

	"github.com/novafabric/backbone/internal/domain"
)

// FeatureSource batch-fetches feature vectors, matching the Feature Service's
// primary API (§4.6): absent entries are allowed and callers substitute
// domain.DefaultFeatureVector().
type FeatureSource interface {
	BatchGetFeatures(ctx context.Context, ids []domain.ContentID) (map[domain.ContentID]domain.FeatureVector, error)
}

// RecencyScore implements exp(-age_hours/24) floored at 0.1, resolving
// spec.md §9 Open Question 1 exactly as
// original_source/.../ranking/simple.rs::compute_recency_score does.
func RecencyScore(ageHours float64) float64 {
	s := math.Exp(-ageHours / 24.0)
	if s < 0.1 {
		return 0.1
	}
	return s
}

// ComputeScore is the pure linear weighted sum from §4.2.2 step 3.
func ComputeScore(w Weights, recency, engagement, authorQuality, contentQuality, completionRate float64) float64 {
	return w.Engagement*engagement +
		w.Recency*recency +
		w.AuthorQuality*authorQuality +
		w.ContentQuality*contentQuality +
		w.CompletionRate*completionRate
}

// RankCandidates batch-fetches features then scores and sorts every
// candidate descending by score, with ties broken by (timestamp desc, id
// asc) per invariant I7.
func RankCandidates(ctx context.Context, features FeatureSource, w Weights, nowUnix int64, candidates []domain.RecallCandidate) ([]domain.RankedPost, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]domain.ContentID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ContentID
	}

	featureMap, err := features.BatchGetFeatures(ctx, ids)
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.RankedPost, len(candidates))
	for i, c := range candidates {
		fv, ok := featureMap[c.ContentID]
		if !ok {
			fv = domain.DefaultFeatureVector()
		}

		ageHours := float64(nowUnix-c.Timestamp) / 3600.0
		recency := RecencyScore(ageHours)

		// engagement_score = recall_weight * 0.8 is the proxy used when the
		// Feature Service has no precise engagement signal, per §4.2.2 step 2.
		engagement := c.RecallWeight * 0.8
		if fv.HasEngagement {
			engagement = fv.EngagementDensity
		}

		score := ComputeScore(w,
			domain.Clamp01(recency),
			domain.Clamp01(engagement),
			domain.Clamp01(fv.AuthorQuality),
			domain.Clamp01(fv.ContentQuality),
			domain.Clamp01(fv.CompletionRate),
		)

		ranked[i] = domain.RankedPost{
			ContentID: c.ContentID,
			AuthorID:  c.AuthorID,
			Source:    c.Source,
			Score:     score,
			Timestamp: c.Timestamp,
			Features:  fv,
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Timestamp != ranked[j].Timestamp {
			return ranked[i].Timestamp > ranked[j].Timestamp
		}
		return ranked[i].ContentID.String() < ranked[j].ContentID.String()
	})

	return ranked, nil
}
