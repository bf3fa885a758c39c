// Package ranking implements the Feed Ranking Pipeline: recall -> ranking ->
// diversity rerank -> fallback, grounded on original_source/backend/ranking-service
// and original_source/backend/feed-service.
package ranking

// Weights is the configured weight vector for the ranking layer (§4.2.2).
// Components are non-negative and sum to 1 (enforced by DefaultWeights and
// validated by callers that load a custom configuration).
type Weights struct {
	Engagement     float64
	Recency        float64
	AuthorQuality  float64
	ContentQuality float64
	CompletionRate float64
}

// DefaultWeights mirrors original_source/backend/ranking-service/src/services/ranking/simple.rs
// RankingWeights::default().
func DefaultWeights() Weights {
	return Weights{
		Engagement:     0.30,
		Recency:        0.25,
		AuthorQuality:  0.15,
		ContentQuality: 0.15,
		CompletionRate: 0.15,
	}
}

// Sum returns the total of all components; callers should reject
// configurations where this deviates materially from 1.0.
func (w Weights) Sum() float64 {
	return w.Engagement + w.Recency + w.AuthorQuality + w.ContentQuality + w.CompletionRate
}
