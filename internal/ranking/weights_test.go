package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultWeights_SumsToOne(t *testing.T) {
	w := DefaultWeights()
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
}

func TestComputeScore_LinearWeightedSum(t *testing.T) {
	w := Weights{Engagement: 0.3, Recency: 0.25, AuthorQuality: 0.15, ContentQuality: 0.15, CompletionRate: 0.15}
	got := ComputeScore(w, 1.0, 1.0, 1.0, 1.0, 1.0)
	assert.InDelta(t, w.Sum(), got, 1e-9)

	got = ComputeScore(w, 0, 0, 0, 0, 0)
	assert.Equal(t, 0.0, got)
}
