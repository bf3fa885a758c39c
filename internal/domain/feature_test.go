package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp01_BoundsAndSafeDefaults(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-5))
	assert.Equal(t, 1.0, Clamp01(5))
	assert.Equal(t, 0.5, Clamp01(math.NaN()))
	assert.Equal(t, 0.5, Clamp01(math.Inf(1)))
	assert.Equal(t, 0.5, Clamp01(math.Inf(-1)))
	assert.Equal(t, 0.3, Clamp01(0.3))
}

func TestDefaultFeatureVector_AllComponentsAreMidpoint(t *testing.T) {
	fv := DefaultFeatureVector()
	assert.Equal(t, 0.5, fv.Freshness)
	assert.Equal(t, 0.5, fv.CompletionRate)
	assert.Equal(t, 0.5, fv.EngagementDensity)
	assert.Equal(t, 0.5, fv.AuthorQuality)
	assert.Equal(t, 0.5, fv.ContentQuality)
	assert.Equal(t, 0.5, fv.UserAuthorAffinity)
}
