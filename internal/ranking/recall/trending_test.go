package recall

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novafabric/backbone/internal/domain"
)

type fakeTrendingSource struct {
	items []domain.ContentItem
}

func (f *fakeTrendingSource) Trending(ctx context.Context, window string, limit int) ([]domain.ContentItem, error) {
	return f.items, nil
}

func TestTrendingStrategy_AnnotatesRecallWeightAndSource(t *testing.T) {
	item := domain.ContentItem{ID: domain.ContentID(uuid.New()), AuthorID: domain.UserID(uuid.New()), CreatedAt: time.Now()}
	strategy := NewTrendingStrategy(&fakeTrendingSource{items: []domain.ContentItem{item}})

	out, err := strategy.Recall(context.Background(), domain.UserID(uuid.New()), 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, domain.SourceTrending, out[0].Source)
	assert.Equal(t, 0.6, out[0].RecallWeight)
	assert.Equal(t, domain.SourceTrending, strategy.Name())
}
