package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novafabric/backbone/internal/domain"
)

func TestFeatureStore_BatchGetFeatures_EmptyIDsSkipsQuery(t *testing.T) {
	// A nil *Store is safe here only because the empty-ids path returns
	// before ever touching store.db; any other input would panic, which is
	// exactly why this is the one branch testable without a live ClickHouse
	// connection.
	store := NewFeatureStore(nil)

	out, err := store.BatchGetFeatures(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = store.BatchGetFeatures(context.Background(), []domain.ContentID{})
	require.NoError(t, err)
	assert.Empty(t, out)
}
