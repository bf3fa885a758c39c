package analytics

import (
	"context"

	"github.com/novafabric/backbone/internal/domain"
)

// ContentHydrator fetches full content rows by id, letting TrendingView
// stay storage-agnostic about where content bodies live (Postgres via
// internal/repository.ContentRepo in production).
type ContentHydrator interface {
	Get(ctx context.Context, id domain.ContentID) (*domain.ContentItem, error)
}

// TrendingView composes the ClickHouse aggregate store with a content
// hydrator to implement recall.TrendingSource: ClickHouse supplies the
// ranked id list, Postgres supplies the row each id still resolves to.
type TrendingView struct {
	store    *Store
	hydrator ContentHydrator
}

func NewTrendingView(store *Store, hydrator ContentHydrator) *TrendingView {
	return &TrendingView{store: store, hydrator: hydrator}
}

func (t *TrendingView) Trending(ctx context.Context, window string, limit int) ([]domain.ContentItem, error) {
	ids, err := t.store.TrendingContentIDs(ctx, window, limit)
	if err != nil {
		return nil, err
	}

	items := make([]domain.ContentItem, 0, len(ids))
	for _, raw := range ids {
		id, err := domain.ParseContentID(raw)
		if err != nil {
			continue
		}
		item, err := t.hydrator.Get(ctx, id)
		if err != nil || item == nil {
			// Row may have been soft-deleted after trending was computed;
			// skip rather than fail the whole recall pass.
			continue
		}
		if !item.IsVisible() {
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}
