package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/novafabric/backbone/internal/domain"
)

// ContentRepo implements the recall layer's RecentPostsByAuthors and
// BatchUserPostsFetcher contracts against the content_items table.
type ContentRepo struct {
	db *gorm.DB
}

func NewContentRepo(db *gorm.DB) *ContentRepo { return &ContentRepo{db: db} }

func (r *ContentRepo) Create(ctx context.Context, item *domain.ContentItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *ContentRepo) Get(ctx context.Context, id domain.ContentID) (*domain.ContentItem, error) {
	var item domain.ContentItem
	err := r.db.WithContext(ctx).First(&item, "id = ? AND deleted_at IS NULL", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListRecent returns the most recently created visible content items,
// independent of author, backing the fallback ranker's candidate source
// when recall yields nothing (cold start, every strategy timing out).
func (r *ContentRepo) ListRecent(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	var items []domain.ContentItem
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// ListTimeline returns every visible content item in reverse-chronological
// order, offset-paginated, backing the unranked algo=timeline feed mode
// from §6.2.
func (r *ContentRepo) ListTimeline(ctx context.Context, offset, limit int) ([]domain.ContentItem, error) {
	var items []domain.ContentItem
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *ContentRepo) RecentPostsByAuthors(ctx context.Context, authorIDs []domain.UserID, since time.Time, limit int) ([]domain.ContentItem, error) {
	var items []domain.ContentItem
	err := r.db.WithContext(ctx).
		Where("author_id IN ? AND created_at >= ? AND deleted_at IS NULL", authorIDs, since).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// BatchGetUserPosts returns up to perUser recent posts for each of the given
// authors, satisfying recall.BatchUserPostsFetcher for the user-CF strategy.
func (r *ContentRepo) BatchGetUserPosts(ctx context.Context, userIDs []domain.UserID, perUser int) (map[domain.UserID][]domain.ContentItem, error) {
	out := make(map[domain.UserID][]domain.ContentItem, len(userIDs))
	for _, id := range userIDs {
		var items []domain.ContentItem
		err := r.db.WithContext(ctx).
			Where("author_id = ? AND deleted_at IS NULL", id).
			Order("created_at DESC").
			Limit(perUser).
			Find(&items).Error
		if err != nil {
			return nil, err
		}
		out[id] = items
	}
	return out, nil
}

// IncrementCounter atomically bumps one of the denormalized engagement
// counters by delta (positive for like/comment/share/bookmark, negative for
// the corresponding "un-" action), applied by the event consumer as
// engagement events land rather than recomputed from the analytics store on
// every read.
func (r *ContentRepo) IncrementCounter(ctx context.Context, id domain.ContentID, column string, delta int64) error {
	return r.db.WithContext(ctx).Model(&domain.ContentItem{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

// SoftDelete marks a content item deleted; it remains in the row store for
// retention but disappears from serving queries (IsVisible/deleted_at
// filters above).
func (r *ContentRepo) SoftDelete(ctx context.Context, id domain.ContentID) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.ContentItem{}).
		Where("id = ?", id).
		Update("deleted_at", now).Error
}
