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

type fakeFollowing struct {
	authors []domain.UserID
}

func (f *fakeFollowing) ListFollowing(ctx context.Context, userID domain.UserID) ([]domain.UserID, error) {
	return f.authors, nil
}

type fakeRecentPosts struct {
	items []domain.ContentItem
}

func (f *fakeRecentPosts) RecentPostsByAuthors(ctx context.Context, authorIDs []domain.UserID, since time.Time, limit int) ([]domain.ContentItem, error) {
	return f.items, nil
}

func TestSocialGraphStrategy_NoFollowingReturnsNoCandidates(t *testing.T) {
	strategy := NewSocialGraphStrategy(&fakeFollowing{}, &fakeRecentPosts{})
	out, err := strategy.Recall(context.Background(), domain.UserID(uuid.New()), 10)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSocialGraphStrategy_AnnotatesCandidates(t *testing.T) {
	author := domain.UserID(uuid.New())
	item := domain.ContentItem{ID: domain.ContentID(uuid.New()), AuthorID: author, CreatedAt: time.Now()}

	strategy := NewSocialGraphStrategy(&fakeFollowing{authors: []domain.UserID{author}}, &fakeRecentPosts{items: []domain.ContentItem{item}})
	out, err := strategy.Recall(context.Background(), domain.UserID(uuid.New()), 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, domain.SourceSocialGraph, out[0].Source)
	assert.Equal(t, 0.9, out[0].RecallWeight)
	assert.Equal(t, author, out[0].AuthorID)
}
