package recall

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/novafabric/backbone/internal/domain"
)

type fakeStrategy struct {
	name  domain.RecallSource
	cands []domain.RecallCandidate
	err   error
}

func (f *fakeStrategy) Name() domain.RecallSource { return f.name }
func (f *fakeStrategy) Recall(ctx context.Context, userID domain.UserID, limit int) ([]domain.RecallCandidate, error) {
	return f.cands, f.err
}

type fakeSeenSet struct {
	seen map[domain.ContentID]bool
}

func (f *fakeSeenSet) HasSeen(ctx context.Context, userID domain.UserID, contentID domain.ContentID) (bool, error) {
	return f.seen[contentID], nil
}

func TestUnion_MergesByIDKeepingMaxWeightAndEarliestTimestamp(t *testing.T) {
	shared := domain.ContentID(uuid.New())
	only1 := domain.ContentID(uuid.New())

	s1 := &fakeStrategy{name: domain.SourceTrending, cands: []domain.RecallCandidate{
		{ContentID: shared, RecallWeight: 0.4, Timestamp: 2000},
		{ContentID: only1, RecallWeight: 0.5, Timestamp: 1500},
	}}
	s2 := &fakeStrategy{name: domain.SourceSocialGraph, cands: []domain.RecallCandidate{
		{ContentID: shared, RecallWeight: 0.9, Timestamp: 1000},
	}}

	out := Union(context.Background(), []Strategy{s1, s2}, nil, domain.UserID(uuid.New()), 10, time.Second)

	byID := map[domain.ContentID]domain.RecallCandidate{}
	for _, c := range out {
		byID[c.ContentID] = c
	}

	assert.Len(t, out, 2)
	assert.Equal(t, 0.9, byID[shared].RecallWeight)
	assert.Equal(t, int64(1000), byID[shared].Timestamp)
}

func TestUnion_FiltersAlreadySeen(t *testing.T) {
	seenID := domain.ContentID(uuid.New())
	unseenID := domain.ContentID(uuid.New())

	s1 := &fakeStrategy{name: domain.SourceTrending, cands: []domain.RecallCandidate{
		{ContentID: seenID, RecallWeight: 0.5, Timestamp: 1},
		{ContentID: unseenID, RecallWeight: 0.5, Timestamp: 1},
	}}

	seen := &fakeSeenSet{seen: map[domain.ContentID]bool{seenID: true}}
	out := Union(context.Background(), []Strategy{s1}, seen, domain.UserID(uuid.New()), 10, time.Second)

	assert.Len(t, out, 1)
	assert.Equal(t, unseenID, out[0].ContentID)
}

func TestUnion_StrategyErrorYieldsPartialResultsWithoutFailing(t *testing.T) {
	partial := domain.ContentID(uuid.New())
	failing := &fakeStrategy{name: domain.SourceUserCF, cands: []domain.RecallCandidate{{ContentID: partial, Timestamp: 1}}, err: assertErr{}}

	out := Union(context.Background(), []Strategy{failing}, nil, domain.UserID(uuid.New()), 10, time.Second)
	assert.Len(t, out, 1)
	assert.Equal(t, partial, out[0].ContentID)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
