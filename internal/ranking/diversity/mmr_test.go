package diversity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novafabric/backbone/internal/domain"
)

func post(author domain.UserID, source domain.RecallSource, score float64) domain.RankedPost {
	return domain.RankedPost{ContentID: domain.ContentID(uuid.New()), AuthorID: author, Source: source, Score: score}
}

func TestRerank_RespectsTopK(t *testing.T) {
	a := domain.UserID(uuid.New())
	candidates := []domain.RankedPost{post(a, domain.SourceTrending, 0.9), post(a, domain.SourceTrending, 0.8), post(a, domain.SourceTrending, 0.7)}

	got := NewReranker().Rerank(candidates, 2)
	assert.Len(t, got, 2)
}

func TestRerank_ZeroTopKReturnsNil(t *testing.T) {
	assert.Nil(t, NewReranker().Rerank([]domain.RankedPost{post(domain.UserID(uuid.New()), domain.SourceTrending, 1)}, 0))
}

func TestRerank_EnforcesMaxConsecutiveFromAuthor(t *testing.T) {
	a := domain.UserID(uuid.New())
	b := domain.UserID(uuid.New())

	// Three posts by author a rank highest; author b's post is weaker but
	// must appear by the third slot once the two-in-a-row limit is hit.
	candidates := []domain.RankedPost{
		post(a, domain.SourceTrending, 0.95),
		post(a, domain.SourceTrending, 0.94),
		post(a, domain.SourceTrending, 0.93),
		post(b, domain.SourceSocialGraph, 0.50),
	}

	r := NewReranker().WithAuthorLimit(2)
	got := r.Rerank(candidates, 3)
	require.Len(t, got, 3)
	assert.Equal(t, a, got[0].AuthorID)
	assert.Equal(t, a, got[1].AuthorID)
	assert.Equal(t, b, got[2].AuthorID, "third slot must break the author's consecutive run")
}

func TestRerank_RelaxesConstraintWhenNoAlternative(t *testing.T) {
	a := domain.UserID(uuid.New())
	candidates := []domain.RankedPost{
		post(a, domain.SourceTrending, 0.9),
		post(a, domain.SourceTrending, 0.8),
		post(a, domain.SourceTrending, 0.7),
	}

	r := NewReranker().WithAuthorLimit(2)
	got := r.Rerank(candidates, 3)
	// only author a exists, so the constraint cannot be satisfied past slot 2;
	// the output must still reach the requested size.
	assert.Len(t, got, 3)
}

func TestRerank_PrefersUnseenSourceAndAuthor(t *testing.T) {
	a := domain.UserID(uuid.New())
	b := domain.UserID(uuid.New())

	// Three tied candidates from the same relevance tier; after the first
	// pick, the one with a fresh source/author must win the diversity
	// tie-break over the one repeating tied1's source and author.
	tied1 := post(a, domain.SourceTrending, 0.5)
	sameAuthor := post(a, domain.SourceTrending, 0.5)
	tied2 := post(b, domain.SourceSocialGraph, 0.5)

	got := NewReranker().Rerank([]domain.RankedPost{tied1, sameAuthor, tied2}, 2)
	require.Len(t, got, 2)
	// first pick is whichever scores highest MMR on an empty seen-set; since
	// scores and diversity are identical for step one the first element of
	// candidates wins ties deterministically.
	assert.Equal(t, tied1.ContentID, got[0].ContentID)
	assert.Equal(t, tied2.ContentID, got[1].ContentID)
}
