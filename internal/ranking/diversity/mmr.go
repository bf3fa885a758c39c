// Package diversity implements the Maximal Marginal Relevance rerank layer
// (§4.2.3), grounded on
// original_source/backend/ranking-service/src/services/diversity/mod.rs.
package diversity

import "github.com/novafabric/backbone/internal/domain"

const (
	// DefaultLambda balances relevance vs. diversity.
	DefaultLambda = 0.7
	// DefaultMaxConsecutiveFromAuthor is the hard constraint window.
	DefaultMaxConsecutiveFromAuthor = 2
)

// Reranker applies MMR with a hard per-author consecutive-run constraint.
type Reranker struct {
	Lambda                  float64
	MaxConsecutiveFromAuthor int
}

// NewReranker returns a Reranker configured with the package defaults.
func NewReranker() *Reranker {
	return &Reranker{Lambda: DefaultLambda, MaxConsecutiveFromAuthor: DefaultMaxConsecutiveFromAuthor}
}

// WithAuthorLimit overrides MaxConsecutiveFromAuthor, mirroring the
// original's with_author_limit builder.
func (r *Reranker) WithAuthorLimit(n int) *Reranker {
	r.MaxConsecutiveFromAuthor = n
	return r
}

// Rerank greedily selects up to topK posts from candidates (assumed already
// sorted by relevance score descending), maximizing
// lambda*relevance + (1-lambda)*diversity at each step, subject to the hard
// author-diversity constraint. It never returns fewer posts than relevance
// order would when the constraint can't be satisfied only as a last resort
// (§4.2.3: "Continue until the output reaches requested size or candidates
// are exhausted").
func (r *Reranker) Rerank(candidates []domain.RankedPost, topK int) []domain.RankedPost {
	if topK <= 0 || len(candidates) == 0 {
		return nil
	}

	remaining := make([]domain.RankedPost, len(candidates))
	copy(remaining, candidates)

	selected := make([]domain.RankedPost, 0, topK)
	seenSources := map[domain.RecallSource]bool{}
	seenAuthors := map[domain.UserID]bool{}
	selectedAuthors := make([]domain.UserID, 0, topK)

	for len(selected) < topK && len(remaining) > 0 {
		bestIdx := -1
		bestScore := -1.0

		for i, cand := range remaining {
			if r.violatesAuthorDiversity(selectedAuthors, cand.AuthorID) {
				continue
			}
			div := r.computeDiversity(seenSources, seenAuthors, cand)
			mmr := r.Lambda*cand.Score + (1-r.Lambda)*div
			if mmr > bestScore {
				bestScore = mmr
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			// Every remaining candidate violates the hard constraint; relax
			// by picking the highest-relevance remaining candidate so the
			// output still reaches the requested size when possible.
			bestIdx = 0
		}

		chosen := remaining[bestIdx]
		selected = append(selected, chosen)
		seenSources[chosen.Source] = true
		seenAuthors[chosen.AuthorID] = true
		selectedAuthors = append(selectedAuthors, chosen.AuthorID)

		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// violatesAuthorDiversity is true iff the last MaxConsecutiveFromAuthor
// selected authors ALL equal the candidate's author.
func (r *Reranker) violatesAuthorDiversity(selectedAuthors []domain.UserID, candidateAuthor domain.UserID) bool {
	n := r.MaxConsecutiveFromAuthor
	if n <= 0 || len(selectedAuthors) < n {
		return false
	}
	tail := selectedAuthors[len(selectedAuthors)-n:]
	for _, a := range tail {
		if a != candidateAuthor {
			return false
		}
	}
	return true
}

// computeDiversity = (source_diversity + author_diversity) / 2.0 where
// source_diversity = 0.5 if already seen else 1.0, and author_diversity =
// 0.3 if author already selected else 1.0.
func (r *Reranker) computeDiversity(seenSources map[domain.RecallSource]bool, seenAuthors map[domain.UserID]bool, cand domain.RankedPost) float64 {
	sourceDiversity := 1.0
	if seenSources[cand.Source] {
		sourceDiversity = 0.5
	}
	authorDiversity := 1.0
	if seenAuthors[cand.AuthorID] {
		authorDiversity = 0.3
	}
	return (sourceDiversity + authorDiversity) / 2.0
}
