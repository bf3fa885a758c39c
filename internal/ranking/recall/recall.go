// Package recall implements the §4.2.1 strategies: each produces up to N
// annotated candidates within a per-strategy timeout, never erroring on
// timeout (yields partial results instead).
package recall

import (
	"context"
	"time"

	"github.com/novafabric/backbone/internal/domain"
)

// Strategy is one independent recall source.
type Strategy interface {
	Name() domain.RecallSource
	Recall(ctx context.Context, userID domain.UserID, limit int) ([]domain.RecallCandidate, error)
}

// SeenSetChecker filters candidates the requester has already seen, backed
// by the per-user seen set in internal/cache (§4.6).
type SeenSetChecker interface {
	HasSeen(ctx context.Context, userID domain.UserID, contentID domain.ContentID) (bool, error)
}

// Union computes the union of results from every strategy by id. When a
// candidate appears from multiple strategies, the maximum recall_weight is
// retained and the earliest timestamp is kept, per §4.2.1.
func Union(ctx context.Context, strategies []Strategy, seen SeenSetChecker, userID domain.UserID, perStrategyLimit int, perStrategyTimeout time.Duration) []domain.RecallCandidate {
	type result struct {
		candidates []domain.RecallCandidate
	}

	results := make(chan result, len(strategies))

	for _, s := range strategies {
		s := s
		go func() {
			sctx, cancel := context.WithTimeout(ctx, perStrategyTimeout)
			defer cancel()

			cands, err := s.Recall(sctx, userID, perStrategyLimit)
			if err != nil {
				// On timeout or error, yield whatever was gathered without
				// failing the whole pipeline (§4.2.1 contract).
				results <- result{candidates: cands}
				return
			}
			results <- result{candidates: cands}
		}()
	}

	merged := map[domain.ContentID]domain.RecallCandidate{}
	for i := 0; i < len(strategies); i++ {
		r := <-results
		for _, c := range r.candidates {
			if seen != nil {
				if has, _ := seen.HasSeen(ctx, userID, c.ContentID); has {
					continue
				}
			}
			existing, ok := merged[c.ContentID]
			if !ok {
				merged[c.ContentID] = c
				continue
			}
			if c.RecallWeight > existing.RecallWeight {
				existing.RecallWeight = c.RecallWeight
			}
			if c.Timestamp < existing.Timestamp {
				existing.Timestamp = c.Timestamp
			}
			merged[c.ContentID] = existing
		}
	}

	out := make([]domain.RecallCandidate, 0, len(merged))
	for _, c := range merged {
		out = append(out, c)
	}
	return out
}
