package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/novafabric/backbone/internal/domain"
)

// SeenSetTTL matches §6.5's documented 7-day retention for per-user seen
// sets.
const SeenSetTTL = 7 * 24 * time.Hour

// SeenSet implements recall.SeenSetChecker against a per-user Redis set.
// The whole key expires SeenSetTTL after the latest MarkSeen; members are
// not trimmed individually and the set's size is not bounded.
type SeenSet struct {
	client *redis.Client
}

func NewSeenSet(client *redis.Client) *SeenSet { return &SeenSet{client: client} }

func (s *SeenSet) HasSeen(ctx context.Context, userID domain.UserID, contentID domain.ContentID) (bool, error) {
	return s.client.SIsMember(ctx, SeenSetKey(userID.String()), contentID.String()).Result()
}

// MarkSeen adds contentID to the user's seen set and refreshes its TTL.
func (s *SeenSet) MarkSeen(ctx context.Context, userID domain.UserID, contentID domain.ContentID) error {
	key := SeenSetKey(userID.String())
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, contentID.String())
	pipe.Expire(ctx, key, SeenSetTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// SimilarUsers implements recall.SimilarUsersStore against the
// "user:similar:{user_id}" ZSET, using ZREVRANGEBYSCORE from +inf down to
// minSimilarity (most similar first), capped at limit, matching
// original_source/.../recall/user_cf_recall.rs.
type SimilarUsers struct {
	client *redis.Client
}

func NewSimilarUsers(client *redis.Client) *SimilarUsers { return &SimilarUsers{client: client} }

func (s *SimilarUsers) SimilarUsers(ctx context.Context, userID domain.UserID, minSimilarity float64, limit int) (map[domain.UserID]float64, error) {
	results, err := s.client.ZRevRangeByScoreWithScores(ctx, SimilarUsersKey(userID.String()), &redis.ZRangeBy{
		Min:   formatFloat(minSimilarity),
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[domain.UserID]float64, len(results))
	for _, z := range results {
		memberStr, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(memberStr)
		if err != nil {
			continue
		}
		out[domain.UserID(id)] = z.Score
	}
	return out, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
