package main

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/novafabric/backbone/internal/apperr"
	"github.com/novafabric/backbone/internal/cache"
	"github.com/novafabric/backbone/internal/domain"
	"github.com/novafabric/backbone/internal/metrics"
	"github.com/novafabric/backbone/internal/ranking"
	"github.com/novafabric/backbone/internal/ranking/diversity"
	"github.com/novafabric/backbone/internal/ranking/recall"
	"github.com/novafabric/backbone/internal/repository"
)

// feedCacheTTL is the "T seconds" base TTL from §4.2.4; FeedTTLWithJitter
// adds up to 10% on top so a whole cohort of cache entries doesn't expire
// in lockstep.
const feedCacheTTL = 60 * time.Second

// rankedCacheDepth bounds how many ranked posts a single cache write holds,
// deep enough to serve several pages of algo=ranked before recomputing.
const rankedCacheDepth = 200

// errNoCandidates signals the ranked pipeline produced nothing usable,
// routing the caller to the fallback ranker.
var errNoCandidates = errors.New("no ranked candidates")

// FeedServer exposes the Feed Ranking Pipeline (§4.2) over HTTP: recall ->
// rank -> diversify, with a fallback path when the primary pipeline errors
// or returns nothing.
type FeedServer struct {
	strategies []recall.Strategy
	seen       recall.SeenSetChecker
	features   ranking.FeatureSource
	reranker   *diversity.Reranker
	fallback   FallbackSource
	timeline   TimelineSource
	cache      *cache.Manager
	metrics    *metrics.Feed
	logger     *logrus.Logger
}

// FallbackSource supplies recent posts for the time-decay fallback ranker
// when the primary recall/rank/diversify pipeline yields nothing (cold
// start, every recall strategy timing out, etc).
type FallbackSource interface {
	RecentFallbackCandidates(limit int) ([]ranking.FallbackCandidate, error)
}

// TimelineSource supplies the unranked, reverse-chronological algo=timeline
// feed mode from §6.2.
type TimelineSource interface {
	ListTimeline(ctx context.Context, offset, limit int) ([]domain.ContentItem, error)
}

// NewFeedServer wires the recall/rank/diversify pipeline together.
// cacheManager may be nil, in which case handleFeed always recomputes the
// ranked feed (used by unit tests that run without a live Redis connection).
func NewFeedServer(strategies []recall.Strategy, seen recall.SeenSetChecker, features ranking.FeatureSource, fallback FallbackSource, timeline TimelineSource, cacheManager *cache.Manager, feedMetrics *metrics.Feed, logger *logrus.Logger) *FeedServer {
	return &FeedServer{
		strategies: strategies,
		seen:       seen,
		features:   features,
		reranker:   diversity.NewReranker(),
		fallback:   fallback,
		timeline:   timeline,
		cache:      cacheManager,
		metrics:    feedMetrics,
		logger:     logger,
	}
}

// cachedFeed is the JSON shape stored under cache.FeedKey(userID), the
// ranked-pipeline output before pagination is applied.
type cachedFeed struct {
	Posts []domain.RankedPost `json:"posts"`
}

// handleFeed implements GET /v1/feed?user_id=...&algo=...&limit=...&cursor=...
func (s *FeedServer) handleFeed(c *gin.Context) {
	userID, err := domain.ParseUserID(c.Query("user_id"))
	if err != nil {
		apperr.Abort(c, apperr.Validation("INVALID_USER_ID", "invalid user_id"))
		return
	}

	algo := c.DefaultQuery("algo", "ranked")
	if algo != "ranked" && algo != "timeline" {
		apperr.Abort(c, apperr.Validation("INVALID_ALGO", "algo must be one of: ranked, timeline"))
		return
	}

	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, convErr := strconv.Atoi(v); convErr == nil && parsed > 0 {
			limit = parsed
		}
	}
	limit = repository.ClampLimit(limit)

	cursor, err := repository.DecodeCursor(c.Query("cursor"))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	offset := int(cursor.Offset)
	if offset < 0 {
		offset = 0
	}

	if algo == "timeline" {
		s.serveTimeline(c, offset, limit)
		return
	}
	s.serveRanked(c, userID, offset, limit)
}

func (s *FeedServer) serveRanked(c *gin.Context, userID domain.UserID, offset, limit int) {
	ctx := c.Request.Context()
	nowUnix := time.Now().Unix()

	load := func(ctx context.Context) (any, error) {
		candidates := recall.Union(ctx, s.strategies, s.seen, userID, rankedCacheDepth*3, 200*time.Millisecond)
		if len(candidates) == 0 {
			return nil, errNoCandidates
		}

		rankStart := time.Now()
		ranked, err := ranking.RankCandidates(ctx, s.features, ranking.DefaultWeights(), nowUnix, candidates)
		s.metrics.RankDuration.Observe(time.Since(rankStart).Seconds())
		if err != nil {
			return nil, err
		}
		if len(ranked) == 0 {
			return nil, errNoCandidates
		}

		diversified := s.reranker.Rerank(ranked, rankedCacheDepth)
		return cachedFeed{Posts: diversified}, nil
	}

	var feed cachedFeed
	var err error
	if s.cache != nil {
		err = s.cache.GetOrSet(ctx, cache.FeedKey(userID.String()), &feed, cache.Options{
			TTL:             cache.FeedTTLWithJitter(feedCacheTTL),
			StampedeProtect: true,
		}, load)
	} else {
		var value any
		value, err = load(ctx)
		if err == nil {
			feed = value.(cachedFeed)
		}
	}

	if err != nil {
		if !errors.Is(err, errNoCandidates) {
			s.logger.WithError(err).Warn("ranking failed, serving fallback")
		}
		s.metrics.FallbackServed.Inc()
		s.serveFallback(c, limit)
		return
	}

	page, hasMore := paginate(feed.Posts, offset, limit)
	respondPage(c, page, offset, limit, hasMore, "ranked")
}

func (s *FeedServer) serveTimeline(c *gin.Context, offset, limit int) {
	if s.timeline == nil {
		respondPage(c, nil, offset, limit, false, "timeline")
		return
	}

	items, err := s.timeline.ListTimeline(c.Request.Context(), offset, limit+1)
	if err != nil {
		apperr.Abort(c, apperr.Unavailable("TIMELINE_UNAVAILABLE", err))
		return
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	posts := make([]domain.RankedPost, len(items))
	for i, item := range items {
		posts[i] = toTimelinePost(item)
	}
	respondPage(c, posts, offset, limit, hasMore, "timeline")
}

func (s *FeedServer) serveFallback(c *gin.Context, limit int) {
	if s.fallback == nil {
		c.JSON(200, gin.H{"posts": []domain.RankedPost{}, "source": "empty", "has_more": false, "next_cursor": nil})
		return
	}

	posts, err := s.fallback.RecentFallbackCandidates(limit * 2)
	if err != nil {
		apperr.Abort(c, apperr.Unavailable("FALLBACK_UNAVAILABLE", err))
		return
	}

	ranked := ranking.FallbackRank(time.Now().Unix(), posts)
	hasMore := len(ranked) > limit
	if hasMore {
		ranked = ranked[:limit]
	}
	c.JSON(200, gin.H{"posts": ranked, "source": "fallback", "has_more": false, "next_cursor": nil})
}

// paginate slices a cached ranked-feed result to the requested page and
// reports whether a further page exists beyond it.
func paginate(posts []domain.RankedPost, offset, limit int) ([]domain.RankedPost, bool) {
	if offset >= len(posts) {
		return nil, false
	}
	end := offset + limit
	hasMore := end < len(posts)
	if end > len(posts) {
		end = len(posts)
	}
	return posts[offset:end], hasMore
}

// respondPage writes the §6.2 feed response shape: posts, next cursor (null
// at end), has_more.
func respondPage(c *gin.Context, posts []domain.RankedPost, offset, limit int, hasMore bool, source string) {
	var nextCursor any
	if hasMore {
		nextCursor = repository.EncodeOffsetCursor(int64(offset + limit))
	}
	if posts == nil {
		posts = []domain.RankedPost{}
	}
	c.JSON(200, gin.H{
		"posts":       posts,
		"source":      source,
		"has_more":    hasMore,
		"next_cursor": nextCursor,
	})
}

func toTimelinePost(item domain.ContentItem) domain.RankedPost {
	return domain.RankedPost{
		ContentID: item.ID,
		AuthorID:  item.AuthorID,
		Source:    domain.SourceTimeline,
		Score:     0,
		Timestamp: item.CreatedAt.Unix(),
	}
}

