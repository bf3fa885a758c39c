package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/novafabric/backbone/internal/apperr"
	"github.com/novafabric/backbone/internal/domain"
	"github.com/novafabric/backbone/internal/repository"
)

// adminHandlers exposes the cross-service moderation surface gated by
// internal/rpcmesh.GinMiddleware's Casbin check, the "admin-moderation"
// actor §4.2.4 names as a feed-cache invalidation trigger.
type adminHandlers struct {
	content     *repository.ContentRepo
	invalidator *followerFeedInvalidator
	logger      *logrus.Logger
}

// takedown implements POST /admin/content/:id/takedown: it soft-deletes the
// content item and evicts every follower's cached feed, so the removal is
// immediately reflected rather than waiting out the cache TTL.
func (h *adminHandlers) takedown(c *gin.Context) {
	contentID, err := domain.ParseContentID(c.Param("id"))
	if err != nil {
		apperr.Abort(c, apperr.Validation("INVALID_CONTENT_ID", "invalid content id"))
		return
	}

	item, err := h.content.Get(c.Request.Context(), contentID)
	if err != nil {
		apperr.Abort(c, apperr.NotFound("CONTENT_NOT_FOUND", "content not found"))
		return
	}

	if err := h.content.SoftDelete(c.Request.Context(), contentID); err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}

	h.invalidator.invalidateFollowersOf(c.Request.Context(), item.AuthorID, h.logger)

	c.JSON(http.StatusOK, gin.H{"status": "removed", "content_id": contentID.String()})
}
