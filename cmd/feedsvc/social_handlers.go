package main

import (
	"github.com/gin-gonic/gin"

	"github.com/novafabric/backbone/internal/apperr"
	"github.com/novafabric/backbone/internal/domain"
	"github.com/novafabric/backbone/internal/social"
)

// socialHandlers exposes the follow/unfollow/block/unblock mutations that
// drive §4.2.4's feed-cache invalidation triggers.
type socialHandlers struct {
	service *social.Service
}

func newSocialHandlers(service *social.Service) *socialHandlers {
	return &socialHandlers{service: service}
}

type socialRequest struct {
	ActorID  string `json:"actor_id"`
	TargetID string `json:"target_id"`
}

func (h *socialHandlers) parse(c *gin.Context) (domain.UserID, domain.UserID, bool) {
	var req socialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.Validation("INVALID_BODY", "request body must include actor_id and target_id"))
		return domain.UserID{}, domain.UserID{}, false
	}
	actorID, err := domain.ParseUserID(req.ActorID)
	if err != nil {
		apperr.Abort(c, apperr.Validation("INVALID_ACTOR_ID", "invalid actor_id"))
		return domain.UserID{}, domain.UserID{}, false
	}
	targetID, err := domain.ParseUserID(req.TargetID)
	if err != nil {
		apperr.Abort(c, apperr.Validation("INVALID_TARGET_ID", "invalid target_id"))
		return domain.UserID{}, domain.UserID{}, false
	}
	return actorID, targetID, true
}

func (h *socialHandlers) follow(c *gin.Context) {
	actorID, targetID, ok := h.parse(c)
	if !ok {
		return
	}
	if err := h.service.Follow(c.Request.Context(), actorID, targetID); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

func (h *socialHandlers) unfollow(c *gin.Context) {
	actorID, targetID, ok := h.parse(c)
	if !ok {
		return
	}
	if err := h.service.Unfollow(c.Request.Context(), actorID, targetID); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

func (h *socialHandlers) block(c *gin.Context) {
	actorID, targetID, ok := h.parse(c)
	if !ok {
		return
	}
	if err := h.service.Block(c.Request.Context(), actorID, targetID); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

func (h *socialHandlers) unblock(c *gin.Context) {
	actorID, targetID, ok := h.parse(c)
	if !ok {
		return
	}
	if err := h.service.Unblock(c.Request.Context(), actorID, targetID); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}
