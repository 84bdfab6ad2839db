package handlers

import (
	"errors"
	"net/http"

	"calm_games/internal/domain"
	"calm_games/internal/logger"
	"calm_games/internal/service"

	"github.com/gin-gonic/gin"
)

// IdempotencyHeader mirrors the body's playthroughId
const IdempotencyHeader = "Idempotency-Key"

// CompleteGame settles one finished play-through
func (h *Handler) CompleteGame(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req domain.CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if key := c.GetHeader(IdempotencyHeader); key != "" && key != req.PlaythroughID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idempotency key does not match playthroughId"})
		return
	}

	resp, err := h.Completions.Complete(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCompletion):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			logger.Error("complete game failed", "error", err, "user_id", userID, "game_id", req.GameID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save completion"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// MyCompletions lists the caller's recent completions
func (h *Handler) MyCompletions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	recs, err := h.Completions.History(c.Request.Context(), userID, parseLimit(c.Query("limit")))
	if err != nil {
		logger.Error("list completions failed", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"completions": recs})
}
