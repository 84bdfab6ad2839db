package handlers

import (
	"errors"
	"net/http"

	"calm_games/internal/domain"
	"calm_games/internal/logger"
	"calm_games/internal/service"

	"github.com/gin-gonic/gin"
)

// GetWallet returns the authoritative balance
func (h *Handler) GetWallet(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	balance, err := h.Wallets.GetBalance(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		logger.Error("get wallet failed", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, domain.WalletResponse{Balance: balance})
}

// WalletHistory lists the caller's ledger rows
func (h *Handler) WalletHistory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	txs, err := h.Wallets.GetTransactionHistory(c.Request.Context(), userID, parseLimit(c.Query("limit")))
	if err != nil {
		logger.Error("wallet history failed", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
