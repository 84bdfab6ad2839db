package handlers

import (
	"context"
	"strconv"

	"calm_games/internal/domain"
)

// CompletionSettler is the settlement service as seen by the API
type CompletionSettler interface {
	Complete(ctx context.Context, userID int64, req domain.CompletionRequest) (*domain.CompletionResponse, error)
	History(ctx context.Context, userID int64, limit int) ([]*domain.CompletionRecord, error)
}

// WalletReader serves balances and ledger history
type WalletReader interface {
	GetBalance(ctx context.Context, userID int64) (int64, error)
	GetTransactionHistory(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error)
}

type Handler struct {
	Completions CompletionSettler
	Wallets     WalletReader
}

func NewHandler(completions CompletionSettler, wallets WalletReader) *Handler {
	return &Handler{
		Completions: completions,
		Wallets:     wallets,
	}
}

// getUserID extracts user_id set by the JWT middleware
func getUserID(c interface{ Get(any) (any, bool) }) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// parseLimit reads ?limit=, defaulting to 50 and capping at 100
func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 50
	}
	if n > 100 {
		return 100
	}
	return n
}
