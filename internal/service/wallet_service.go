package service

import (
	"context"
	"errors"

	"calm_games/internal/domain"
	"calm_games/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

// WalletService reads balances and the ledger behind them
type WalletService struct {
	wallets      *repository.WalletRepository
	transactions *repository.TransactionRepository
}

func NewWalletService(db *pgxpool.Pool) *WalletService {
	return &WalletService{
		wallets:      repository.NewWalletRepository(db),
		transactions: repository.NewTransactionRepository(db),
	}
}

// GetBalance returns the user's current balance
func (s *WalletService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	w, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return w.Balance, nil
}

// GetTransactionHistory returns user's ledger rows, newest first
func (s *WalletService) GetTransactionHistory(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	return s.transactions.GetByUserID(ctx, userID, limit)
}

// LedgerDrift lists wallets that disagree with their ledger
func (s *WalletService) LedgerDrift(ctx context.Context) ([]domain.LedgerDrift, error) {
	return s.wallets.LedgerDrift(ctx)
}
