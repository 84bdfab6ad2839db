package repository

import (
	"context"
	"errors"

	"calm_games/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WalletRepository struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetByUserID returns the wallet of a user or ErrNotFound
func (r *WalletRepository) GetByUserID(ctx context.Context, userID int64) (*domain.WalletAccount, error) {
	var w domain.WalletAccount
	err := r.db.QueryRow(ctx,
		`SELECT user_id, balance, updated_at FROM wallets WHERE user_id = $1`,
		userID,
	).Scan(&w.UserID, &w.Balance, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// LockWithTx takes a row lock on the wallet for the rest of tx. Settlements
// of one user are serialized on this lock.
func (r *WalletRepository) LockWithTx(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return balance, err
}

// CreditWithTx adds amount and returns the new balance
func (r *WalletRepository) CreditWithTx(ctx context.Context, tx pgx.Tx, userID, amount int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx,
		`UPDATE wallets SET balance = balance + $1, updated_at = now()
		 WHERE user_id = $2
		 RETURNING balance`,
		amount, userID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return balance, err
}

// LedgerDrift lists wallets whose balance differs from the sum of their
// transactions.
func (r *WalletRepository) LedgerDrift(ctx context.Context) ([]domain.LedgerDrift, error) {
	rows, err := r.db.Query(ctx,
		`SELECT w.user_id, w.balance, COALESCE(SUM(t.amount), 0) AS ledger_sum
		 FROM wallets w
		 LEFT JOIN transactions t ON t.user_id = w.user_id
		 GROUP BY w.user_id, w.balance
		 HAVING w.balance <> COALESCE(SUM(t.amount), 0)
		 ORDER BY w.user_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LedgerDrift
	for rows.Next() {
		var d domain.LedgerDrift
		if err := rows.Scan(&d.UserID, &d.Balance, &d.LedgerSum); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
