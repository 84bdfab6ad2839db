package domain

import "time"

// Transaction - ledger row; the sum of a user's rows equals the wallet balance
type Transaction struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Type      string                 `db:"type" json:"type"`
	Amount    int64                  `db:"amount" json:"amount"`
	Meta      map[string]interface{} `db:"meta" json:"meta,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Ledger types
const (
	TxTypeGameReward = "game_reward"
	TxTypeOpening    = "opening_balance"
)

// LedgerDrift - a wallet whose balance disagrees with the sum of its ledger
type LedgerDrift struct {
	UserID    int64 `json:"user_id"`
	Balance   int64 `json:"balance"`
	LedgerSum int64 `json:"ledger_sum"`
}
