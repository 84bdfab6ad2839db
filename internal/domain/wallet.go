package domain

import "time"

// WalletAccount - coin balance of one user. Source of truth is the backend.
type WalletAccount struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WalletResponse - body of GET /wallet
type WalletResponse struct {
	Balance int64 `json:"balance"`
}

// WalletEventType names events on the wallet channel
type WalletEventType string

const (
	WalletEventChanged WalletEventType = "wallet_changed"
)

// WalletEvent is pushed to every wallet observer of a user after a grant
type WalletEvent struct {
	Type          WalletEventType `json:"type"`
	UserID        int64           `json:"userId"`
	Delta         int64           `json:"delta"`
	Reason        string          `json:"reason"`
	GameID        string          `json:"gameId,omitempty"`
	PlaythroughID string          `json:"playthroughId,omitempty"`
	At            time.Time       `json:"at"`
}

// Wallet reasons
const (
	WalletReasonGameReward = "game_reward"
	WalletReasonRefresh    = "refresh"
)
