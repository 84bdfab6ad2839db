package domain

import "time"

// GameType - category of a mini-game definition, used to route reward rules
type GameType string

const (
	GameTypeParentEducation GameType = "parent-education"
	GameTypeBrain           GameType = "brain"
	GameTypeFinance         GameType = "finance"
)

// Valid reports whether t is a known category
func (t GameType) Valid() bool {
	switch t {
	case GameTypeParentEducation, GameTypeBrain, GameTypeFinance:
		return true
	}
	return false
}

// GameResult - what a finished play-through hands to the settlement core.
// RawScore may be a count of correct decisions or a 0-100 percentage.
type GameResult struct {
	GameID            string   `json:"game_id"`
	GameType          GameType `json:"game_type"`
	GameIndex         int      `json:"game_index"`
	RawScore          int      `json:"raw_score"`
	TotalLevels       int      `json:"total_levels"`
	TotalCoinsOffered int64    `json:"total_coins_offered"`
	IsReplay          bool     `json:"is_replay"`
}

// CompletionRecord - server-side record of one settled play-through
type CompletionRecord struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	GameID          string    `db:"game_id" json:"game_id"`
	GameType        GameType  `db:"game_type" json:"game_type"`
	GameIndex       int       `db:"game_index" json:"game_index"`
	PlaythroughID   string    `db:"playthrough_id" json:"playthrough_id"`
	NormalizedScore int       `db:"normalized_score" json:"normalized_score"`
	TotalLevels     int       `db:"total_levels" json:"total_levels"`
	AllCorrect      bool      `db:"all_correct" json:"all_correct"`
	IsReplay        bool      `db:"is_replay" json:"is_replay"`
	RewardGranted   int64     `db:"reward_granted" json:"reward_granted"`
	SubmittedAt     time.Time `db:"submitted_at" json:"submitted_at"`
}

// CompletionRequest - body of POST /games/complete
type CompletionRequest struct {
	GameID            string   `json:"gameId" binding:"required,max=128"`
	GameType          GameType `json:"gameType" binding:"required"`
	GameIndex         int      `json:"gameIndex"`
	Score             int      `json:"score"`
	TotalLevels       int      `json:"totalLevels" binding:"min=1"`
	TotalCoins        int64    `json:"totalCoins" binding:"min=0"`
	IsReplay          bool     `json:"isReplay"`
	AllAnswersCorrect bool     `json:"allAnswersCorrect"`
	PlaythroughID     string   `json:"playthroughId" binding:"required,uuid"`
}

// CompletionResponse - backend answer; CalmCoinsEarned is authoritative
type CompletionResponse struct {
	Success         bool  `json:"success"`
	CalmCoinsEarned int64 `json:"calmCoinsEarned"`
	NormalizedScore int   `json:"normalizedScore"`
	Duplicate       bool  `json:"duplicate,omitempty"`
}
