package service

import (
	"testing"

	"calm_games/internal/domain"

	"github.com/stretchr/testify/assert"
)

func validRequest() domain.CompletionRequest {
	return domain.CompletionRequest{
		GameID:        "finance-saving-jar",
		GameType:      domain.GameTypeFinance,
		Score:         5,
		TotalLevels:   5,
		TotalCoins:    5,
		PlaythroughID: "8d7e7c44-2c1e-4f7d-9a57-3c1b9b0f6a10",
	}
}

func TestValidateCompletion(t *testing.T) {
	assert.NoError(t, validateCompletion(validRequest()))

	cases := map[string]func(*domain.CompletionRequest){
		"missing game id":     func(r *domain.CompletionRequest) { r.GameID = "" },
		"unknown game type":   func(r *domain.CompletionRequest) { r.GameType = "arcade" },
		"missing playthrough": func(r *domain.CompletionRequest) { r.PlaythroughID = "" },
		"zero levels":         func(r *domain.CompletionRequest) { r.TotalLevels = 0 },
		"negative levels":     func(r *domain.CompletionRequest) { r.TotalLevels = -1 },
		"too many levels":     func(r *domain.CompletionRequest) { r.TotalLevels = maxTotalLevels + 1 },
		"negative coins":      func(r *domain.CompletionRequest) { r.TotalCoins = -5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)
			assert.ErrorIs(t, validateCompletion(req), ErrInvalidCompletion)
		})
	}
}

func TestValidateAcceptsOutOfRangeScores(t *testing.T) {
	// malformed scores are normalized, not rejected
	req := validRequest()
	req.Score = -3
	assert.NoError(t, validateCompletion(req))
	req.Score = 250
	assert.NoError(t, validateCompletion(req))
}
