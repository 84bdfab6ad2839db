package session

import (
	"fmt"

	"calm_games/internal/completion"
	"calm_games/internal/game"
)

// Action is a user intent offered on the result screen
type Action string

const (
	ActionBack     Action = "back"
	ActionTryAgain Action = "try_again"
)

// ResultView is the render model of the completion modal
type ResultView struct {
	Phase       Phase    `json:"phase"`
	Loading     bool     `json:"loading"`
	Score       int      `json:"score"`
	TotalLevels int      `json:"total_levels"`
	AllCorrect  bool     `json:"all_correct"`
	CoinsEarned int64    `json:"coins_earned"`
	Saved       bool     `json:"saved"`
	Title       string   `json:"title"`
	Message     string   `json:"message"`
	CoinsLine   string   `json:"coins_line"`
	Actions     []Action `json:"actions"`
}

// Offers reports whether a is available on this view
func (v ResultView) Offers(a Action) bool {
	for _, x := range v.Actions {
		if x == a {
			return true
		}
	}
	return false
}

// View renders the current state. While submitting it shows the client-side
// estimate; once settled, the backend's answer.
func (c *Controller) View() ResultView {
	c.mu.Lock()
	phase := c.phase
	sub := c.submitter
	raw := c.rawScore
	total := c.cfg.TotalLevels
	c.mu.Unlock()

	v := ResultView{Phase: phase, TotalLevels: total, Actions: []Action{ActionBack}}

	switch phase {
	case PhasePlaying:
		return v
	case PhaseFinished, PhaseSubmitting:
		// the submit goroutine may not have started yet
		score, est := game.Settle(raw, total, c.cfg.TotalCoins)
		v.Loading = true
		v.Score = score
		v.AllCorrect = est.AllCorrect
		v.CoinsEarned = est.Reward
		v.Title = "Saving your progress..."
		v.CoinsLine = coinsLine(est.Reward)
		return v
	}

	out, err := sub.Outcome()
	v.Score = out.NormalizedScore
	v.AllCorrect = out.AllCorrect
	v.CoinsEarned = out.RewardAmount
	v.Saved = err == nil && out.Success
	v.CoinsLine = coinsLine(out.RewardAmount)

	if out.AllCorrect {
		v.Title = "Amazing! All correct!"
		v.Message = fmt.Sprintf("You got all %d right.", total)
	} else {
		v.Title = "Good effort!"
		v.Message = fmt.Sprintf("You got %d of %d right. Get every answer right to earn coins - give it another go!", out.NormalizedScore, total)
		v.Actions = append(v.Actions, ActionTryAgain)
	}
	if !v.Saved {
		v.Message += " " + completion.FailureMessage
	}
	return v
}

func coinsLine(n int64) string {
	if n == 1 {
		return "+1 coin"
	}
	if n == 0 {
		return "0 coins"
	}
	return fmt.Sprintf("+%d coins", n)
}
