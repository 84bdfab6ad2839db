package game

import "fmt"

// Decision is the outcome of the reward policy for one play-through
type Decision struct {
	AllCorrect bool  `json:"all_correct"`
	Reward     int64 `json:"reward"`
}

// DecideReward grants the full offer only for a perfect run.
// Partial credit earns nothing.
func DecideReward(normalized, totalLevels int, coinsOffered int64) Decision {
	allCorrect := normalized == totalLevels
	if !allCorrect || coinsOffered <= 0 {
		return Decision{AllCorrect: allCorrect}
	}
	return Decision{AllCorrect: true, Reward: coinsOffered}
}

// Settle normalizes rawScore and applies DecideReward in one step
func Settle(rawScore, totalLevels int, coinsOffered int64) (int, Decision) {
	n := Normalize(rawScore, totalLevels)
	return n, DecideReward(n, totalLevels, coinsOffered)
}

// ReplayPolicy decides whether a repeated perfect run of the same game pays again.
// Only the backend applies it; clients just report isReplay.
type ReplayPolicy string

const (
	ReplayEveryPerfect     ReplayPolicy = "every_perfect"
	ReplayFirstPerfectOnly ReplayPolicy = "first_perfect_only"
)

// ParseReplayPolicy validates a configured policy name
func ParseReplayPolicy(s string) (ReplayPolicy, error) {
	switch p := ReplayPolicy(s); p {
	case ReplayEveryPerfect, ReplayFirstPerfectOnly:
		return p, nil
	default:
		return "", fmt.Errorf("unknown replay policy %q", s)
	}
}

// Apply suppresses the reward of d when the user was already paid for this game
// and the policy only pays the first perfect run.
func (p ReplayPolicy) Apply(d Decision, alreadyRewarded bool) Decision {
	if p == ReplayFirstPerfectOnly && alreadyRewarded {
		d.Reward = 0
	}
	return d
}
