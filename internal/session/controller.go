package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"calm_games/internal/completion"
	"calm_games/internal/domain"
	"calm_games/internal/logger"
	"calm_games/internal/wallet"
)

const (
	defaultBackDelay = 300 * time.Millisecond
	defaultReturnTo  = "/games"
)

var (
	ErrNoLevels            = errors.New("game has no levels")
	ErrNotFinished         = errors.New("play-through has not finished")
	ErrTryAgainUnavailable = errors.New("try again is only offered for imperfect runs")
)

// Phase of one game instance
type Phase int

const (
	PhasePlaying Phase = iota
	PhaseFinished
	PhaseSubmitting
	PhaseResultShown
)

func (p Phase) String() string {
	switch p {
	case PhasePlaying:
		return "playing"
	case PhaseFinished:
		return "finished"
	case PhaseSubmitting:
		return "submitting"
	case PhaseResultShown:
		return "result_shown"
	default:
		return "unknown"
	}
}

// Navigator performs the "Back" navigation intent
type Navigator interface {
	Navigate(to string)
}

// Config is what the game shell passes in for one game definition
type Config struct {
	GameID      string
	GameType    domain.GameType
	GameIndex   int
	TotalLevels int
	TotalCoins  int64
	IsReplay    bool
	ReturnTo    string
}

// Validate rejects definitions that could never be scored
func (c Config) Validate() error {
	if c.TotalLevels < 1 {
		return ErrNoLevels
	}
	return nil
}

// Deps are the collaborators injected into a controller
type Deps struct {
	API           completion.API
	Publisher     wallet.Publisher
	Notifier      completion.Notifier
	Navigator     Navigator
	BackDelay     time.Duration
	DefaultReturn string
	SubmitTimeout time.Duration
}

// Controller drives one game instance through
// playing -> finished -> submitting -> result shown, and back to playing on
// "Try Again" with a brand-new submitter.
type Controller struct {
	cfg  Config
	deps Deps

	mu        sync.Mutex
	phase     Phase
	rawScore  int
	submitter *completion.Submitter
	shown     chan struct{}
	// generation counts play-throughs so a late settlement of a reset
	// play-through cannot flip the current one to ResultShown
	generation int
}

func NewController(cfg Config, deps Deps) *Controller {
	if deps.BackDelay <= 0 {
		deps.BackDelay = defaultBackDelay
	}
	if deps.DefaultReturn == "" {
		deps.DefaultReturn = defaultReturnTo
	}
	c := &Controller{cfg: cfg, deps: deps}
	c.reset()
	return c
}

// reset starts a new play-through; caller holds mu or owns c exclusively
func (c *Controller) reset() {
	opts := []completion.Option{completion.WithTimeout(c.deps.SubmitTimeout)}
	if c.deps.Publisher != nil {
		opts = append(opts, completion.WithPublisher(c.deps.Publisher))
	}
	if c.deps.Notifier != nil {
		opts = append(opts, completion.WithNotifier(c.deps.Notifier))
	}
	c.submitter = completion.NewSubmitter(c.deps.API, opts...)
	c.phase = PhasePlaying
	c.rawScore = 0
	c.shown = make(chan struct{})
	c.generation++
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// PlaythroughID of the current play-through
func (c *Controller) PlaythroughID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitter.PlaythroughID()
}

// Finish is the game-over trigger. The first call per play-through starts the
// submission and returns true; any repeat returns false and does nothing.
// A game without levels never leaves Playing.
func (c *Controller) Finish(ctx context.Context, rawScore int) bool {
	if err := c.cfg.Validate(); err != nil {
		logger.Warn("finish ignored", "game_id", c.cfg.GameID, "total_levels", c.cfg.TotalLevels, "error", err)
		return false
	}

	c.mu.Lock()
	if c.phase != PhasePlaying {
		c.mu.Unlock()
		return false
	}
	c.phase = PhaseFinished
	c.rawScore = rawScore
	sub, gen, shown := c.submitter, c.generation, c.shown
	c.phase = PhaseSubmitting
	c.mu.Unlock()

	result := domain.GameResult{
		GameID:            c.cfg.GameID,
		GameType:          c.cfg.GameType,
		GameIndex:         c.cfg.GameIndex,
		RawScore:          rawScore,
		TotalLevels:       c.cfg.TotalLevels,
		TotalCoinsOffered: c.cfg.TotalCoins,
		IsReplay:          c.cfg.IsReplay,
	}

	go func() {
		// failures are already surfaced through the notifier
		_, _ = sub.Submit(ctx, result)

		c.mu.Lock()
		if c.generation == gen {
			c.phase = PhaseResultShown
		}
		c.mu.Unlock()
		close(shown)
	}()
	return true
}

// Wait blocks until the current play-through shows its result
func (c *Controller) Wait(ctx context.Context) (ResultView, error) {
	c.mu.Lock()
	if c.phase == PhasePlaying {
		c.mu.Unlock()
		return ResultView{}, ErrNotFinished
	}
	shown := c.shown
	c.mu.Unlock()

	select {
	case <-shown:
		return c.View(), nil
	case <-ctx.Done():
		return ResultView{}, ctx.Err()
	}
}

// TryAgain resets the game instance into a fresh play-through. It never
// resubmits the previous one.
func (c *Controller) TryAgain() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseResultShown {
		return ErrNotFinished
	}
	out, _ := c.submitter.Outcome()
	if out.AllCorrect {
		return ErrTryAgainUnavailable
	}

	prev := c.submitter.PlaythroughID()
	c.reset()
	logger.Debug("play-through reset", "game_id", c.cfg.GameID, "previous", prev, "playthrough_id", c.submitter.PlaythroughID())
	return nil
}

// Back navigates to the caller's return location after a short delay that
// lets in-flight feedback finish. Always available.
func (c *Controller) Back(ctx context.Context) (string, error) {
	to := c.cfg.ReturnTo
	if to == "" {
		to = c.deps.DefaultReturn
	}

	t := time.NewTimer(c.deps.BackDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if c.deps.Navigator != nil {
		c.deps.Navigator.Navigate(to)
	}
	return to, nil
}
