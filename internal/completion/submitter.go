package completion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"calm_games/internal/domain"
	"calm_games/internal/game"
	"calm_games/internal/logger"
	"calm_games/internal/wallet"

	"github.com/google/uuid"
)

// FailureMessage is shown when a completion could not be saved
const FailureMessage = "Failed to save progress, but you can still replay!"

const defaultTimeout = 15 * time.Second

var (
	// ErrSubmitFailed wraps every transport or server failure of a submission
	ErrSubmitFailed = errors.New("completion submit failed")
	// ErrRejected means the backend answered but did not record the completion
	ErrRejected = errors.New("completion rejected by server")
)

// API is the backend completion endpoint
type API interface {
	SubmitCompletion(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error)
}

// Notifier shows short, non-modal messages to the player. Implementations must not block.
type Notifier interface {
	Notify(msg string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

type nopPublisher struct{}

func (nopPublisher) Publish(wallet.Event) {}

// State of a single play-through submission
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSettledSuccess
	StateSettledFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSettledSuccess:
		return "settled_success"
	case StateSettledFailed:
		return "settled_failed"
	default:
		return "unknown"
	}
}

// Settled reports whether s is terminal
func (s State) Settled() bool {
	return s == StateSettledSuccess || s == StateSettledFailed
}

// Outcome is what a settled submission resolved to
type Outcome struct {
	Success         bool  `json:"success"`
	RewardAmount    int64 `json:"reward_amount"`
	NormalizedScore int   `json:"normalized_score"`
	AllCorrect      bool  `json:"all_correct"`
	Duplicate       bool  `json:"duplicate,omitempty"`
}

// Option customizes a Submitter
type Option func(*Submitter)

// WithNotifier sets where failure messages go
func WithNotifier(n Notifier) Option {
	return func(s *Submitter) { s.notifier = n }
}

// WithPublisher sets where wallet-changed events go after a grant
func WithPublisher(p wallet.Publisher) Option {
	return func(s *Submitter) { s.publisher = p }
}

// WithTimeout bounds the network call
func WithTimeout(d time.Duration) Option {
	return func(s *Submitter) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPlaythroughID overrides the generated play-through id
func WithPlaythroughID(id string) Option {
	return func(s *Submitter) { s.playthroughID = id }
}

// Submitter settles exactly one play-through. It moves
// idle -> submitting -> settled(success|failed) and never goes back; a new
// play-through needs a new Submitter.
type Submitter struct {
	api           API
	notifier      Notifier
	publisher     wallet.Publisher
	timeout       time.Duration
	playthroughID string

	mu       sync.Mutex
	state    State
	estimate game.Decision
	outcome  Outcome
	err      error
	done     chan struct{}
}

func NewSubmitter(api API, opts ...Option) *Submitter {
	s := &Submitter{
		api:       api,
		notifier:  nopNotifier{},
		publisher: nopPublisher{},
		timeout:   defaultTimeout,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.playthroughID == "" {
		s.playthroughID = uuid.NewString()
	}
	return s
}

// PlaythroughID is the idempotency key sent to the backend
func (s *Submitter) PlaythroughID() string {
	return s.playthroughID
}

func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Estimate is the client-side mirror of the reward decision, available as soon
// as submission starts. The backend's answer replaces it on settlement.
func (s *Submitter) Estimate() game.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimate
}

// Outcome returns the settled outcome and error; zero values while not settled
func (s *Submitter) Outcome() (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.err
}

// Done is closed once the submission settles
func (s *Submitter) Done() <-chan struct{} {
	return s.done
}

// Submit sends r to the backend once. The state flips to submitting before
// the request is issued, so concurrent or repeated calls never send a second
// request: they wait for the first one and return its result.
//
// The request is detached from ctx cancellation (it is bounded by the
// submitter timeout instead) so an unmounted session still settles.
func (s *Submitter) Submit(ctx context.Context, r domain.GameResult) (Outcome, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		select {
		case <-s.done:
			return s.Outcome()
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		}
	}
	normalized, decision := game.Settle(r.RawScore, r.TotalLevels, r.TotalCoinsOffered)
	s.state = StateSubmitting
	s.estimate = decision
	s.mu.Unlock()

	ctx = logger.NewContext(ctx, "playthrough_id", s.playthroughID, "game_id", r.GameID)
	log := logger.WithContext(ctx)

	req := domain.CompletionRequest{
		GameID:            r.GameID,
		GameType:          r.GameType,
		GameIndex:         r.GameIndex,
		Score:             normalized,
		TotalLevels:       r.TotalLevels,
		TotalCoins:        r.TotalCoinsOffered,
		IsReplay:          r.IsReplay,
		AllAnswersCorrect: decision.AllCorrect,
		PlaythroughID:     s.playthroughID,
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	resp, err := s.api.SubmitCompletion(rctx, req)
	switch {
	case err != nil:
		err = fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	case resp == nil || !resp.Success:
		err = fmt.Errorf("%w: %w", ErrSubmitFailed, ErrRejected)
	}

	if err != nil {
		log.Warn("completion submit failed", "error", err)
		out := Outcome{NormalizedScore: normalized, AllCorrect: decision.AllCorrect}
		s.settle(StateSettledFailed, out, err)
		s.notifier.Notify(FailureMessage)
		return out, err
	}

	out := Outcome{
		Success:         true,
		RewardAmount:    resp.CalmCoinsEarned,
		NormalizedScore: resp.NormalizedScore,
		AllCorrect:      decision.AllCorrect,
		Duplicate:       resp.Duplicate,
	}
	s.settle(StateSettledSuccess, out, nil)
	log.Info("completion settled", "reward", out.RewardAmount, "all_correct", out.AllCorrect, "duplicate", out.Duplicate)

	if out.RewardAmount > 0 {
		s.publisher.Publish(wallet.Event{
			Type:          domain.WalletEventChanged,
			Delta:         out.RewardAmount,
			Reason:        domain.WalletReasonGameReward,
			GameID:        r.GameID,
			PlaythroughID: s.playthroughID,
			At:            time.Now(),
		})
	}
	return out, nil
}

func (s *Submitter) settle(state State, out Outcome, err error) {
	s.mu.Lock()
	s.state = state
	s.outcome = out
	s.err = err
	s.mu.Unlock()
	close(s.done)
}
