package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calm_games/internal/domain"
	"calm_games/internal/game"
	"calm_games/internal/logger"
	"calm_games/internal/metrics"
	"calm_games/internal/repository"
	"calm_games/internal/wallet"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrInvalidCompletion = errors.New("invalid completion")

const maxTotalLevels = 1000

// CompletionSink receives every newly settled record (analytics)
type CompletionSink interface {
	CompletionSettled(ctx context.Context, rec domain.CompletionRecord)
}

type nopSink struct{}

func (nopSink) CompletionSettled(context.Context, domain.CompletionRecord) {}

type nopPublisher struct{}

func (nopPublisher) Publish(wallet.Event) {}

// CompletionService settles completions: it re-derives the reward, applies
// the replay policy and grants coins exactly once per play-through.
type CompletionService struct {
	db           *pgxpool.Pool
	completions  *repository.CompletionRepository
	wallets      *repository.WalletRepository
	transactions *repository.TransactionRepository
	policy       game.ReplayPolicy
	publisher    wallet.Publisher
	sink         CompletionSink
}

func NewCompletionService(db *pgxpool.Pool, policy game.ReplayPolicy, pub wallet.Publisher, sink CompletionSink) *CompletionService {
	if pub == nil {
		pub = nopPublisher{}
	}
	if sink == nil {
		sink = nopSink{}
	}
	return &CompletionService{
		db:           db,
		completions:  repository.NewCompletionRepository(db),
		wallets:      repository.NewWalletRepository(db),
		transactions: repository.NewTransactionRepository(db),
		policy:       policy,
		publisher:    pub,
		sink:         sink,
	}
}

// Complete records req for userID. A repeated play-through id is answered
// with the original settlement and Duplicate set.
func (s *CompletionService) Complete(ctx context.Context, userID int64, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	if err := validateCompletion(req); err != nil {
		metrics.Completions.WithLabelValues(metrics.OutcomeRejected, string(req.GameType)).Inc()
		return nil, err
	}

	ctx = logger.NewContext(ctx, "user_id", userID, "game_id", req.GameID, "playthrough_id", req.PlaythroughID)
	log := logger.WithContext(ctx)

	normalized, decision := game.Settle(req.Score, req.TotalLevels, req.TotalCoins)
	if decision.AllCorrect != req.AllAnswersCorrect {
		log.Warn("client all-correct flag disagrees with server", "client", req.AllAnswersCorrect, "normalized", normalized)
	}

	start := time.Now()
	rec, duplicate, err := s.settle(ctx, userID, req, normalized, decision)
	metrics.SettleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if duplicate {
		metrics.Completions.WithLabelValues(metrics.OutcomeDuplicate, string(req.GameType)).Inc()
		log.Info("duplicate completion", "reward", rec.RewardGranted)
		return &domain.CompletionResponse{
			Success:         true,
			CalmCoinsEarned: rec.RewardGranted,
			NormalizedScore: rec.NormalizedScore,
			Duplicate:       true,
		}, nil
	}

	if rec.RewardGranted > 0 {
		metrics.Completions.WithLabelValues(metrics.OutcomeRewarded, string(req.GameType)).Inc()
		metrics.CoinsGranted.WithLabelValues(string(req.GameType)).Add(float64(rec.RewardGranted))
		s.publisher.Publish(wallet.Event{
			Type:          domain.WalletEventChanged,
			UserID:        userID,
			Delta:         rec.RewardGranted,
			Reason:        domain.WalletReasonGameReward,
			GameID:        rec.GameID,
			PlaythroughID: rec.PlaythroughID,
			At:            rec.SubmittedAt,
		})
	} else {
		metrics.Completions.WithLabelValues(metrics.OutcomeUnrewarded, string(req.GameType)).Inc()
	}
	s.sink.CompletionSettled(ctx, *rec)

	log.Info("completion recorded", "normalized", rec.NormalizedScore, "all_correct", rec.AllCorrect, "reward", rec.RewardGranted)
	return &domain.CompletionResponse{
		Success:         true,
		CalmCoinsEarned: rec.RewardGranted,
		NormalizedScore: rec.NormalizedScore,
	}, nil
}

// settle runs the whole grant in one transaction under the wallet row lock
func (s *CompletionService) settle(ctx context.Context, userID int64, req domain.CompletionRequest, normalized int, decision game.Decision) (*domain.CompletionRecord, bool, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := s.wallets.LockWithTx(ctx, tx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, fmt.Errorf("lock wallet: %w", err)
	}

	existing, err := s.completions.GetByPlaythroughWithTx(ctx, tx, userID, req.GameID, req.PlaythroughID)
	switch {
	case err == nil:
		return existing, true, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, fmt.Errorf("lookup completion: %w", err)
	}

	rewardedBefore, err := s.completions.RewardedBeforeWithTx(ctx, tx, userID, req.GameID)
	if err != nil {
		return nil, false, fmt.Errorf("check reward history: %w", err)
	}
	decision = s.policy.Apply(decision, rewardedBefore)

	rec := &domain.CompletionRecord{
		UserID:          userID,
		GameID:          req.GameID,
		GameType:        req.GameType,
		GameIndex:       req.GameIndex,
		PlaythroughID:   req.PlaythroughID,
		NormalizedScore: normalized,
		TotalLevels:     req.TotalLevels,
		AllCorrect:      decision.AllCorrect,
		IsReplay:        req.IsReplay,
		RewardGranted:   decision.Reward,
	}
	inserted, err := s.completions.InsertWithTx(ctx, tx, rec)
	if err != nil {
		return nil, false, fmt.Errorf("insert completion: %w", err)
	}
	if !inserted {
		// lost a race that the row lock should have prevented
		existing, err := s.completions.GetByPlaythroughWithTx(ctx, tx, userID, req.GameID, req.PlaythroughID)
		if err != nil {
			return nil, false, fmt.Errorf("lookup completion: %w", err)
		}
		return existing, true, nil
	}

	if rec.RewardGranted > 0 {
		if _, err := s.wallets.CreditWithTx(ctx, tx, userID, rec.RewardGranted); err != nil {
			return nil, false, fmt.Errorf("credit wallet: %w", err)
		}
		ledger := &domain.Transaction{
			UserID: userID,
			Type:   domain.TxTypeGameReward,
			Amount: rec.RewardGranted,
			Meta: map[string]interface{}{
				"game_id":        rec.GameID,
				"game_type":      string(rec.GameType),
				"playthrough_id": rec.PlaythroughID,
				"completion_id":  rec.ID,
			},
		}
		if err := s.transactions.CreateWithTx(ctx, tx, ledger); err != nil {
			return nil, false, fmt.Errorf("write ledger: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return rec, false, nil
}

// History returns the latest completion records of a user
func (s *CompletionService) History(ctx context.Context, userID int64, limit int) ([]*domain.CompletionRecord, error) {
	return s.completions.GetByUser(ctx, userID, limit)
}

func validateCompletion(req domain.CompletionRequest) error {
	switch {
	case req.GameID == "":
		return fmt.Errorf("%w: game id required", ErrInvalidCompletion)
	case !req.GameType.Valid():
		return fmt.Errorf("%w: unknown game type %q", ErrInvalidCompletion, req.GameType)
	case req.PlaythroughID == "":
		return fmt.Errorf("%w: playthrough id required", ErrInvalidCompletion)
	case req.TotalLevels < 1 || req.TotalLevels > maxTotalLevels:
		return fmt.Errorf("%w: total levels out of range", ErrInvalidCompletion)
	case req.TotalCoins < 0:
		return fmt.Errorf("%w: negative coin offer", ErrInvalidCompletion)
	}
	return nil
}
