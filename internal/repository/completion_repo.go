package repository

import (
	"context"
	"errors"

	"calm_games/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const completionColumns = `id, user_id, game_id, game_type, game_index, playthrough_id,
	normalized_score, total_levels, all_correct, is_replay, reward_granted, submitted_at`

type CompletionRepository struct {
	db *pgxpool.Pool
}

func NewCompletionRepository(db *pgxpool.Pool) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// InsertWithTx stores rec unless (user_id, game_id, playthrough_id) already
// exists. It reports false, without error, for the duplicate case.
func (r *CompletionRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, rec *domain.CompletionRecord) (bool, error) {
	err := tx.QueryRow(ctx,
		`INSERT INTO completion_records
			(user_id, game_id, game_type, game_index, playthrough_id,
			 normalized_score, total_levels, all_correct, is_replay, reward_granted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (user_id, game_id, playthrough_id) DO NOTHING
		 RETURNING id, submitted_at`,
		rec.UserID, rec.GameID, rec.GameType, rec.GameIndex, rec.PlaythroughID,
		rec.NormalizedScore, rec.TotalLevels, rec.AllCorrect, rec.IsReplay, rec.RewardGranted,
	).Scan(&rec.ID, &rec.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByPlaythroughWithTx returns the stored record or ErrNotFound
func (r *CompletionRepository) GetByPlaythroughWithTx(ctx context.Context, tx pgx.Tx, userID int64, gameID, playthroughID string) (*domain.CompletionRecord, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+completionColumns+`
		 FROM completion_records
		 WHERE user_id = $1 AND game_id = $2 AND playthrough_id = $3`,
		userID, gameID, playthroughID,
	)
	rec, err := scanCompletion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// RewardedBeforeWithTx reports whether the user was ever paid for gameID
func (r *CompletionRepository) RewardedBeforeWithTx(ctx context.Context, tx pgx.Tx, userID int64, gameID string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM completion_records
			WHERE user_id = $1 AND game_id = $2 AND reward_granted > 0
		 )`,
		userID, gameID,
	).Scan(&exists)
	return exists, err
}

// GetByUser returns recent completions, newest first
func (r *CompletionRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*domain.CompletionRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+completionColumns+`
		 FROM completion_records
		 WHERE user_id = $1
		 ORDER BY submitted_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*domain.CompletionRecord, 0)
	for rows.Next() {
		rec, err := scanCompletion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func scanCompletion(row pgx.Row) (*domain.CompletionRecord, error) {
	var rec domain.CompletionRecord
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.GameID,
		&rec.GameType,
		&rec.GameIndex,
		&rec.PlaythroughID,
		&rec.NormalizedScore,
		&rec.TotalLevels,
		&rec.AllCorrect,
		&rec.IsReplay,
		&rec.RewardGranted,
		&rec.SubmittedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}
