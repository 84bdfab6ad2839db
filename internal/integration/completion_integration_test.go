package integration

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"calm_games/internal/domain"
	"calm_games/internal/game"
	"calm_games/internal/repository"
	"calm_games/internal/service"
	"calm_games/internal/wallet"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyMigrations(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "migrations")
	entries, err := os.ReadDir(migDir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(migDir, name))
		require.NoError(t, err)
		_, err = db.Exec(context.Background(), string(b))
		require.NoError(t, err, "apply migration %s", name)
	}
}

func connect(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	applyMigrations(t, db)
	return db
}

func newUser(t *testing.T, db *pgxpool.Pool, opening int64) *domain.User {
	t.Helper()
	u := &domain.User{Username: "it-" + uuid.NewString()}
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), u, opening))
	return u
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []wallet.Event
}

func (r *recordingPublisher) Publish(ev wallet.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func perfect(gameID string) domain.CompletionRequest {
	return domain.CompletionRequest{
		GameID:            gameID,
		GameType:          domain.GameTypeParentEducation,
		Score:             5,
		TotalLevels:       5,
		TotalCoins:        5,
		AllAnswersCorrect: true,
		PlaythroughID:     uuid.NewString(),
	}
}

func TestCompletionGrantsOncePerPlaythrough(t *testing.T) {
	db := connect(t)
	ctx := context.Background()
	u := newUser(t, db, 20)
	pub := &recordingPublisher{}
	svc := service.NewCompletionService(db, game.ReplayEveryPerfect, pub, nil)
	wallets := service.NewWalletService(db)

	req := perfect("parent-calm-voice")

	// concurrent retries of one play-through
	var wg sync.WaitGroup
	results := make([]*domain.CompletionResponse, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := svc.Complete(ctx, u.ID, req)
			assert.NoError(t, err)
			results[i] = resp
		}(i)
	}
	wg.Wait()

	fresh := 0
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, int64(5), r.CalmCoinsEarned)
		if !r.Duplicate {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Len(t, pub.events, 1)

	bal, err := wallets.GetBalance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), bal)

	// every_perfect pays a new play-through again
	_, err = svc.Complete(ctx, u.ID, perfect("parent-calm-voice"))
	require.NoError(t, err)
	bal, err = wallets.GetBalance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), bal)

	txs, err := wallets.GetTransactionHistory(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, domain.TxTypeGameReward, txs[0].Type)
}

func TestFirstPerfectOnlyPolicy(t *testing.T) {
	db := connect(t)
	ctx := context.Background()
	u := newUser(t, db, 0)
	svc := service.NewCompletionService(db, game.ReplayFirstPerfectOnly, nil, nil)

	partial := perfect("finance-allowance")
	partial.Score = 3
	partial.AllAnswersCorrect = false
	resp, err := svc.Complete(ctx, u.ID, partial)
	require.NoError(t, err)
	assert.Zero(t, resp.CalmCoinsEarned)

	resp, err = svc.Complete(ctx, u.ID, perfect("finance-allowance"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.CalmCoinsEarned)

	replay := perfect("finance-allowance")
	replay.IsReplay = true
	resp, err = svc.Complete(ctx, u.ID, replay)
	require.NoError(t, err)
	assert.Zero(t, resp.CalmCoinsEarned)

	recs, err := svc.History(ctx, u.ID, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestUnknownUserAndLedgerAudit(t *testing.T) {
	db := connect(t)
	ctx := context.Background()
	svc := service.NewCompletionService(db, game.ReplayEveryPerfect, nil, nil)

	_, err := svc.Complete(ctx, -1, perfect("brain-breathing"))
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	u := newUser(t, db, 10)
	_, err = svc.Complete(ctx, u.ID, perfect("brain-breathing"))
	require.NoError(t, err)

	drift, err := service.NewWalletService(db).LedgerDrift(ctx)
	require.NoError(t, err)
	for _, d := range drift {
		assert.NotEqual(t, u.ID, d.UserID, "settled wallet must match its ledger")
	}
}
