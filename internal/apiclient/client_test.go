package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"calm_games/internal/domain"
	"calm_games/internal/wallet"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitCompletionSendsIdempotencyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/games/complete", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "5f0c6a52-8c55-4d6a-9a36-0c2f4f1e8b11", r.Header.Get(IdempotencyHeader))

		var req domain.CompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "finance-budget-basics", req.GameID)
		assert.Equal(t, 5, req.Score)
		assert.True(t, req.AllAnswersCorrect)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"calmCoinsEarned":5,"normalizedScore":5}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	resp, err := c.SubmitCompletion(context.Background(), domain.CompletionRequest{
		GameID:            "finance-budget-basics",
		GameType:          domain.GameTypeFinance,
		Score:             5,
		TotalLevels:       5,
		TotalCoins:        5,
		AllAnswersCorrect: true,
		PlaythroughID:     "5f0c6a52-8c55-4d6a-9a36-0c2f4f1e8b11",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(5), resp.CalmCoinsEarned)
	assert.False(t, resp.Duplicate)
}

func TestNon2xxReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "bad").GetWallet(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Contains(t, se.Body, "unauthorized")
}

func TestGetWalletAndHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/wallet":
			_, _ = w.Write([]byte(`{"balance":42}`))
		case "/api/v1/wallet/history":
			assert.Equal(t, "2", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"transactions":[{"id":2,"user_id":7,"type":"game_reward","amount":5},{"id":1,"user_id":7,"type":"opening_balance","amount":37}]}`))
		case "/api/v1/completions":
			assert.Empty(t, r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"completions":[{"id":9,"user_id":7,"game_id":"brain-focus","reward_granted":5,"all_correct":true}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	ctx := context.Background()

	wr, err := c.GetWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), wr.Balance)

	txs, err := c.WalletHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, domain.TxTypeGameReward, txs[0].Type)

	recs, err := c.Completions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].AllCorrect)
	assert.Equal(t, int64(5), recs[0].RewardGranted)
}

func TestClientDrivesWalletStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"balance":11}`))
	}))
	defer srv.Close()

	store := wallet.NewStore(New(srv.URL, "tok"))
	require.NoError(t, store.Refresh(context.Background()))
	assert.Equal(t, int64(11), store.Balance())
}

func TestFeedRepublishesWalletEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/wallet", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"wallet_changed","userId":7,"delta":5,"reason":"game_reward"}`))
		// hold the connection until the client goes away
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	bus := wallet.NewBus()
	sub := bus.Subscribe()
	defer sub.Close()

	feed, err := NewFeed(srv.URL, "tok", bus)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(feed.URL, "ws://"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	select {
	case ev := <-sub.C():
		assert.Equal(t, domain.WalletEventChanged, ev.Type)
		assert.Equal(t, int64(5), ev.Delta)
		assert.Equal(t, int64(7), ev.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("no wallet event received")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop")
	}
}

func TestFeedBackoffRestartsAfterConnectedSession(t *testing.T) {
	b := backoff{min: time.Second, max: 30 * time.Second}

	var waits []time.Duration
	for i := 0; i < 7; i++ {
		waits = append(waits, b.next(false))
	}
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}, waits)

	// a healthy session that drops once redials quickly
	assert.Equal(t, time.Second, b.next(true))
	assert.Equal(t, 2*time.Second, b.next(false))
}
