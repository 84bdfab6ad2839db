package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"calm_games/internal/domain"
	"calm_games/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSettler struct {
	err  error
	last domain.CompletionRequest
}

func (f *fakeSettler) Complete(ctx context.Context, userID int64, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CompletionResponse{Success: true, CalmCoinsEarned: 5, NormalizedScore: 5}, nil
}

func (f *fakeSettler) History(ctx context.Context, userID int64, limit int) ([]*domain.CompletionRecord, error) {
	return []*domain.CompletionRecord{{ID: 1, UserID: userID, GameID: "g"}}, f.err
}

type fakeWallets struct {
	balance int64
	err     error
	limit   int
}

func (f *fakeWallets) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return f.balance, f.err
}

func (f *fakeWallets) GetTransactionHistory(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	f.limit = limit
	return []*domain.Transaction{}, f.err
}

const playthrough = "c3b8a7a4-1f0e-4d2b-8f6a-3b2a1c0d9e8f"

func body() string {
	return fmt.Sprintf(`{"gameId":"brain-focus","gameType":"brain","gameIndex":1,"score":5,"totalLevels":5,"totalCoins":5,"isReplay":false,"allAnswersCorrect":true,"playthroughId":%q}`, playthrough)
}

func router(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := func(c *gin.Context) { c.Set("user_id", int64(9)); c.Next() }
	r.POST("/complete", auth, h.CompleteGame)
	r.POST("/anon", h.CompleteGame)
	r.GET("/wallet", auth, h.GetWallet)
	r.GET("/wallet/history", auth, h.WalletHistory)
	r.GET("/completions", auth, h.MyCompletions)
	return r
}

func do(r http.Handler, method, path, payload string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCompleteGame(t *testing.T) {
	settler := &fakeSettler{}
	r := router(NewHandler(settler, &fakeWallets{}))

	rec := do(r, http.MethodPost, "/complete", body(), map[string]string{IdempotencyHeader: playthrough})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.CompletionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(5), resp.CalmCoinsEarned)
	assert.Equal(t, playthrough, settler.last.PlaythroughID)
	assert.Equal(t, domain.GameTypeBrain, settler.last.GameType)
}

func TestCompleteGameErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		header map[string]string
		path   string
		body   string
		want   int
	}{
		{"unauthenticated", nil, nil, "/anon", body(), http.StatusUnauthorized},
		{"malformed", nil, nil, "/complete", `{"gameId":`, http.StatusBadRequest},
		{"playthrough not a uuid", nil, nil, "/complete", strings.Replace(body(), playthrough, "abc", 1), http.StatusBadRequest},
		{"key mismatch", nil, map[string]string{IdempotencyHeader: "other"}, "/complete", body(), http.StatusBadRequest},
		{"invalid", fmt.Errorf("%w: unknown game type", service.ErrInvalidCompletion), nil, "/complete", body(), http.StatusBadRequest},
		{"no wallet", service.ErrUserNotFound, nil, "/complete", body(), http.StatusNotFound},
		{"db down", errors.New("conn refused"), nil, "/complete", body(), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := router(NewHandler(&fakeSettler{err: tc.err}, &fakeWallets{}))
			rec := do(r, http.MethodPost, tc.path, tc.body, tc.header)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestWalletEndpoints(t *testing.T) {
	wallets := &fakeWallets{balance: 42}
	r := router(NewHandler(&fakeSettler{}, wallets))

	rec := do(r, http.MethodGet, "/wallet", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"balance":42}`, rec.Body.String())

	rec = do(r, http.MethodGet, "/wallet/history?limit=500", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"transactions":[]}`, rec.Body.String())
	assert.Equal(t, 100, wallets.limit)

	rec = do(r, http.MethodGet, "/completions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"completions"`)

	wallets.err = service.ErrUserNotFound
	rec = do(r, http.MethodGet, "/wallet", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 50, parseLimit(""))
	assert.Equal(t, 50, parseLimit("-3"))
	assert.Equal(t, 7, parseLimit("7"))
	assert.Equal(t, 100, parseLimit("1000"))
}

func TestReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	down := PingFunc(func(context.Context) error { return errors.New("down") })
	up := PingFunc(func(context.Context) error { return nil })

	h := NewHealthHandler(up, "test", map[string]Pinger{"redis": down})
	r := gin.New()
	r.GET("/readyz", h.Readiness)
	r.GET("/health", h.Health)

	rec := do(r, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")

	h = NewHealthHandler(down, "test", nil)
	r = gin.New()
	r.GET("/readyz", h.Readiness)
	r.GET("/health", h.Health)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/readyz", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/health", "", nil).Code)
}
