package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"calm_games/internal/domain"
)

// IdempotencyHeader carries the play-through id of a completion
const IdempotencyHeader = "Idempotency-Key"

// StatusError is returned for every non-2xx response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// Client talks to the completion backend on behalf of one user
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SubmitCompletion posts one finished play-through
func (c *Client) SubmitCompletion(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion: %w", err)
	}

	hreq, err := c.newRequest(ctx, http.MethodPost, "/api/v1/games/complete", nil, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set(IdempotencyHeader, req.PlaythroughID)

	var out domain.CompletionResponse
	if err := c.do(hreq, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetWallet fetches the authoritative balance
func (c *Client) GetWallet(ctx context.Context) (*domain.WalletResponse, error) {
	hreq, err := c.newRequest(ctx, http.MethodGet, "/api/v1/wallet", nil, nil)
	if err != nil {
		return nil, err
	}
	var out domain.WalletResponse
	if err := c.do(hreq, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WalletHistory returns the latest ledger rows, newest first
func (c *Client) WalletHistory(ctx context.Context, limit int) ([]domain.Transaction, error) {
	hreq, err := c.newRequest(ctx, http.MethodGet, "/api/v1/wallet/history", limitQuery(limit), nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	if err := c.do(hreq, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// Completions returns the latest completion records, newest first
func (c *Client) Completions(ctx context.Context, limit int) ([]domain.CompletionRecord, error) {
	hreq, err := c.newRequest(ctx, http.MethodGet, "/api/v1/completions", limitQuery(limit), nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Completions []domain.CompletionRecord `json:"completions"`
	}
	if err := c.do(hreq, &out); err != nil {
		return nil, err
	}
	return out.Completions, nil
}

func limitQuery(limit int) url.Values {
	if limit <= 0 {
		return nil
	}
	return url.Values{"limit": []string{strconv.Itoa(limit)}}
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}
