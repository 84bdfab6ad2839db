package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"calm_games/internal/domain"
	"calm_games/internal/logger"
	"calm_games/internal/wallet"

	"github.com/gorilla/websocket"
)

const (
	feedPongWait   = 30 * time.Second
	feedMinBackoff = time.Second
	feedMaxBackoff = 30 * time.Second
)

// backoff doubles the redial delay up to max. A session that got past the
// dial starts the sequence over.
type backoff struct {
	min, max, cur time.Duration
}

func (b *backoff) next(connected bool) time.Duration {
	if connected || b.cur == 0 {
		b.cur = b.min
	}
	d := b.cur
	if b.cur *= 2; b.cur > b.max {
		b.cur = b.max
	}
	return d
}

// Feed keeps a websocket open to /ws/wallet and republishes every server-side
// wallet event on a local bus, so grants made on another device refresh the
// displays of this process too.
type Feed struct {
	URL       string
	Token     string
	Publisher wallet.Publisher
	Dialer    *websocket.Dialer
}

// NewFeed derives the websocket URL from the API base URL
func NewFeed(baseURL, token string, pub wallet.Publisher) (*Feed, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/wallet"

	return &Feed{
		URL:       u.String(),
		Token:     token,
		Publisher: pub,
		Dialer:    websocket.DefaultDialer,
	}, nil
}

// Run reads until ctx is cancelled, reconnecting with backoff
func (f *Feed) Run(ctx context.Context) error {
	b := backoff{min: feedMinBackoff, max: feedMaxBackoff}
	for {
		connected, err := f.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := b.next(connected)
		logger.Warn("wallet feed disconnected", "error", err, "retry_in", wait)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// session reports whether the dial succeeded along with the error that
// ended it
func (f *Feed) session(ctx context.Context) (bool, error) {
	u, err := url.Parse(f.URL)
	if err != nil {
		return false, err
	}
	q := u.Query()
	q.Set("token", f.Token)
	u.RawQuery = q.Encode()

	conn, _, err := f.Dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return false, fmt.Errorf("dial wallet feed: %w", err)
	}
	defer conn.Close()

	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	logger.Info("wallet feed connected", "url", f.URL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))

		var ev domain.WalletEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			logger.Debug("wallet feed: bad frame", "error", err)
			continue
		}
		if ev.Type != domain.WalletEventChanged {
			continue
		}
		f.Publisher.Publish(ev)
	}
}
