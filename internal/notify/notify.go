package notify

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"calm_games/internal/domain"
	"calm_games/internal/logger"
	"calm_games/internal/metrics"
	"calm_games/internal/wallet"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// SubjectWalletChanged carries wallet events between backend instances
const SubjectWalletChanged = "calm.wallet.changed"

type envelope struct {
	Origin string             `json:"origin"`
	Event  domain.WalletEvent `json:"event"`
}

// Relay delivers wallet events to the local publisher (the websocket hub)
// and mirrors them over NATS so sockets held by other instances hear them
// too. Without a connection it degrades to local delivery only.
type Relay struct {
	local  wallet.Publisher
	origin string

	mu  sync.RWMutex
	nc  *nats.Conn
	sub *nats.Subscription
}

func NewRelay(local wallet.Publisher) *Relay {
	return &Relay{local: local, origin: uuid.NewString()}
}

// Connect dials url and starts relaying remote events. An empty url keeps
// the relay local.
func (r *Relay) Connect(url string) error {
	if url == "" {
		return nil
	}
	nc, err := nats.Connect(url,
		nats.Name("calm-games-"+r.origin[:8]),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	return r.attach(nc)
}

func (r *Relay) attach(nc *nats.Conn) error {
	sub, err := nc.Subscribe(SubjectWalletChanged, func(m *nats.Msg) {
		r.handle(m.Data)
	})
	if err != nil {
		nc.Close()
		return fmt.Errorf("subscribe %s: %w", SubjectWalletChanged, err)
	}

	r.mu.Lock()
	r.nc, r.sub = nc, sub
	r.mu.Unlock()
	logger.Info("nats relay connected", "subject", SubjectWalletChanged)
	return nil
}

// Publish implements wallet.Publisher
func (r *Relay) Publish(ev wallet.Event) {
	r.local.Publish(ev)

	r.mu.RLock()
	nc := r.nc
	r.mu.RUnlock()
	if nc == nil {
		return
	}

	data, err := json.Marshal(envelope{Origin: r.origin, Event: ev})
	if err != nil {
		logger.Error("marshal wallet envelope", "error", err)
		return
	}
	if err := nc.Publish(SubjectWalletChanged, data); err != nil {
		metrics.EventsPublished.WithLabelValues("nats", "error").Inc()
		logger.Warn("nats publish failed", "error", err, "user_id", ev.UserID)
		return
	}
	metrics.EventsPublished.WithLabelValues("nats", "ok").Inc()
}

func (r *Relay) handle(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		logger.Debug("nats relay: bad message", "error", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	r.local.Publish(env.Event)
}

func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
		r.sub = nil
	}
	if r.nc != nil {
		r.nc.Close()
		r.nc = nil
	}
}
