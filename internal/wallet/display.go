package wallet

import (
	"context"
	"sync"
	"time"

	"calm_games/internal/logger"
)

const defaultRefreshTimeout = 10 * time.Second

// Display is one mounted balance view. Each display reacts to wallet events
// on its own by refreshing the shared Store; no display owns the value.
type Display struct {
	name    string
	store   *Store
	bus     *Bus
	timeout time.Duration

	mu      sync.Mutex
	sub     *Subscription
	done    chan struct{}
	updates chan int64
}

func NewDisplay(name string, store *Store, bus *Bus) *Display {
	return &Display{
		name:    name,
		store:   store,
		bus:     bus,
		timeout: defaultRefreshTimeout,
		updates: make(chan int64, 1),
	}
}

// Mount subscribes to the bus and starts reacting to events. The first
// refresh happens immediately so a freshly mounted view isn't empty.
func (d *Display) Mount(ctx context.Context) {
	d.mu.Lock()
	if d.sub != nil {
		d.mu.Unlock()
		return
	}
	d.sub = d.bus.Subscribe()
	d.done = make(chan struct{})
	sub, done := d.sub, d.done
	d.mu.Unlock()

	go d.run(ctx, sub, done)
}

// Unmount detaches from the bus; in-flight refreshes still land in the Store
func (d *Display) Unmount() {
	d.mu.Lock()
	sub, done := d.sub, d.done
	d.sub, d.done = nil, nil
	d.mu.Unlock()

	if sub == nil {
		return
	}
	sub.Close()
	<-done
}

// Balance is what this display currently shows
func (d *Display) Balance() int64 {
	return d.store.Balance()
}

// Updates yields the balance after each refresh this display performed.
// Only the newest value is kept if the reader falls behind.
func (d *Display) Updates() <-chan int64 {
	return d.updates
}

func (d *Display) run(ctx context.Context, sub *Subscription, done chan struct{}) {
	defer close(done)

	d.refresh(ctx, "mount")
	for {
		select {
		case <-ctx.Done():
			d.detach(sub)
			return
		case e, ok := <-sub.C():
			if !ok {
				return
			}
			d.refresh(ctx, e.Reason)
		}
	}
}

// detach drops sub after its mount context ended so the display can be
// mounted again. An Unmount racing with it already cleared d.sub.
func (d *Display) detach(sub *Subscription) {
	d.mu.Lock()
	if d.sub == sub {
		d.sub, d.done = nil, nil
	}
	d.mu.Unlock()
	sub.Close()
}

func (d *Display) refresh(ctx context.Context, reason string) {
	rctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.store.Refresh(rctx); err != nil {
		logger.Warn("wallet display refresh failed", "display", d.name, "reason", reason, "error", err)
		return
	}

	bal := d.store.Balance()
	select {
	case d.updates <- bal:
	default:
		select {
		case <-d.updates:
		default:
		}
		select {
		case d.updates <- bal:
		default:
		}
	}
}
