package wallet

import (
	"sync"

	"calm_games/internal/domain"
)

// Event is the typed payload carried on the wallet channel
type Event = domain.WalletEvent

// Publisher is the write side of the bus, handed to components that grant rewards
type Publisher interface {
	Publish(Event)
}

// Bus is an in-process publish/subscribe channel for wallet changes.
// Publish never blocks: every subscriber owns a one-slot mailbox, and an event
// arriving while a previous one is still pending is coalesced into it, since
// observers only react by refreshing.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*Subscription)}
}

// Subscription is one observer's mailbox
type Subscription struct {
	id   uint64
	bus  *Bus
	ch   chan Event
	once sync.Once
}

// C delivers events; closed after Close
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
		close(s.ch)
	})
}

func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	s := &Subscription{id: b.nextID, bus: b, ch: make(chan Event, 1)}
	b.subs[s.id] = s
	return s
}

// Publish fans e out to all current subscribers without waiting on any of them
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subs {
		select {
		case s.ch <- e:
		default:
			// a refresh is already pending for this subscriber
		}
	}
}

// Subscribers returns the number of attached observers
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
