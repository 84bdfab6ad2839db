package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"calm_games/internal/domain"
)

// Fetcher reads the authoritative wallet from the backend
type Fetcher interface {
	GetWallet(ctx context.Context) (*domain.WalletResponse, error)
}

// Store is the process-wide cached balance. It never computes balances itself;
// the cache only changes by replacing it with a fresh backend read.
type Store struct {
	fetcher Fetcher

	mu        sync.RWMutex
	balance   int64
	loaded    bool
	updatedAt time.Time
	// seq orders refreshes so an older response can't overwrite a newer one
	seq     uint64
	applied uint64
}

func NewStore(fetcher Fetcher) *Store {
	return &Store{fetcher: fetcher}
}

// Balance returns the last known balance (0 before the first refresh)
func (s *Store) Balance() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance
}

// Loaded reports whether at least one refresh succeeded
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// UpdatedAt is the time of the last applied refresh
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Refresh re-fetches the balance and replaces the cached value
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	mySeq := s.seq
	s.mu.Unlock()

	w, err := s.fetcher.GetWallet(ctx)
	if err != nil {
		return fmt.Errorf("refresh wallet: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if mySeq < s.applied {
		return nil
	}
	s.applied = mySeq
	s.balance = w.Balance
	s.loaded = true
	s.updatedAt = time.Now()
	return nil
}
