package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultCacheTTL        = 2 * time.Minute
	defaultPersistInterval = 15 * time.Second
	persistTimeout         = 30 * time.Second
)

// CachedStore implements Store with a read-through cache over a SnapshotStore.
//
// Reads serve the cached snapshot until its TTL lapses, then refresh it.
// Adjustments take a per-account lock around the read-check-write sequence so
// two concurrent debits can never both pass the balance check. Persistence is
// coalesced: a background flusher writes the full snapshot at most once per
// interval while dirty, with bounded retries.
type CachedStore struct {
	snapshots SnapshotStore

	mu        sync.RWMutex
	balances  map[string]int64
	loadedAt  time.Time
	dirty     bool
	loaded    bool
	gen       uint64 // bumped on every adjust, used to detect writes racing a flush

	lockMu       sync.Mutex
	accountLocks map[string]*sync.Mutex

	ttl             time.Duration
	persistInterval time.Duration
	now             func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures a CachedStore.
type Option func(*CachedStore)

// WithCacheTTL sets how long a refreshed snapshot serves reads before a new
// refresh is attempted.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *CachedStore) { s.ttl = ttl }
}

// WithPersistInterval sets the coalescing window for snapshot persistence.
// A non-positive interval disables the background flusher; Flush must then be
// called explicitly.
func WithPersistInterval(interval time.Duration) Option {
	return func(s *CachedStore) { s.persistInterval = interval }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *CachedStore) { s.now = now }
}

// NewCachedStore creates a CachedStore and starts its background flusher.
// Callers must Close it to drain pending writes.
func NewCachedStore(snapshots SnapshotStore, opts ...Option) *CachedStore {
	s := &CachedStore{
		snapshots:       snapshots,
		balances:        make(map[string]int64),
		accountLocks:    make(map[string]*sync.Mutex),
		ttl:             defaultCacheTTL,
		persistInterval: defaultPersistInterval,
		now:             time.Now,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.persistInterval > 0 {
		go s.runFlusher()
	} else {
		close(s.done)
	}
	return s
}

// Make sure we conform to the interface
var _ Store = (*CachedStore)(nil)

// GetBalance returns the account's balance, refreshing the snapshot first if
// the cache has gone stale. A failed refresh falls back to the stale cache so
// transient directory outages never surface as zero balances.
func (s *CachedStore) GetBalance(ctx context.Context, accountID string) (int64, error) {
	if s.cacheExpired() {
		if err := s.Refresh(ctx); err != nil {
			slog.Warn("ledger refresh failed, serving stale cache", "error", err)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[accountID], nil
}

// Adjust applies delta under the account's lock and marks the snapshot dirty.
// The in-memory value is authoritative until the next successful persist.
func (s *CachedStore) Adjust(ctx context.Context, accountID string, delta int64) (int64, error) {
	// Make sure the first adjustment of the process doesn't run against an
	// empty cache that simply hasn't been loaded yet.
	if s.cacheExpired() {
		if err := s.Refresh(ctx); err != nil {
			slog.Warn("ledger refresh failed before adjust, using cached state", "error", err)
		}
	}

	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.balances[accountID]
	updated := current + delta
	if updated < 0 {
		return current, fmt.Errorf("account %s balance %d, delta %d: %w", accountID, current, delta, ErrInsufficientFunds)
	}

	s.balances[accountID] = updated
	s.dirty = true
	s.gen++
	return updated, nil
}

// Refresh replaces the cache from the durable store. While local adjustments
// are pending, the refresh is skipped: unpersisted deltas outrank a stale
// remote snapshot.
func (s *CachedStore) Refresh(ctx context.Context) error {
	s.mu.RLock()
	dirty := s.dirty
	s.mu.RUnlock()
	if dirty {
		return nil
	}

	balances, err := s.snapshots.ReadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read ledger snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		// An adjust slipped in while we were fetching; its delta wins.
		return nil
	}
	s.balances = balances
	s.loadedAt = s.now()
	s.loaded = true
	return nil
}

// Flush persists the current snapshot if dirty, with bounded retries.
func (s *CachedStore) Flush(ctx context.Context) error {
	s.mu.RLock()
	if !s.dirty {
		s.mu.RUnlock()
		return nil
	}
	gen := s.gen
	copied := copyBalances(s.balances)
	s.mu.RUnlock()

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.snapshots.WriteSnapshot(ctx, copied); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to persist ledger snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.dirty = false
	}
	s.loadedAt = s.now()
	s.loaded = true
	return nil
}

// Snapshot returns a copy of the in-memory balances.
func (s *CachedStore) Snapshot() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyBalances(s.balances)
}

// Close stops the background flusher and performs a final synchronous flush.
func (s *CachedStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	return s.Flush(ctx)
}

func (s *CachedStore) runFlusher() {
	defer close(s.done)

	ticker := time.NewTicker(s.persistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			if err := s.Flush(ctx); err != nil {
				slog.Error("ledger snapshot persist failed, in-memory state remains authoritative", "error", err)
			}
			cancel()
		}
	}
}

func (s *CachedStore) cacheExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return true
	}
	return s.now().Sub(s.loadedAt) > s.ttl
}

func (s *CachedStore) accountLock(accountID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.accountLocks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.accountLocks[accountID] = lock
	}
	return lock
}

func copyBalances(balances map[string]int64) map[string]int64 {
	copied := make(map[string]int64, len(balances))
	for accountID, points := range balances {
		copied[accountID] = points
	}
	return copied
}
