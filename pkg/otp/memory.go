package otp

import (
	"context"
	"sync"
	"time"

	"github.com/skyvale/cloudpoints/pkg/models"
)

// MemoryStore is the single-instance CredentialStore: a map with lazy
// garbage collection of expired entries.
type MemoryStore struct {
	mu          sync.RWMutex
	credentials map[string]*models.Credential
	now         func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		credentials: make(map[string]*models.Credential),
		now:         time.Now,
	}
}

// Make sure we conform to the interface
var _ CredentialStore = (*MemoryStore)(nil)

// Get returns a copy of the account's credential.
func (s *MemoryStore) Get(ctx context.Context, accountID string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	credential, ok := s.credentials[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *credential
	return &copied, nil
}

// Put stores the credential and sweeps expired entries while it holds the lock.
func (s *MemoryStore) Put(ctx context.Context, credential *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for accountID, existing := range s.credentials {
		if existing.Expired(now) {
			delete(s.credentials, accountID)
		}
	}

	copied := *credential
	s.credentials[credential.AccountID] = &copied
	return nil
}

// Delete removes the account's credential.
func (s *MemoryStore) Delete(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.credentials, accountID)
	return nil
}

// Count returns the number of unexpired credentials.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	count := 0
	for _, credential := range s.credentials {
		if !credential.Expired(now) {
			count++
		}
	}
	return count, nil
}
