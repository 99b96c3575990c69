// Package otp issues and validates the short-lived one-time codes that
// authorize shop purchases.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/skyvale/cloudpoints/pkg/models"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 5 * time.Minute

var (
	// ErrNotFound is returned when no credential is on record for the account.
	ErrNotFound = errors.New("no active credential")
	// ErrExpired is returned when the credential's window has lapsed.
	ErrExpired = errors.New("credential expired")
	// ErrConsumed is returned when the credential was already spent.
	ErrConsumed = errors.New("credential already consumed")
	// ErrMismatch is returned when the presented code differs from the issued one.
	ErrMismatch = errors.New("credential mismatch")
)

// CredentialStore persists live credentials, keyed by account.
type CredentialStore interface {
	// Get returns the account's live credential, or ErrNotFound.
	Get(ctx context.Context, accountID string) (*models.Credential, error)

	// Put stores the credential, replacing any prior one for the account.
	Put(ctx context.Context, credential *models.Credential) error

	// Delete removes the account's credential, if any.
	Delete(ctx context.Context, accountID string) error

	// Count returns the number of live credentials.
	Count(ctx context.Context) (int, error)
}

// Issuer generates, verifies and consumes one-time credentials.
// Verification alone never consumes; consumption is a separate step taken
// only once the purchase's side effects are underway, so a failed downstream
// step can be retried with the same still-valid code.
type Issuer struct {
	store CredentialStore
	ttl   time.Duration
	now   func() time.Time

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithTTL overrides the credential lifetime.
func WithTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) { i.ttl = ttl }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer creates an Issuer over the given store.
func NewIssuer(store CredentialStore, opts ...IssuerOption) *Issuer {
	issuer := &Issuer{
		store: store,
		ttl:   DefaultTTL,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer
}

// Issue generates a fresh 6-digit code for the account, superseding any prior
// live credential.
func (i *Issuer) Issue(ctx context.Context, accountID string) (*models.Credential, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	now := i.now()
	credential := &models.Credential{
		AccountID: accountID,
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}

	lock := i.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	if err := i.store.Put(ctx, credential); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	return credential, nil
}

// Verify checks the presented code against the account's live credential
// without consuming it.
func (i *Issuer) Verify(ctx context.Context, accountID string, code string) error {
	lock := i.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	_, err := i.check(ctx, accountID, code)
	return err
}

// Consume marks the credential spent. It re-runs the full verification so a
// racing second purchase cannot consume with a stale view.
func (i *Issuer) Consume(ctx context.Context, accountID string, code string) error {
	lock := i.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	credential, err := i.check(ctx, accountID, code)
	if err != nil {
		return err
	}

	credential.Consumed = true
	if err := i.store.Put(ctx, credential); err != nil {
		return fmt.Errorf("failed to mark credential consumed: %w", err)
	}
	return nil
}

// Invalidate drops the account's credential outright.
func (i *Issuer) Invalidate(ctx context.Context, accountID string) error {
	lock := i.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	return i.store.Delete(ctx, accountID)
}

// Active returns the number of live credentials, for the health endpoint.
func (i *Issuer) Active(ctx context.Context) (int, error) {
	return i.store.Count(ctx)
}

// check validates state without consuming. Callers must hold the account lock.
func (i *Issuer) check(ctx context.Context, accountID string, code string) (*models.Credential, error) {
	credential, err := i.store.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if credential.Expired(i.now()) {
		// Evict eagerly so the record cannot linger.
		if deleteErr := i.store.Delete(ctx, accountID); deleteErr != nil {
			return nil, fmt.Errorf("failed to evict expired credential: %w", deleteErr)
		}
		return nil, ErrExpired
	}
	if credential.Consumed {
		return nil, ErrConsumed
	}
	if credential.Code != code {
		return nil, ErrMismatch
	}
	return credential, nil
}

func (i *Issuer) accountLock(accountID string) *sync.Mutex {
	i.lockMu.Lock()
	defer i.lockMu.Unlock()
	lock, ok := i.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		i.locks[accountID] = lock
	}
	return lock
}

// generateCode returns a uniformly random, zero-padded 6-digit string.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
