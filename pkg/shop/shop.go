// Package shop implements the purchase transaction pipeline: OTP issuance
// and verification, balance deduction, remote command delivery, and the
// compensation path when delivery definitely fails.
package shop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skyvale/cloudpoints/pkg/catalog"
	"github.com/skyvale/cloudpoints/pkg/directory"
	"github.com/skyvale/cloudpoints/pkg/ledger"
	"github.com/skyvale/cloudpoints/pkg/models"
	"github.com/skyvale/cloudpoints/pkg/otp"
	"github.com/skyvale/cloudpoints/pkg/panel"
	"github.com/skyvale/cloudpoints/pkg/reconcile"
)

var (
	// ErrInvalidInput is returned for malformed account IDs, codes or player names.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDeliveryBlocked is returned when the OTP could not be delivered to
	// the account's DMs (closed DMs, blocked bot). The code stays recorded.
	ErrDeliveryBlocked = errors.New("credential delivery blocked")
)

var (
	accountIDPattern  = regexp.MustCompile(`^[0-9]{5,20}$`)
	codePattern       = regexp.MustCompile(`^[0-9]{6}$`)
	ingameNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,16}$`)
)

// Shop is the interface the HTTP layer depends on.
type Shop interface {
	// IssueOTP issues a credential and delivers it out-of-band via DM.
	IssueOTP(ctx context.Context, accountID string) (*models.Credential, error)

	// Purchase runs the full transaction for one item.
	Purchase(ctx context.Context, accountID, code, itemID, ingameName string) (*models.Receipt, error)

	// Profile resolves account identity plus ledger balance.
	Profile(ctx context.Context, accountID string) (*models.AccountProfile, error)

	// ActiveCredentials reports the number of live credentials.
	ActiveCredentials(ctx context.Context) (int, error)
}

// Service wires the ledger, catalog, credential issuer and the two external
// collaborators into the purchase pipeline.
type Service struct {
	ledger    ledger.Store
	catalog   *catalog.Catalog
	issuer    *otp.Issuer
	directory directory.Directory
	executor  panel.Executor
	recorder  reconcile.Recorder
	serverID  string
	now       func() time.Time
}

// New creates a Service.
func New(ledgerStore ledger.Store, cat *catalog.Catalog, issuer *otp.Issuer, dir directory.Directory, executor panel.Executor, recorder reconcile.Recorder, serverID string) *Service {
	return &Service{
		ledger:    ledgerStore,
		catalog:   cat,
		issuer:    issuer,
		directory: dir,
		executor:  executor,
		recorder:  recorder,
		serverID:  serverID,
		now:       time.Now,
	}
}

// Make sure we conform to the interface
var _ Shop = (*Service)(nil)

// IssueOTP issues a fresh credential and DMs it to the account. A failed DM
// is an explicit trust trade-off: the code stays recorded so degraded-mode
// testing can still display it, but the caller is told delivery was blocked.
func (s *Service) IssueOTP(ctx context.Context, accountID string) (*models.Credential, error) {
	if !accountIDPattern.MatchString(accountID) {
		return nil, fmt.Errorf("account id %q: %w", accountID, ErrInvalidInput)
	}

	credential, err := s.issuer.Issue(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue credential: %w", err)
	}

	content := fmt.Sprintf("🔐 Your OTP for ☁️ Cloud Points Shop: `%s`\n⏰ Expires in 5 minutes\nDo not share this code with anyone!", credential.Code)
	if err := s.directory.SendDirectMessage(ctx, accountID, content); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, err
		}
		slog.Warn("OTP issued but DM delivery failed", "account_id", accountID, "error", err)
		return credential, fmt.Errorf("account %s: %w", accountID, ErrDeliveryBlocked)
	}

	return credential, nil
}

// Purchase runs the transaction with deduct-first ordering: verify the
// credential, deduct the price (the balance check and debit are atomic under
// the account's lock), deliver the command, then settle by consuming the
// credential. A definite delivery failure refunds exactly once; an ambiguous
// timeout keeps the spend and enqueues the record for reconciliation.
func (s *Service) Purchase(ctx context.Context, accountID, code, itemID, ingameName string) (*models.Receipt, error) {
	switch {
	case !accountIDPattern.MatchString(accountID):
		return nil, fmt.Errorf("account id %q: %w", accountID, ErrInvalidInput)
	case !codePattern.MatchString(code):
		return nil, fmt.Errorf("code must be 6 digits: %w", ErrInvalidInput)
	case !ingameNamePattern.MatchString(ingameName):
		return nil, fmt.Errorf("in-game name %q: %w", ingameName, ErrInvalidInput)
	}

	// Requested -> CredentialVerified. No side effects yet.
	if err := s.issuer.Verify(ctx, accountID, code); err != nil {
		return nil, err
	}

	// CredentialVerified -> PricedAndAffordable.
	item, err := s.catalog.Get(itemID)
	if err != nil {
		return nil, err
	}

	// Deduct before delivery. Adjust rejects with ErrInsufficientFunds
	// atomically, so two concurrent purchases cannot both pass the check.
	remaining, err := s.ledger.Adjust(ctx, accountID, -item.Price)
	if err != nil {
		return nil, err
	}

	purchaseID := uuid.New().String()
	command := strings.ReplaceAll(item.CommandTemplate, catalog.PlayerPlaceholder, ingameName)

	// PricedAndAffordable -> Delivered. The riskiest step: external and flaky.
	if err := s.executor.SendCommand(ctx, s.serverID, command); err != nil {
		if errors.Is(err, panel.ErrAmbiguous) {
			// The command may have executed; refunding could hand out free
			// items. Keep the spend and surface the record for manual review.
			delivery := &models.AmbiguousDelivery{
				PurchaseID: purchaseID,
				AccountID:  accountID,
				ItemID:     item.ID,
				ItemName:   item.Name,
				Price:      item.Price,
				Command:    command,
				OccurredAt: s.now(),
			}
			if recordErr := s.recorder.Record(ctx, delivery); recordErr != nil {
				slog.Error("failed to enqueue ambiguous delivery for reconciliation",
					"purchase_id", purchaseID, "account_id", accountID, "item_id", item.ID,
					"command", command, "error", recordErr)
			}
			slog.Warn("command delivery ambiguous, spend kept pending reconciliation",
				"purchase_id", purchaseID, "account_id", accountID, "item_id", item.ID, "command", command)
			return nil, err
		}

		// Definite failure: compensate the deduction exactly once.
		if _, refundErr := s.ledger.Adjust(ctx, accountID, item.Price); refundErr != nil {
			slog.Error("CRITICAL: delivery failed and refund also failed",
				"purchase_id", purchaseID, "account_id", accountID, "item_id", item.ID,
				"price", item.Price, "command", command, "error", refundErr)
		}
		return nil, fmt.Errorf("failed to deliver item %s: %w", item.ID, err)
	}

	// Delivered -> Settled. Only now is the credential spent; a consume
	// failure does not undo a delivered purchase.
	if err := s.issuer.Consume(ctx, accountID, code); err != nil {
		slog.Error("purchase delivered but credential consume failed",
			"purchase_id", purchaseID, "account_id", accountID, "error", err)
	}

	return &models.Receipt{
		ID:               purchaseID,
		AccountID:        accountID,
		ItemID:           item.ID,
		ItemName:         item.Name,
		Price:            item.Price,
		RemainingBalance: remaining,
		Command:          command,
		CreatedAt:        s.now(),
	}, nil
}

// Profile fetches directory identity and ledger balance concurrently.
// A ledger miss reads as 0; a directory outage degrades to partial data
// instead of failing the whole lookup.
func (s *Service) Profile(ctx context.Context, accountID string) (*models.AccountProfile, error) {
	if !accountIDPattern.MatchString(accountID) {
		return nil, fmt.Errorf("account id %q: %w", accountID, ErrInvalidInput)
	}

	type profileResult struct {
		profile *models.Profile
		err     error
	}
	type balanceResult struct {
		points int64
		err    error
	}

	profileCh := make(chan profileResult, 1)
	balanceCh := make(chan balanceResult, 1)

	go func() {
		profile, err := s.directory.FetchUserProfile(ctx, accountID)
		profileCh <- profileResult{profile, err}
	}()
	go func() {
		points, err := s.ledger.GetBalance(ctx, accountID)
		balanceCh <- balanceResult{points, err}
	}()

	pr := <-profileCh
	br := <-balanceCh

	if pr.err != nil {
		if errors.Is(pr.err, directory.ErrNotFound) {
			return nil, pr.err
		}
		slog.Warn("directory lookup failed, serving partial profile", "account_id", accountID, "error", pr.err)
		pr.profile = &models.Profile{AccountID: accountID, Username: "Unknown"}
	}

	points := br.points
	if br.err != nil {
		slog.Warn("ledger read failed during profile lookup", "account_id", accountID, "error", br.err)
		points = 0
	}

	return &models.AccountProfile{
		AccountID: pr.profile.AccountID,
		Username:  pr.profile.Username,
		AvatarURL: pr.profile.AvatarURL,
		Points:    points,
	}, nil
}

// ActiveCredentials reports live credential count for the health endpoint.
func (s *Service) ActiveCredentials(ctx context.Context) (int, error) {
	return s.issuer.Active(ctx)
}
