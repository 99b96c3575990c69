package shop

import (
	"context"
	"strings"
	"testing"

	directorymocks "github.com/skyvale/cloudpoints/pkg/directory/mocks"
	panelmocks "github.com/skyvale/cloudpoints/pkg/panel/mocks"
	reconcilemocks "github.com/skyvale/cloudpoints/pkg/reconcile/mocks"

	"github.com/skyvale/cloudpoints/pkg/catalog"
	"github.com/skyvale/cloudpoints/pkg/directory"
	"github.com/skyvale/cloudpoints/pkg/ledger"
	"github.com/skyvale/cloudpoints/pkg/models"
	"github.com/skyvale/cloudpoints/pkg/otp"
	"github.com/skyvale/cloudpoints/pkg/panel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	accountID = "123456789012345678"
	serverID  = "1a7ce997"
)

const testItemsJSON = `{
  "1": {"item-name": "Golden Apple", "item-price": "100", "item-cmd": "give {ingame-name} golden_apple", "item-icon": "https://example.com/apple.png"},
  "elytra": {"item-name": "Elytra", "item-price": "1000", "item-cmd": "give {ingame-name} elytra", "item-icon": "https://example.com/elytra.png"}
}`

// fixedSnapshots is a SnapshotStore seeded with balances; writes are accepted
// and remembered.
type fixedSnapshots struct {
	balances map[string]int64
}

func (s *fixedSnapshots) ReadSnapshot(ctx context.Context) (map[string]int64, error) {
	copied := make(map[string]int64, len(s.balances))
	for k, v := range s.balances {
		copied[k] = v
	}
	return copied, nil
}

func (s *fixedSnapshots) WriteSnapshot(ctx context.Context, balances map[string]int64) error {
	s.balances = balances
	return nil
}

type fixture struct {
	service   *Service
	ledger    *ledger.CachedStore
	issuer    *otp.Issuer
	directory *directorymocks.Directory
	executor  *panelmocks.Executor
	recorder  *reconcilemocks.Recorder
}

func newFixture(t *testing.T, startingPoints int64) *fixture {
	t.Helper()

	store := ledger.NewCachedStore(
		&fixedSnapshots{balances: map[string]int64{accountID: startingPoints}},
		ledger.WithPersistInterval(0),
	)
	t.Cleanup(func() { store.Close() })

	cat, err := catalog.Parse(strings.NewReader(testItemsJSON))
	require.NoError(t, err)

	f := &fixture{
		ledger:    store,
		issuer:    otp.NewIssuer(otp.NewMemoryStore()),
		directory: new(directorymocks.Directory),
		executor:  new(panelmocks.Executor),
		recorder:  new(reconcilemocks.Recorder),
	}
	f.service = New(store, cat, f.issuer, f.directory, f.executor, f.recorder, serverID)
	return f
}

func (f *fixture) issueCode(t *testing.T) string {
	t.Helper()
	credential, err := f.issuer.Issue(context.Background(), accountID)
	require.NoError(t, err)
	return credential.Code
}

func (f *fixture) balance(t *testing.T) int64 {
	t.Helper()
	points, err := f.ledger.GetBalance(context.Background(), accountID)
	require.NoError(t, err)
	return points
}

func TestPurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("Success Spends Exact Balance", func(t *testing.T) {
		f := newFixture(t, 1000)
		code := f.issueCode(t)
		f.executor.On("SendCommand", mock.Anything, serverID, "give Steve_77 elytra").Return(nil)

		receipt, err := f.service.Purchase(ctx, accountID, code, "elytra", "Steve_77")

		require.NoError(t, err)
		assert.Equal(t, "Elytra", receipt.ItemName)
		assert.Equal(t, int64(1000), receipt.Price)
		assert.Equal(t, int64(0), receipt.RemainingBalance)
		assert.Equal(t, "give Steve_77 elytra", receipt.Command)
		assert.Equal(t, 1, strings.Count(receipt.Command, "Steve_77"))
		assert.NotContains(t, receipt.Command, catalog.PlayerPlaceholder)
		assert.Equal(t, int64(0), f.balance(t))

		// The credential is now consumed; replay fails.
		_, err = f.service.Purchase(ctx, accountID, code, "elytra", "Steve_77")
		assert.ErrorIs(t, err, otp.ErrConsumed)
		f.executor.AssertNumberOfCalls(t, "SendCommand", 1)
	})

	t.Run("Insufficient Funds Leaves State Untouched", func(t *testing.T) {
		f := newFixture(t, 50)
		code := f.issueCode(t)

		_, err := f.service.Purchase(ctx, accountID, code, "1", "Steve_77")

		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
		assert.Equal(t, int64(50), f.balance(t))
		// The credential survives a rejected purchase and can be retried.
		assert.NoError(t, f.issuer.Verify(ctx, accountID, code))
		f.executor.AssertNotCalled(t, "SendCommand", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Bad Credential Rejections", func(t *testing.T) {
		f := newFixture(t, 1000)

		_, err := f.service.Purchase(ctx, accountID, "123456", "1", "Steve_77")
		assert.ErrorIs(t, err, otp.ErrNotFound)

		code := f.issueCode(t)
		wrong := "000000"
		if code == wrong {
			wrong = "000001"
		}
		_, err = f.service.Purchase(ctx, accountID, wrong, "1", "Steve_77")
		assert.ErrorIs(t, err, otp.ErrMismatch)

		f.executor.AssertNotCalled(t, "SendCommand", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Item Not Found", func(t *testing.T) {
		f := newFixture(t, 1000)
		code := f.issueCode(t)

		_, err := f.service.Purchase(ctx, accountID, code, "999", "Steve_77")

		assert.ErrorIs(t, err, catalog.ErrItemNotFound)
		assert.Equal(t, int64(1000), f.balance(t))
	})

	t.Run("Invalid Inputs", func(t *testing.T) {
		f := newFixture(t, 1000)
		code := f.issueCode(t)

		_, err := f.service.Purchase(ctx, "not-a-snowflake", code, "1", "Steve_77")
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = f.service.Purchase(ctx, accountID, "12345", "1", "Steve_77")
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = f.service.Purchase(ctx, accountID, code, "1", "bad name!")
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = f.service.Purchase(ctx, accountID, code, "1", "x")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Definite Delivery Failure Refunds Exactly Once", func(t *testing.T) {
		f := newFixture(t, 1000)
		code := f.issueCode(t)
		f.executor.On("SendCommand", mock.Anything, serverID, mock.Anything).Return(panel.ErrRejected)

		_, err := f.service.Purchase(ctx, accountID, code, "1", "Steve_77")

		assert.ErrorIs(t, err, panel.ErrRejected)
		assert.Equal(t, int64(1000), f.balance(t), "refund restores the deducted price")
		// Credential not consumed; the purchase can be retried with the same code.
		assert.NoError(t, f.issuer.Verify(ctx, accountID, code))
		f.recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("Ambiguous Timeout Keeps Spend And Records For Reconciliation", func(t *testing.T) {
		f := newFixture(t, 1000)
		code := f.issueCode(t)
		f.executor.On("SendCommand", mock.Anything, serverID, mock.Anything).Return(panel.ErrAmbiguous)
		f.recorder.On("Record", mock.Anything, mock.MatchedBy(func(d *models.AmbiguousDelivery) bool {
			return d.AccountID == accountID && d.ItemID == "1" && d.Price == 100 &&
				d.Command == "give Steve_77 golden_apple"
		})).Return(nil)

		_, err := f.service.Purchase(ctx, accountID, code, "1", "Steve_77")

		assert.ErrorIs(t, err, panel.ErrAmbiguous)
		assert.Equal(t, int64(900), f.balance(t), "no automatic refund on ambiguous outcome")
		f.recorder.AssertExpectations(t)
		f.recorder.AssertNumberOfCalls(t, "Record", 1)
	})
}

func TestIssueOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("Success Delivers Code Via DM", func(t *testing.T) {
		f := newFixture(t, 0)
		var sentContent string
		f.directory.On("SendDirectMessage", mock.Anything, accountID, mock.Anything).
			Run(func(args mock.Arguments) { sentContent = args.String(2) }).Return(nil)

		credential, err := f.service.IssueOTP(ctx, accountID)

		require.NoError(t, err)
		assert.Contains(t, sentContent, credential.Code)
		assert.NoError(t, f.issuer.Verify(ctx, accountID, credential.Code))
	})

	t.Run("Blocked DM Still Records Code", func(t *testing.T) {
		f := newFixture(t, 0)
		f.directory.On("SendDirectMessage", mock.Anything, accountID, mock.Anything).Return(directory.ErrForbidden)

		credential, err := f.service.IssueOTP(ctx, accountID)

		assert.ErrorIs(t, err, ErrDeliveryBlocked)
		require.NotNil(t, credential)
		assert.NoError(t, f.issuer.Verify(ctx, accountID, credential.Code))
	})

	t.Run("Unknown Account", func(t *testing.T) {
		f := newFixture(t, 0)
		f.directory.On("SendDirectMessage", mock.Anything, accountID, mock.Anything).Return(directory.ErrNotFound)

		_, err := f.service.IssueOTP(ctx, accountID)
		assert.ErrorIs(t, err, directory.ErrNotFound)
	})

	t.Run("Invalid Account ID", func(t *testing.T) {
		f := newFixture(t, 0)
		_, err := f.service.IssueOTP(ctx, "abc")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("Composes Identity And Balance", func(t *testing.T) {
		f := newFixture(t, 700)
		f.directory.On("FetchUserProfile", mock.Anything, accountID).Return(&models.Profile{
			AccountID: accountID,
			Username:  "Steve",
			AvatarURL: "https://cdn.example.com/avatar.png",
		}, nil)

		profile, err := f.service.Profile(ctx, accountID)

		require.NoError(t, err)
		assert.Equal(t, "Steve", profile.Username)
		assert.Equal(t, int64(700), profile.Points)
	})

	t.Run("Unknown Account", func(t *testing.T) {
		f := newFixture(t, 0)
		f.directory.On("FetchUserProfile", mock.Anything, accountID).Return(nil, directory.ErrNotFound)

		_, err := f.service.Profile(ctx, accountID)
		assert.ErrorIs(t, err, directory.ErrNotFound)
	})

	t.Run("Directory Outage Degrades To Partial Data", func(t *testing.T) {
		f := newFixture(t, 700)
		f.directory.On("FetchUserProfile", mock.Anything, accountID).Return(nil, directory.ErrUnavailable)

		profile, err := f.service.Profile(ctx, accountID)

		require.NoError(t, err)
		assert.Equal(t, "Unknown", profile.Username)
		assert.Equal(t, int64(700), profile.Points)
	})
}
