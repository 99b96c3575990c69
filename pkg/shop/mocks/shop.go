// Code generated manually in mockery style; keep in sync with the Shop interface.
package mocks

import (
	"context"

	"github.com/skyvale/cloudpoints/pkg/models"
	"github.com/stretchr/testify/mock"
)

// Shop is a mock implementation of shop.Shop.
type Shop struct {
	mock.Mock
}

func (m *Shop) IssueOTP(ctx context.Context, accountID string) (*models.Credential, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Credential), args.Error(1)
}

func (m *Shop) Purchase(ctx context.Context, accountID, code, itemID, ingameName string) (*models.Receipt, error) {
	args := m.Called(ctx, accountID, code, itemID, ingameName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Receipt), args.Error(1)
}

func (m *Shop) Profile(ctx context.Context, accountID string) (*models.AccountProfile, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountProfile), args.Error(1)
}

func (m *Shop) ActiveCredentials(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
