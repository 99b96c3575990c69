// Code generated manually in mockery style; keep in sync with the Executor interface.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Executor is a mock implementation of panel.Executor.
type Executor struct {
	mock.Mock
}

func (m *Executor) SendCommand(ctx context.Context, serverID string, command string) error {
	args := m.Called(ctx, serverID, command)
	return args.Error(0)
}
