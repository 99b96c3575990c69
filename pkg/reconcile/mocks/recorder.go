// Code generated manually in mockery style; keep in sync with the Recorder interface.
package mocks

import (
	"context"

	"github.com/skyvale/cloudpoints/pkg/models"
	"github.com/stretchr/testify/mock"
)

// Recorder is a mock implementation of reconcile.Recorder.
type Recorder struct {
	mock.Mock
}

func (m *Recorder) Record(ctx context.Context, delivery *models.AmbiguousDelivery) error {
	args := m.Called(ctx, delivery)
	return args.Error(0)
}
