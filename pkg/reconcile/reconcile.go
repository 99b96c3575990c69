// Package reconcile surfaces ambiguous purchase deliveries to an operator.
// A delivery timeout leaves the spend in place; the record enqueued here is
// what a human (or the reconciliation worker) uses to grant or refund.
package reconcile

import (
	"context"

	"github.com/skyvale/cloudpoints/pkg/models"
)

// Recorder enqueues an ambiguous delivery for out-of-band reconciliation.
type Recorder interface {
	Record(ctx context.Context, delivery *models.AmbiguousDelivery) error
}

// NoopRecorder is used when no reconciliation queue is configured; the
// ambiguous outcome is still logged by the orchestrator.
type NoopRecorder struct{}

// Record does nothing.
func (r *NoopRecorder) Record(ctx context.Context, delivery *models.AmbiguousDelivery) error {
	return nil
}
