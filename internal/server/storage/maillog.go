package storage

import (
	"context"

	"github.com/iudanet/outreach/internal/models"
)

// MailLogStorage defines interface for the append-only delivery log
type MailLogStorage interface {
	// RecordDispatch appends one outcome row and fills outcome.ID
	RecordDispatch(ctx context.Context, outcome *models.DispatchOutcome) error

	// ListDispatches returns the latest outcomes of userID, newest first
	ListDispatches(ctx context.Context, userID int64, limit int) ([]models.DispatchOutcome, error)
}
