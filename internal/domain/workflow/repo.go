package workflow

import (
	"context"

	"github.com/google/uuid"
)

type WorkflowRepository interface {
	// CurrentStatus reads the case's workflow status.
	CurrentStatus(ctx context.Context, studyID uuid.UUID) (Status, error)

	// RecordTransition appends the history entry and updates the case's
	// workflow status in one transaction.
	RecordTransition(ctx context.Context, entry *HistoryEntry) error

	// ListHistory returns the case's status history, oldest first.
	ListHistory(ctx context.Context, studyID uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error)
}
