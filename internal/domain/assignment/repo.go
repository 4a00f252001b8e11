package assignment

import (
	"context"

	"github.com/google/uuid"
)

type AssignmentRepository interface {
	// CurrentCohort returns the rows sharing the study's most recent
	// assigned_at timestamp, or an empty slice when nothing was ever
	// assigned.
	CurrentCohort(ctx context.Context, studyID uuid.UUID) ([]*Assignment, error)

	// InsertRound appends one reconciliation round atomically. Every
	// entry must carry the same AssignedAt.
	InsertRound(ctx context.Context, entries []*Assignment) error

	// ListByStudy returns the full append-only history, oldest round first.
	ListByStudy(ctx context.Context, studyID uuid.UUID, limit, offset int) ([]*Assignment, int, error)
}
