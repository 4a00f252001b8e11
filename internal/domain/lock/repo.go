package lock

import (
	"context"

	"github.com/google/uuid"
)

// LockRepository mutates the lock sub-state of a study. Every operation is
// atomic per study: TryAcquire is a conditional update, Seize and the
// conditional release serialize on the study row.
type LockRepository interface {
	// TryAcquire locks the study for the operator only if it is currently
	// unlocked. Returns false without error when the lock was held.
	TryAcquire(ctx context.Context, studyID, operatorID uuid.UUID) (bool, error)

	// Seize unconditionally reassigns the lock to the operator and returns
	// the displaced holder, or nil when the study was unlocked or the
	// operator already held it.
	Seize(ctx context.Context, studyID, operatorID uuid.UUID) (*uuid.UUID, error)

	// ReleaseIf unlocks the study only if the given operator holds the
	// lock. Returns false without error otherwise.
	ReleaseIf(ctx context.Context, studyID, holderID uuid.UUID) (bool, error)

	// ForceRelease unlocks the study regardless of holder.
	ForceRelease(ctx context.Context, studyID uuid.UUID) error

	// Get returns the study's current lock state.
	Get(ctx context.Context, studyID uuid.UUID) (*State, error)
}
