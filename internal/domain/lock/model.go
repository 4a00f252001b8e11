package lock

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is a study's reporting-lock sub-state. At most one operator holds
// the lock at a time; the radiologist bypass is the single logged exception.
type State struct {
	StudyID      uuid.UUID  `json:"study_id"`
	IsLocked     bool       `json:"is_locked"`
	LockedBy     *uuid.UUID `json:"locked_by,omitempty"`
	LockedByName string     `json:"locked_by_name,omitempty"`
	LockedAt     *time.Time `json:"locked_at,omitempty"`
}

// Actor identifies the operator performing a lock operation, together with
// the capability set resolved from their roles.
type Actor struct {
	ID   uuid.UUID
	Name string

	CanReport   bool
	CanVerify   bool
	CanToggle   bool
	CanOverride bool
}

// ConflictError reports a failed acquire against a held lock. The holder is
// named so the caller can decide to proceed read-only.
type ConflictError struct {
	HeldBy     uuid.UUID
	HeldByName string
	HeldAt     time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("study locked by %s", e.HeldByName)
}

// ErrNotLockHolder is returned when a release is attempted by an operator
// that neither holds the lock nor has override capability.
var ErrNotLockHolder = errors.New("not lock holder")
