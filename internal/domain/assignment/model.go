package assignment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Assignment maps to the study_assignment table. Rows are append-only: a
// reassignment writes a new cohort, it never rewrites history. An
// unassignment round is a single marker row with RoleUnassigned and a nil
// AssignedTo, so the latest-cohort rule resolves to an empty current set.
type Assignment struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	StudyID    uuid.UUID  `db:"study_id" json:"study_id"`
	AssignedTo *uuid.UUID `db:"assigned_to" json:"assigned_to,omitempty"`
	AssignedBy uuid.UUID  `db:"assigned_by" json:"assigned_by"`
	Role       string     `db:"role" json:"role"`
	Priority   *string    `db:"priority" json:"priority,omitempty"`
	Notes      *string    `db:"notes" json:"notes,omitempty"`
	AssignedAt time.Time  `db:"assigned_at" json:"assigned_at"`
}

const (
	RoleRadiologist = "radiologist"
	RoleVerifier    = "verifier"
	RoleUnassigned  = "unassigned"
)

// Delta is the reconciliation outcome: the minimal add/remove difference
// between the current cohort and the desired set.
type Delta struct {
	Added     []uuid.UUID `json:"added"`
	Removed   []uuid.UUID `json:"removed"`
	Unchanged []uuid.UUID `json:"unchanged"`
}

// Result reports one reconciliation round. NoOp rounds write nothing: the
// desired set matched the current cohort exactly.
type Result struct {
	Delta      Delta     `json:"delta"`
	NoOp       bool      `json:"no_op"`
	AssignedAt time.Time `json:"assigned_at,omitempty"`
}

var ErrInvalidRole = errors.New("assignment role must be radiologist or verifier")
