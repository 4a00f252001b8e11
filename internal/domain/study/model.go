package study

import (
	"time"

	"github.com/google/uuid"
)

// Study maps to the study table: one imaging study moving through the
// assignment → reporting → verification pipeline. The coordinator mutates
// only the lock, priority and workflow sub-state; studies themselves are
// created by the upload pipeline.
type Study struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	AccessionNumber string     `db:"accession_number" json:"accession_number"`
	PatientName     string     `db:"patient_name" json:"patient_name"`
	Modality        *string    `db:"modality" json:"modality,omitempty"`
	BodyPart        *string    `db:"body_part" json:"body_part,omitempty"`
	Description     *string    `db:"description" json:"description,omitempty"`
	Priority        Priority   `db:"priority" json:"priority"`
	WorkflowStatus  string     `db:"workflow_status" json:"workflow_status"`
	IsLocked        bool       `db:"is_locked" json:"is_locked"`
	LockedBy        *uuid.UUID `db:"locked_by" json:"locked_by,omitempty"`
	LockedAt        *time.Time `db:"locked_at" json:"locked_at,omitempty"`
	ReceivedAt      time.Time  `db:"received_at" json:"received_at"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
