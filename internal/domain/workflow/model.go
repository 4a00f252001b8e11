package workflow

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry maps to the study_status_history table. Rows are
// append-only; a case's timeline is the ordered list of its entries.
type HistoryEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	StudyID   uuid.UUID `db:"study_id" json:"study_id"`
	Status    Status    `db:"status" json:"status"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	ChangedBy uuid.UUID `db:"changed_by" json:"changed_by"`
	ChangedAt time.Time `db:"changed_at" json:"changed_at"`
}

var ErrReasonRequired = errors.New("a rejection reason is required")
