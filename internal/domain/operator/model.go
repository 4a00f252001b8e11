package operator

import (
	"time"

	"github.com/google/uuid"
)

// Operator maps to the operator table. The role list is the source of
// truth; the capability set is derived, never stored.
type Operator struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Email     *string    `db:"email" json:"email,omitempty"`
	Roles     []string   `db:"roles" json:"roles"`
	ParentID  *uuid.UUID `db:"parent_id" json:"parent_id,omitempty"`
	Active    bool       `db:"active" json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Capabilities returns the operator's effective capability set.
func (o *Operator) Capabilities() CapabilitySet {
	return Capabilities(o.Roles)
}
