package assignment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/risflow/risflow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type assignmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssignmentRepoPG(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepoPG{pool: pool}
}

func (r *assignmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const assignmentCols = `id, study_id, assigned_to, assigned_by, role, priority, notes, assigned_at`

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.StudyID, &a.AssignedTo, &a.AssignedBy, &a.Role,
		&a.Priority, &a.Notes, &a.AssignedAt)
	return &a, err
}

func (r *assignmentRepoPG) CurrentCohort(ctx context.Context, studyID uuid.UUID) ([]*Assignment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+assignmentCols+` FROM study_assignment
		WHERE study_id = $1
		  AND assigned_at = (SELECT MAX(assigned_at) FROM study_assignment WHERE study_id = $1)
		ORDER BY id`,
		studyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *assignmentRepoPG) InsertRound(ctx context.Context, entries []*Assignment) error {
	if len(entries) == 0 {
		return nil
	}
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		tx := db.TxFromContext(ctx)
		for _, a := range entries {
			if a.ID == uuid.Nil {
				a.ID = uuid.New()
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO study_assignment (id, study_id, assigned_to, assigned_by, role, priority, notes, assigned_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				a.ID, a.StudyID, a.AssignedTo, a.AssignedBy, a.Role, a.Priority, a.Notes, a.AssignedAt); err != nil {
				return fmt.Errorf("insert assignment round: %w", err)
			}
		}
		return nil
	})
}

func (r *assignmentRepoPG) ListByStudy(ctx context.Context, studyID uuid.UUID, limit, offset int) ([]*Assignment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM study_assignment WHERE study_id = $1`, studyID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+assignmentCols+` FROM study_assignment
		WHERE study_id = $1 ORDER BY assigned_at, id LIMIT $2 OFFSET $3`,
		studyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
