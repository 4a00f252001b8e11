package study

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

type studyRepoPG struct{ pool *pgxpool.Pool }

func NewStudyRepoPG(pool *pgxpool.Pool) StudyRepository {
	return &studyRepoPG{pool: pool}
}

func (r *studyRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const studyCols = `id, accession_number, patient_name, modality, body_part, description,
	priority, workflow_status, is_locked, locked_by, locked_at,
	received_at, created_at, updated_at`

// priorityOrder mirrors the priorityWeights table so LIMIT/OFFSET slices a
// globally urgency-ordered worklist. Unknown tags weigh the same as NORMAL.
const priorityOrder = `CASE priority
	WHEN 'EMERGENCY' THEN 0
	WHEN 'PRIORITY' THEN 1
	WHEN 'MLC' THEN 2
	WHEN 'NORMAL' THEN 3
	WHEN 'STAT' THEN 4
	ELSE 3
END`

func scanStudy(row pgx.Row) (*Study, error) {
	var s Study
	err := row.Scan(&s.ID, &s.AccessionNumber, &s.PatientName, &s.Modality, &s.BodyPart,
		&s.Description, &s.Priority, &s.WorkflowStatus, &s.IsLocked, &s.LockedBy,
		&s.LockedAt, &s.ReceivedAt, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *studyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Study, error) {
	return scanStudy(r.conn(ctx).QueryRow(ctx,
		`SELECT `+studyCols+` FROM study WHERE id = $1`, id))
}

func (r *studyRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Study, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != "" {
		n++
		where += fmt.Sprintf(` AND workflow_status = $%d`, n)
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		n++
		where += fmt.Sprintf(` AND priority = $%d`, n)
		args = append(args, filter.Priority)
	}
	if filter.Modality != "" {
		n++
		where += fmt.Sprintf(` AND modality = $%d`, n)
		args = append(args, filter.Modality)
	}
	if filter.AssignedTo != nil {
		// Membership in the latest assignment cohort, mirroring the
		// reconciler's current-assignee derivation.
		n++
		where += fmt.Sprintf(` AND id IN (
			SELECT sa.study_id FROM study_assignment sa
			WHERE sa.assigned_to = $%d
			  AND sa.assigned_at = (
				SELECT MAX(assigned_at) FROM study_assignment
				WHERE study_id = sa.study_id
			  )
		)`, n)
		args = append(args, *filter.AssignedTo)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM study `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM study %s ORDER BY %s, received_at LIMIT $%d OFFSET $%d`,
			studyCols, where, priorityOrder, n+1, n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Study
	for rows.Next() {
		s, err := scanStudy(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
