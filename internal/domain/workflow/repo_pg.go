package workflow

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

type workflowRepoPG struct{ pool *pgxpool.Pool }

func NewWorkflowRepoPG(pool *pgxpool.Pool) WorkflowRepository {
	return &workflowRepoPG{pool: pool}
}

func (r *workflowRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const historyCols = `id, study_id, status, reason, changed_by, changed_at`

func scanEntry(row pgx.Row) (*HistoryEntry, error) {
	var e HistoryEntry
	err := row.Scan(&e.ID, &e.StudyID, &e.Status, &e.Reason, &e.ChangedBy, &e.ChangedAt)
	return &e, err
}

func (r *workflowRepoPG) CurrentStatus(ctx context.Context, studyID uuid.UUID) (Status, error) {
	var s Status
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT workflow_status FROM study WHERE id = $1`, studyID).Scan(&s)
	if err != nil {
		return "", err
	}
	return s, nil
}

func (r *workflowRepoPG) RecordTransition(ctx context.Context, entry *HistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		tx := db.TxFromContext(ctx)
		if _, err := tx.Exec(ctx, `
			INSERT INTO study_status_history (id, study_id, status, reason, changed_by, changed_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			entry.ID, entry.StudyID, entry.Status, entry.Reason, entry.ChangedBy, entry.ChangedAt); err != nil {
			return fmt.Errorf("insert status history: %w", err)
		}
		tag, err := tx.Exec(ctx, `
			UPDATE study SET workflow_status = $1, updated_at = NOW() WHERE id = $2`,
			entry.Status, entry.StudyID)
		if err != nil {
			return fmt.Errorf("update workflow status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}

func (r *workflowRepoPG) ListHistory(ctx context.Context, studyID uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM study_status_history WHERE study_id = $1`, studyID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+historyCols+` FROM study_status_history
		WHERE study_id = $1 ORDER BY changed_at, id LIMIT $2 OFFSET $3`,
		studyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
