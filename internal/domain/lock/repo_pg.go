package lock

import (
	"context"

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

type lockRepoPG struct{ pool *pgxpool.Pool }

func NewLockRepoPG(pool *pgxpool.Pool) LockRepository {
	return &lockRepoPG{pool: pool}
}

func (r *lockRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *lockRepoPG) TryAcquire(ctx context.Context, studyID, operatorID uuid.UUID) (bool, error) {
	// Conditional update: the WHERE clause is the compare half of the
	// compare-and-swap, so two concurrent acquires cannot both succeed.
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE study SET is_locked = TRUE, locked_by = $2, locked_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_locked = FALSE`,
		studyID, operatorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *lockRepoPG) Seize(ctx context.Context, studyID, operatorID uuid.UUID) (*uuid.UUID, error) {
	var displaced *uuid.UUID
	err := db.InTx(ctx, r.pool, func(ctx context.Context) error {
		tx := db.TxFromContext(ctx)

		var isLocked bool
		var holder *uuid.UUID
		if err := tx.QueryRow(ctx,
			`SELECT is_locked, locked_by FROM study WHERE id = $1 FOR UPDATE`,
			studyID).Scan(&isLocked, &holder); err != nil {
			return err
		}
		// Re-seizing one's own lock displaces nobody.
		if isLocked && holder != nil && *holder != operatorID {
			displaced = holder
		}

		_, err := tx.Exec(ctx, `
			UPDATE study SET is_locked = TRUE, locked_by = $2, locked_at = NOW(), updated_at = NOW()
			WHERE id = $1`,
			studyID, operatorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return displaced, nil
}

func (r *lockRepoPG) ReleaseIf(ctx context.Context, studyID, holderID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE study SET is_locked = FALSE, locked_by = NULL, locked_at = NULL, updated_at = NOW()
		WHERE id = $1 AND is_locked = TRUE AND locked_by = $2`,
		studyID, holderID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *lockRepoPG) ForceRelease(ctx context.Context, studyID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE study SET is_locked = FALSE, locked_by = NULL, locked_at = NULL, updated_at = NOW()
		WHERE id = $1`,
		studyID)
	return err
}

func (r *lockRepoPG) Get(ctx context.Context, studyID uuid.UUID) (*State, error) {
	s := &State{StudyID: studyID}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT st.is_locked, st.locked_by, st.locked_at, COALESCE(op.name, '')
		FROM study st LEFT JOIN operator op ON op.id = st.locked_by
		WHERE st.id = $1`,
		studyID).Scan(&s.IsLocked, &s.LockedBy, &s.LockedAt, &s.LockedByName)
	if err != nil {
		return nil, err
	}
	return s, nil
}
