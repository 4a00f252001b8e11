package operator

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

type operatorRepoPG struct{ pool *pgxpool.Pool }

func NewOperatorRepoPG(pool *pgxpool.Pool) OperatorRepository {
	return &operatorRepoPG{pool: pool}
}

func (r *operatorRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const operatorCols = `id, name, email, roles, parent_id, active, created_at, updated_at`

func scanOperator(row pgx.Row) (*Operator, error) {
	var o Operator
	err := row.Scan(&o.ID, &o.Name, &o.Email, &o.Roles, &o.ParentID, &o.Active,
		&o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *operatorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Operator, error) {
	return scanOperator(r.conn(ctx).QueryRow(ctx,
		`SELECT `+operatorCols+` FROM operator WHERE id = $1`, id))
}

func (r *operatorRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Operator, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Role != "" {
		n++
		where += fmt.Sprintf(` AND $%d = ANY(roles)`, n)
		args = append(args, filter.Role)
	}
	if filter.ParentID != nil {
		n++
		where += fmt.Sprintf(` AND parent_id = $%d`, n)
		args = append(args, *filter.ParentID)
	}
	if filter.Active != nil {
		n++
		where += fmt.Sprintf(` AND active = $%d`, n)
		args = append(args, *filter.Active)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM operator `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM operator %s ORDER BY name LIMIT $%d OFFSET $%d`,
			operatorCols, where, n+1, n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Operator
	for rows.Next() {
		o, err := scanOperator(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}
