package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jwalitptl/dental-api/internal/model"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

var dialect = goqu.Dialect("sqlite3")

// recordPtr constrains PT to a pointer to T that implements model.Record.
type recordPtr[T any] interface {
	*T
	model.Record
}

// baseRepository holds the query helpers shared by every table.
type baseRepository[T any, PT recordPtr[T]] struct {
	db      *sqlx.DB
	table   string
	metrics *metrics.Metrics
	// columns maps a record to its row values, id included.
	columns func(*T) goqu.Record
}

func (r *baseRepository[T, PT]) observe(op string, start time.Time, errp *error) {
	r.metrics.ObserveStorage(BackendName, r.table, op, start, errp)
}

func (r *baseRepository[T, PT]) selectWhere(ctx context.Context, op string, where ...goqu.Expression) (items []*T, err error) {
	defer r.observe(op, time.Now(), &err)

	query, args, err := dialect.From(r.table).Where(where...).Order(goqu.I("rowid").Asc()).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", r.table, err)
	}

	items = []*T{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &items, query, args...); err != nil {
		return nil, wrapErr(fmt.Errorf("failed to list %s: %w", r.table, err))
	}
	return items, nil
}

func (r *baseRepository[T, PT]) getWhere(ctx context.Context, op string, where ...goqu.Expression) (item *T, err error) {
	defer r.observe(op, time.Now(), &err)

	query, args, err := dialect.From(r.table).Where(where...).Limit(1).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", r.table, err)
	}

	var out T
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &out, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(fmt.Errorf("failed to get %s: %w", r.table, err))
	}
	return &out, nil
}

func (r *baseRepository[T, PT]) List(ctx context.Context, clinicID string) ([]*T, error) {
	if clinicID == "" {
		return r.selectWhere(ctx, "list")
	}
	return r.selectWhere(ctx, "list", goqu.C("clinic_id").Eq(clinicID))
}

func (r *baseRepository[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	return r.getWhere(ctx, "get", goqu.C("id").Eq(id))
}

// Upsert updates the row with the record's id or inserts a new one.
func (r *baseRepository[T, PT]) Upsert(ctx context.Context, record *T) (err error) {
	defer r.observe("upsert", time.Now(), &err)

	rec := PT(record)
	if err := rec.Validate(); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	values := r.columns(record)
	ext := executor(ctx, r.db)

	update, updArgs, err := dialect.Update(r.table).Set(values).Where(goqu.C("id").Eq(rec.GetID())).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build %s update: %w", r.table, err)
	}
	res, err := ext.ExecContext(ctx, update, updArgs...)
	if err != nil {
		return wrapErr(fmt.Errorf("failed to update %s: %w", r.table, err))
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	insert, insArgs, err := dialect.Insert(r.table).Rows(values).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build %s insert: %w", r.table, err)
	}
	if _, err := ext.ExecContext(ctx, insert, insArgs...); err != nil {
		return wrapErr(fmt.Errorf("failed to insert %s: %w", r.table, err))
	}
	return nil
}

func (r *baseRepository[T, PT]) deleteWhere(ctx context.Context, where ...goqu.Expression) (deleted bool, err error) {
	defer r.observe("delete", time.Now(), &err)

	query, args, err := dialect.Delete(r.table).Where(where...).Prepared(true).ToSQL()
	if err != nil {
		return false, fmt.Errorf("failed to build %s delete: %w", r.table, err)
	}
	res, err := executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return false, wrapErr(fmt.Errorf("failed to delete from %s: %w", r.table, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr(err)
	}
	return n > 0, nil
}

func (r *baseRepository[T, PT]) Delete(ctx context.Context, id, clinicID string) (bool, error) {
	return r.deleteWhere(ctx, goqu.C("id").Eq(id), goqu.C("clinic_id").Eq(clinicID))
}

// wrapErr maps constraint violations to client errors and everything else to
// the generic storage error.
func wrapErr(err error) error {
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return apperrors.BadRequest("record already exists", err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return apperrors.NotFound("referenced record", err)
		case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return apperrors.BadRequest("invalid record", err)
		}
	}
	return apperrors.Storage(err)
}

func nullable(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
