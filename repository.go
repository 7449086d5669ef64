package wodstrat

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ModelHandlers tell the generic repository how to build and identify records
type ModelHandlers[T any] struct {
	NewRecord func() T
	GetID     func(T) int64
	SetID     func(T, int64)
}

// Repository is the generic data access contract shared by every model.
// Tx variants run against the given bun.IDB so callers can compose them
// inside RunInTx.
type Repository[T any] interface {
	DB() *bun.DB

	GetByID(ctx context.Context, id int64) (T, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (T, error)
	List(ctx context.Context, limit, offset int) ([]T, int, error)
	ListTx(ctx context.Context, tx bun.IDB, limit, offset int) ([]T, int, error)
	Create(ctx context.Context, record T) (T, error)
	CreateTx(ctx context.Context, tx bun.IDB, record T) (T, error)
	Update(ctx context.Context, record T) (T, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record T) (T, error)
	Delete(ctx context.Context, id int64) error
	DeleteTx(ctx context.Context, tx bun.IDB, id int64) error
}

type repo[T any] struct {
	db       *bun.DB
	handlers ModelHandlers[T]
}

// NewRepository returns a bun backed Repository
func NewRepository[T any](db *bun.DB, handlers ModelHandlers[T]) Repository[T] {
	return &repo[T]{db: db, handlers: handlers}
}

func (r *repo[T]) DB() *bun.DB {
	return r.db
}

func (r *repo[T]) GetByID(ctx context.Context, id int64) (T, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

func (r *repo[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (T, error) {
	record := r.handlers.NewRecord()

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		var zero T
		return zero, mapRepoError(err, map[string]any{"id": id})
	}

	return record, nil
}

func (r *repo[T]) List(ctx context.Context, limit, offset int) ([]T, int, error) {
	return r.ListTx(ctx, r.db, limit, offset)
}

func (r *repo[T]) ListTx(ctx context.Context, tx bun.IDB, limit, offset int) ([]T, int, error) {
	records := []T{}

	q := tx.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.id ASC")

	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	count, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, mapRepoError(err, nil)
	}

	return records, count, nil
}

func (r *repo[T]) Create(ctx context.Context, record T) (T, error) {
	return r.CreateTx(ctx, r.db, record)
}

func (r *repo[T]) CreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	if _, err := tx.NewInsert().Model(record).Returning("*").Exec(ctx); err != nil {
		var zero T
		return zero, mapRepoError(err, nil)
	}
	return record, nil
}

func (r *repo[T]) Update(ctx context.Context, record T) (T, error) {
	return r.UpdateTx(ctx, r.db, record)
}

func (r *repo[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	res, err := tx.NewUpdate().
		Model(record).
		WherePK().
		ExcludeColumn("created_at").
		Exec(ctx)
	if err != nil {
		var zero T
		return zero, mapRepoError(err, nil)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var zero T
		return zero, cloneErr(ErrRecordNotFound).WithMetadata(map[string]any{
			"id": r.handlers.GetID(record),
		})
	}

	return record, nil
}

func (r *repo[T]) Delete(ctx context.Context, id int64) error {
	return r.DeleteTx(ctx, r.db, id)
}

func (r *repo[T]) DeleteTx(ctx context.Context, tx bun.IDB, id int64) error {
	record := r.handlers.NewRecord()
	r.handlers.SetID(record, id)

	res, err := tx.NewDelete().Model(record).WherePK().Exec(ctx)
	if err != nil {
		return mapRepoError(err, map[string]any{"id": id})
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return cloneErr(ErrRecordNotFound).WithMetadata(map[string]any{"id": id})
	}

	return nil
}

func mapRepoError(err error, metadata map[string]any) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		notFound := cloneErr(ErrRecordNotFound)
		if len(metadata) > 0 {
			notFound = notFound.WithMetadata(metadata)
		}
		return notFound
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, "repository operation failed")
}

// isUniqueViolation covers sqlite and postgres driver messages
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint failed: unique")
}
