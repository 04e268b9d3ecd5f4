package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/countrycache/countrycache/countrycache/config"
	"github.com/countrycache/countrycache/internal/domain/countries"
)

// BaseRepository carries the bun handle and the per-query deadline shared by repositories.
type BaseRepository struct {
	db             *bun.DB
	defaultTimeout time.Duration
}

func NewBaseRepository(db *bun.DB) *BaseRepository {
	return &BaseRepository{
		db:             db,
		defaultTimeout: config.DefaultQueryTimeout,
	}
}

// RepositoryError records which store operation failed. Callers match the cause with errors.Is.
type RepositoryError struct {
	Operation string
	Entity    string
	Err       error
}

func (re *RepositoryError) Error() string {
	return fmt.Sprintf("%s %s: %v", re.Entity, re.Operation, re.Err)
}

func (re *RepositoryError) Unwrap() error {
	return re.Err
}

func (br *BaseRepository) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, br.defaultTimeout)
}

// HandleError maps driver errors onto domain errors. sql.ErrNoRows becomes countries.ErrNotFound.
func (br *BaseRepository) HandleError(operation, entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return countries.ErrNotFound
	}
	return &RepositoryError{
		Operation: operation,
		Entity:    entity,
		Err:       err,
	}
}

// Transaction runs fn in a read-committed transaction bounded by the refresh commit timeout.
// Any error returned by fn rolls the whole unit back.
func (br *BaseRepository) Transaction(ctx context.Context, fn func(context.Context, bun.Tx) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, config.RefreshCommitTimeout)
	defer cancel()

	return br.db.RunInTx(timeoutCtx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, fn)
}

func IsRepositoryError(err error) bool {
	var re *RepositoryError
	return errors.As(err, &re)
}
