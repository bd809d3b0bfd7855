package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("repository: duplicate record")

const pqUniqueViolation = "23505"

// runner is satisfied by both *sqlx.DB and *sqlx.Tx.
type runner interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type pgQueries struct {
	db runner
}

type postgresGateway struct {
	*pgQueries
	db *sqlx.DB
}

func NewPostgresGateway(db *sqlx.DB) Gateway {
	return &postgresGateway{
		pgQueries: &pgQueries{db: db},
		db:        db,
	}
}

func (g *postgresGateway) WithTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&pgQueries{db: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (g *postgresGateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ErrDuplicate
	}
	return err
}
