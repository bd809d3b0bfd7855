package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpq"
)

const connectAttempts = 5

// PostgresDB is the connection pool behind the Postgres gateway.
type PostgresDB struct {
	*sqlx.DB
}

// NewPostgres opens a pool through the New Relic instrumented lib/pq driver
// and waits for the server to answer, retrying with backoff while it starts.
func NewPostgres(databaseURL string, maxConns, maxIdleConns int) (*PostgresDB, error) {
	db, err := sqlx.Open("nrpostgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	backoff := 500 * time.Millisecond
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return &PostgresDB{DB: db}, nil
		}
		if attempt == connectAttempts {
			db.Close()
			return nil, fmt.Errorf("ping postgres after %d attempts: %w", attempt, err)
		}
		time.Sleep(backoff)
		backoff *= 2
	}
}
