// Package pg implements the identity and claim stores on PostgreSQL using bun.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

// Connect opens a bun database from a postgres DSN and pings it
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*bun.DB, error) {
	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithApplicationName("creator-ledger"),
		pgdriver.WithTimeout(5*time.Second),
	)

	sqldb := sql.OpenDB(connector)

	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() // Close connection to prevent resource leak
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("connected to database", zap.String("database", connector.Config().Database))
	return db, nil
}
