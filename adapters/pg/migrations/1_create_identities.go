package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/adapters/pg/dao"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		zap.L().Info("creating identities table...")
		return CreateSchema(ctx, db, &dao.IdentityDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		zap.L().Info("dropping identities table...")
		return DropTables(ctx, db, &dao.IdentityDao{})
	})
}
