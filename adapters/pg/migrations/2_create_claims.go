package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/adapters/pg/dao"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		zap.L().Info("creating claims table...")
		if err := CreateSchema(ctx, db, &dao.ClaimDao{}); err != nil {
			return err
		}
		return CreateModelIndexes(ctx, db, &dao.ClaimDao{}, "wallet_address", "content_hash")
	}, func(ctx context.Context, db *bun.DB) error {
		zap.L().Info("dropping claims table...")
		return DropTables(ctx, db, &dao.ClaimDao{})
	})
}
