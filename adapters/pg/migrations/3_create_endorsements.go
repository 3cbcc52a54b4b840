package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/adapters/pg/dao"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		zap.L().Info("creating endorsements table...")
		if err := CreateSchema(ctx, db, &dao.EndorsementDao{}); err != nil {
			return err
		}
		return CreateModelIndexes(ctx, db, &dao.EndorsementDao{}, "claim_id")
	}, func(ctx context.Context, db *bun.DB) error {
		zap.L().Info("dropping endorsements table...")
		return DropTables(ctx, db, &dao.EndorsementDao{})
	})
}
