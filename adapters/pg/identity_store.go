package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/layer-3/creator-ledger/adapters/pg/dao"
	"github.com/layer-3/creator-ledger/core"
	"github.com/layer-3/creator-ledger/ports"
)

const uniqueViolation = "23505"

// IdentityStore is the postgres implementation of ports.IdentityStore
type IdentityStore struct {
	db *bun.DB
}

// NewIdentityStore creates a new postgres identity store
func NewIdentityStore(db *bun.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

var _ ports.IdentityStore = (*IdentityStore)(nil)

func (s *IdentityStore) GetIdentityByWallet(ctx context.Context, walletAddress string) (*core.Identity, error) {
	return s.get(ctx, "wallet_address = ?", walletAddress)
}

func (s *IdentityStore) GetIdentity(ctx context.Context, id string) (*core.Identity, error) {
	return s.get(ctx, "id = ?", id)
}

func (s *IdentityStore) get(ctx context.Context, where string, arg any) (*core.Identity, error) {
	d := new(dao.IdentityDao)
	err := s.db.NewSelect().Model(d).Where(where, arg).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return d.ToIdentity(), nil
}

func (s *IdentityStore) CreateIdentity(ctx context.Context, identity *core.Identity) error {
	_, err := s.db.NewInsert().
		Model(dao.FromIdentity(identity)).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrIdentityExists
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}
	return nil
}

func (s *IdentityStore) TouchSignIn(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*dao.IdentityDao)(nil)).
		Set("last_sign_in_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update identity: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ports.ErrIdentityNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}
