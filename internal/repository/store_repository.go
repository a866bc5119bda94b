package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/gyuwonk/chehum/internal/model"
)

type storeImpl struct {
}

// NewStore creates a store repository
func NewStore() Store {
	return &storeImpl{}
}

const storeColumns = `id, owner_id, name, address, phone, category,
	lat, lng, open_time, close_time, status, created_at, updated_at`

// Insert creates a new store and sets store.ID
func (s *storeImpl) Insert(ctx context.Context, store *model.Store) error {
	query := `
INSERT INTO stores (
	owner_id, name, address, phone, category, lat, lng,
	open_time, close_time, status, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id
`
	err := GetTx(ctx).GetContext(ctx, &store.ID, query,
		store.OwnerID, store.Name, store.Address, store.Phone, store.Category,
		store.Lat, store.Lng, store.OpenTime, store.CloseTime, store.Status,
		store.CreatedAt, store.UpdatedAt)
	return wrapError("insert store", err)
}

// Get retrieves a store by ID
func (s *storeImpl) Get(ctx context.Context, id int64) (model.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE id = $1`

	var store model.Store
	err := GetReadonly(ctx).GetContext(ctx, &store, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Store{}, model.ErrStoreNotFound
	}
	return store, wrapError("get store", err)
}

// GetMulti retrieves several stores keyed by ID
func (s *storeImpl) GetMulti(ctx context.Context, ids []int64) (map[int64]model.Store, error) {
	stores := make(map[int64]model.Store, len(ids))
	if len(ids) == 0 {
		return stores, nil
	}

	query := `SELECT ` + storeColumns + ` FROM stores WHERE id = ANY($1)`

	var rows []model.Store
	err := GetReadonly(ctx).SelectContext(ctx, &rows, query, pq.Array(ids))
	if err != nil {
		return nil, wrapError("get stores", err)
	}
	for _, store := range rows {
		stores[store.ID] = store
	}
	return stores, nil
}

// ListByOwner lists an owner's stores in insertion order
func (s *storeImpl) ListByOwner(ctx context.Context, ownerID string) ([]model.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE owner_id = $1 ORDER BY id ASC`

	var stores []model.Store
	err := GetReadonly(ctx).SelectContext(ctx, &stores, query, ownerID)
	return stores, wrapError("list stores by owner", err)
}
