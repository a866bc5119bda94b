package service

import (
	"context"

	"github.com/gyuwonk/chehum/internal/clock"
	"github.com/gyuwonk/chehum/internal/model"
	"github.com/gyuwonk/chehum/internal/repository"
)

// StoreService manages the owner's store registry.
type StoreService struct {
	provider repository.Provider
	stores   repository.Store
	clock    clock.Clock
}

// NewStoreService creates a new StoreService instance
func NewStoreService(provider repository.Provider, stores repository.Store, clk clock.Clock) *StoreService {
	return &StoreService{
		provider: provider,
		stores:   stores,
		clock:    clk,
	}
}

// StoreInput carries the owner-editable store fields.
type StoreInput struct {
	Name      string              `json:"name"`
	Address   string              `json:"address"`
	Phone     string              `json:"phone"`
	Category  model.StoreCategory `json:"category"`
	Lat       float64             `json:"lat"`
	Lng       float64             `json:"lng"`
	OpenTime  string              `json:"open_time"`
	CloseTime string              `json:"close_time"`
}

// Create registers a new store for the owner.
func (s *StoreService) Create(ctx context.Context, owner model.Principal, in StoreInput) (model.Store, error) {
	if in.Name == "" || in.Address == "" || in.Category == "" {
		return model.Store{}, model.ErrInvalidArgument
	}

	var store model.Store
	err := s.provider.Transact(ctx, func(ctx context.Context) error {
		now := s.clock.Now()
		store = model.Store{
			OwnerID:   owner.ID,
			Name:      in.Name,
			Address:   in.Address,
			Phone:     in.Phone,
			Category:  in.Category,
			Lat:       in.Lat,
			Lng:       in.Lng,
			OpenTime:  in.OpenTime,
			CloseTime: in.CloseTime,
			Status:    model.StoreStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.stores.Insert(ctx, &store)
	})
	return store, err
}

// Get returns a store by ID.
func (s *StoreService) Get(ctx context.Context, storeID int64) (model.Store, error) {
	return s.stores.Get(s.provider.Readonly(ctx), storeID)
}

// ListByOwner returns the owner's stores.
func (s *StoreService) ListByOwner(ctx context.Context, owner model.Principal) ([]model.Store, error) {
	return s.stores.ListByOwner(s.provider.Readonly(ctx), owner.ID)
}
