package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gyuwonk/chehum/internal/model"
)

// Readonly for wrapping sqlx functionalities
type Readonly interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Transaction for wrapping sqlx functionalities
type Transaction interface {
	Readonly

	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

var _ Transaction = &sqlx.DB{}
var _ Transaction = &sqlx.Tx{}

// Provider hands out transactional and readonly access to the store.
// Transact runs fn inside a single transaction: read state, validate,
// write, all in one commit. Reservation and scan rely on this.
type Provider interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
	Readonly(ctx context.Context) context.Context
}

// Campaign persists campaigns.
type Campaign interface {
	Insert(ctx context.Context, campaign *model.Campaign) error
	Update(ctx context.Context, campaign model.Campaign) error
	Get(ctx context.Context, id int64) (model.Campaign, error)
	// Lock fetches the campaign with a row lock. Transaction only.
	Lock(ctx context.Context, id int64) (model.Campaign, error)
	ListByStatus(ctx context.Context, status model.CampaignStatus) ([]model.Campaign, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Campaign, error)
}

// Application persists campaign applications.
type Application interface {
	Insert(ctx context.Context, app *model.Application) error
	Get(ctx context.Context, id int64) (model.Application, error)
	// Lock fetches the application with a row lock. Transaction only.
	Lock(ctx context.Context, id int64) (model.Application, error)
	FindByCampaignAndUser(ctx context.Context, campaignID int64, userID string) (model.Application, error)
	// CountActive counts applications holding a quota slot
	// (status approved or completed).
	CountActive(ctx context.Context, campaignID int64) (int64, error)
	CountActiveForCampaigns(ctx context.Context, campaignIDs []int64) (map[int64]int64, error)
	UpdateStatus(ctx context.Context, id int64, status model.ApplicationStatus, updatedAt time.Time) error
	ListByCampaign(ctx context.Context, campaignID int64) ([]model.Application, error)
	ListByUser(ctx context.Context, userID string) ([]model.Application, error)
}

// Token persists QR visit verification tokens.
type Token interface {
	Insert(ctx context.Context, token *model.QRToken) error
	// Latest returns the most recently issued token for an application.
	Latest(ctx context.Context, applicationID int64) (model.QRToken, error)
	// LockByCode fetches the token by its opaque code with a row lock.
	// Transaction only.
	LockByCode(ctx context.Context, code string) (model.QRToken, error)
	MarkUsed(ctx context.Context, id int64, usedAt time.Time, scannedBy string) error
}

// Store persists stores.
type Store interface {
	Insert(ctx context.Context, store *model.Store) error
	Get(ctx context.Context, id int64) (model.Store, error)
	GetMulti(ctx context.Context, ids []int64) (map[int64]model.Store, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Store, error)
}

// Review persists visit reviews.
type Review interface {
	Insert(ctx context.Context, review *model.Review) error
	FindByApplication(ctx context.Context, applicationID int64) (model.Review, error)
	ListByStore(ctx context.Context, storeID int64) ([]model.Review, error)
}

type providerImpl struct {
	db *sqlx.DB
}

// NewProvider creates a Provider backed by a sqlx database handle.
func NewProvider(db *sqlx.DB) Provider {
	return &providerImpl{db: db}
}

// Transact ...
func (p *providerImpl) Transact(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapError("begin transaction", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ctx = context.WithValue(ctx, ctxTxKey, ctxTxValue{
		tx: tx,
	})

	err = fn(ctx)
	if err != nil {
		return err
	}

	err = wrapError("commit transaction", tx.Commit())
	return err
}

// Readonly ...
func (p *providerImpl) Readonly(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxReadonlyKey, ctxReadonlyValue{
		db: p.db,
	})
}
