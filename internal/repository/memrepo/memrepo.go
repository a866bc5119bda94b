// Package memrepo is an in-memory implementation of the repository
// interfaces. A single mutex held for the whole of Transact gives the
// same atomicity the SQL provider gets from row locks, which makes the
// concurrent reservation and scan tests meaningful without a database.
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gyuwonk/chehum/internal/model"
	"github.com/gyuwonk/chehum/internal/repository"
)

type ctxTxKeyType struct{}

var ctxTxKey = ctxTxKeyType{}

// DB is the shared in-memory state behind every repository.
type DB struct {
	mu sync.Mutex

	campaigns    map[int64]model.Campaign
	applications map[int64]model.Application
	tokens       map[int64]model.QRToken
	stores       map[int64]model.Store
	reviews      map[int64]model.Review

	campaignSeq    int64
	applicationSeq int64
	tokenSeq       int64
	storeSeq       int64
	reviewSeq      int64
}

// New creates an empty in-memory database.
func New() *DB {
	return &DB{
		campaigns:    map[int64]model.Campaign{},
		applications: map[int64]model.Application{},
		tokens:       map[int64]model.QRToken{},
		stores:       map[int64]model.Store{},
		reviews:      map[int64]model.Review{},
	}
}

var _ repository.Provider = &DB{}

// Transact runs fn with the database lock held.
func (d *DB) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(context.WithValue(ctx, ctxTxKey, true))
}

// Readonly ...
func (d *DB) Readonly(ctx context.Context) context.Context {
	return ctx
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(ctxTxKey).(bool)
	return v
}

// lock acquires the database lock unless the context is already inside
// a transaction holding it.
func (d *DB) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	d.mu.Lock()
	return d.mu.Unlock
}

func requireTx(ctx context.Context) {
	if !inTx(ctx) {
		panic("Not found transaction")
	}
}

// Campaigns returns the campaign repository view.
func (d *DB) Campaigns() repository.Campaign { return campaignRepo{d} }

// Applications returns the application repository view.
func (d *DB) Applications() repository.Application { return applicationRepo{d} }

// Tokens returns the QR token repository view.
func (d *DB) Tokens() repository.Token { return tokenRepo{d} }

// Stores returns the store repository view.
func (d *DB) Stores() repository.Store { return storeRepo{d} }

// Reviews returns the review repository view.
func (d *DB) Reviews() repository.Review { return reviewRepo{d} }

type campaignRepo struct{ db *DB }

func (r campaignRepo) Insert(ctx context.Context, campaign *model.Campaign) error {
	requireTx(ctx)
	r.db.campaignSeq++
	campaign.ID = r.db.campaignSeq
	r.db.campaigns[campaign.ID] = *campaign
	return nil
}

func (r campaignRepo) Update(ctx context.Context, campaign model.Campaign) error {
	requireTx(ctx)
	if _, ok := r.db.campaigns[campaign.ID]; !ok {
		return model.ErrCampaignNotFound
	}
	r.db.campaigns[campaign.ID] = campaign
	return nil
}

func (r campaignRepo) Get(ctx context.Context, id int64) (model.Campaign, error) {
	defer r.db.lock(ctx)()
	campaign, ok := r.db.campaigns[id]
	if !ok {
		return model.Campaign{}, model.ErrCampaignNotFound
	}
	return campaign, nil
}

func (r campaignRepo) Lock(ctx context.Context, id int64) (model.Campaign, error) {
	requireTx(ctx)
	campaign, ok := r.db.campaigns[id]
	if !ok {
		return model.Campaign{}, model.ErrCampaignNotFound
	}
	return campaign, nil
}

func (r campaignRepo) ListByStatus(ctx context.Context, status model.CampaignStatus) ([]model.Campaign, error) {
	defer r.db.lock(ctx)()
	var campaigns []model.Campaign
	for _, c := range r.db.campaigns {
		if c.Status == status {
			campaigns = append(campaigns, c)
		}
	}
	sortByID(campaigns, func(c model.Campaign) int64 { return c.ID })
	return campaigns, nil
}

func (r campaignRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Campaign, error) {
	defer r.db.lock(ctx)()
	var campaigns []model.Campaign
	for _, c := range r.db.campaigns {
		if c.OwnerID == ownerID {
			campaigns = append(campaigns, c)
		}
	}
	sortByID(campaigns, func(c model.Campaign) int64 { return c.ID })
	return campaigns, nil
}

type applicationRepo struct{ db *DB }

func (r applicationRepo) Insert(ctx context.Context, app *model.Application) error {
	requireTx(ctx)
	for _, existing := range r.db.applications {
		if existing.CampaignID == app.CampaignID && existing.UserID == app.UserID {
			return model.ErrAlreadyApplied
		}
	}
	r.db.applicationSeq++
	app.ID = r.db.applicationSeq
	r.db.applications[app.ID] = *app
	return nil
}

func (r applicationRepo) Get(ctx context.Context, id int64) (model.Application, error) {
	defer r.db.lock(ctx)()
	app, ok := r.db.applications[id]
	if !ok {
		return model.Application{}, model.ErrApplicationNotFound
	}
	return app, nil
}

func (r applicationRepo) Lock(ctx context.Context, id int64) (model.Application, error) {
	requireTx(ctx)
	app, ok := r.db.applications[id]
	if !ok {
		return model.Application{}, model.ErrApplicationNotFound
	}
	return app, nil
}

func (r applicationRepo) FindByCampaignAndUser(
	ctx context.Context, campaignID int64, userID string,
) (model.Application, error) {
	defer r.db.lock(ctx)()
	for _, app := range r.db.applications {
		if app.CampaignID == campaignID && app.UserID == userID {
			return app, nil
		}
	}
	return model.Application{}, model.ErrApplicationNotFound
}

func (r applicationRepo) CountActive(ctx context.Context, campaignID int64) (int64, error) {
	defer r.db.lock(ctx)()
	var count int64
	for _, app := range r.db.applications {
		if app.CampaignID == campaignID && app.Status.HoldsSlot() {
			count++
		}
	}
	return count, nil
}

func (r applicationRepo) CountActiveForCampaigns(
	ctx context.Context, campaignIDs []int64,
) (map[int64]int64, error) {
	defer r.db.lock(ctx)()
	wanted := make(map[int64]bool, len(campaignIDs))
	for _, id := range campaignIDs {
		wanted[id] = true
	}
	counts := make(map[int64]int64, len(campaignIDs))
	for _, app := range r.db.applications {
		if wanted[app.CampaignID] && app.Status.HoldsSlot() {
			counts[app.CampaignID]++
		}
	}
	return counts, nil
}

func (r applicationRepo) UpdateStatus(
	ctx context.Context, id int64, status model.ApplicationStatus, updatedAt time.Time,
) error {
	requireTx(ctx)
	app, ok := r.db.applications[id]
	if !ok {
		return model.ErrApplicationNotFound
	}
	app.Status = status
	app.UpdatedAt = updatedAt
	r.db.applications[id] = app
	return nil
}

func (r applicationRepo) ListByCampaign(ctx context.Context, campaignID int64) ([]model.Application, error) {
	defer r.db.lock(ctx)()
	var apps []model.Application
	for _, app := range r.db.applications {
		if app.CampaignID == campaignID {
			apps = append(apps, app)
		}
	}
	sortByID(apps, func(a model.Application) int64 { return a.ID })
	return apps, nil
}

func (r applicationRepo) ListByUser(ctx context.Context, userID string) ([]model.Application, error) {
	defer r.db.lock(ctx)()
	var apps []model.Application
	for _, app := range r.db.applications {
		if app.UserID == userID {
			apps = append(apps, app)
		}
	}
	sortByID(apps, func(a model.Application) int64 { return a.ID })
	return apps, nil
}

type tokenRepo struct{ db *DB }

func (r tokenRepo) Insert(ctx context.Context, token *model.QRToken) error {
	requireTx(ctx)
	r.db.tokenSeq++
	token.ID = r.db.tokenSeq
	r.db.tokens[token.ID] = *token
	return nil
}

func (r tokenRepo) Latest(ctx context.Context, applicationID int64) (model.QRToken, error) {
	defer r.db.lock(ctx)()
	var latest model.QRToken
	found := false
	for _, token := range r.db.tokens {
		if token.ApplicationID != applicationID {
			continue
		}
		if !found || token.ID > latest.ID {
			latest = token
			found = true
		}
	}
	if !found {
		return model.QRToken{}, model.ErrTokenNotFound
	}
	return latest, nil
}

func (r tokenRepo) LockByCode(ctx context.Context, code string) (model.QRToken, error) {
	requireTx(ctx)
	for _, token := range r.db.tokens {
		if token.Code == code {
			return token, nil
		}
	}
	return model.QRToken{}, model.ErrTokenNotFound
}

func (r tokenRepo) MarkUsed(ctx context.Context, id int64, usedAt time.Time, scannedBy string) error {
	requireTx(ctx)
	token, ok := r.db.tokens[id]
	if !ok || token.IsUsed {
		return model.ErrTokenAlreadyUsed
	}
	token.IsUsed = true
	token.UsedAt.Valid = true
	token.UsedAt.Time = usedAt
	token.ScannedBy.Valid = true
	token.ScannedBy.String = scannedBy
	r.db.tokens[id] = token
	return nil
}

type storeRepo struct{ db *DB }

func (r storeRepo) Insert(ctx context.Context, store *model.Store) error {
	requireTx(ctx)
	r.db.storeSeq++
	store.ID = r.db.storeSeq
	r.db.stores[store.ID] = *store
	return nil
}

func (r storeRepo) Get(ctx context.Context, id int64) (model.Store, error) {
	defer r.db.lock(ctx)()
	store, ok := r.db.stores[id]
	if !ok {
		return model.Store{}, model.ErrStoreNotFound
	}
	return store, nil
}

func (r storeRepo) GetMulti(ctx context.Context, ids []int64) (map[int64]model.Store, error) {
	defer r.db.lock(ctx)()
	stores := make(map[int64]model.Store, len(ids))
	for _, id := range ids {
		if store, ok := r.db.stores[id]; ok {
			stores[id] = store
		}
	}
	return stores, nil
}

func (r storeRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Store, error) {
	defer r.db.lock(ctx)()
	var stores []model.Store
	for _, store := range r.db.stores {
		if store.OwnerID == ownerID {
			stores = append(stores, store)
		}
	}
	sortByID(stores, func(s model.Store) int64 { return s.ID })
	return stores, nil
}

type reviewRepo struct{ db *DB }

func (r reviewRepo) Insert(ctx context.Context, review *model.Review) error {
	requireTx(ctx)
	for _, existing := range r.db.reviews {
		if existing.ApplicationID == review.ApplicationID {
			return model.ErrAlreadyReviewed
		}
	}
	r.db.reviewSeq++
	review.ID = r.db.reviewSeq
	r.db.reviews[review.ID] = *review
	return nil
}

func (r reviewRepo) FindByApplication(ctx context.Context, applicationID int64) (model.Review, error) {
	defer r.db.lock(ctx)()
	for _, review := range r.db.reviews {
		if review.ApplicationID == applicationID {
			return review, nil
		}
	}
	return model.Review{}, model.ErrReviewNotFound
}

func (r reviewRepo) ListByStore(ctx context.Context, storeID int64) ([]model.Review, error) {
	defer r.db.lock(ctx)()
	var reviews []model.Review
	for _, review := range r.db.reviews {
		if review.StoreID == storeID {
			reviews = append(reviews, review)
		}
	}
	sort.SliceStable(reviews, func(i, j int) bool { return reviews[i].ID > reviews[j].ID })
	return reviews, nil
}

func sortByID[T any](items []T, id func(T) int64) {
	sort.SliceStable(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}
