package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gyuwonk/chehum/internal/clock"
	"github.com/gyuwonk/chehum/internal/model"
	"github.com/gyuwonk/chehum/internal/repository/memrepo"
)

var testStart = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

// fixture bundles the in-memory database, a controllable clock and every
// service under test.
type fixture struct {
	db    *memrepo.DB
	clock *clock.Fake

	stores       *StoreService
	campaigns    *CampaignService
	applications *ApplicationService
	tokens       *TokenService
	reviews      *ReviewService

	owner      model.Principal
	influencer model.Principal
	staff      model.Principal
	admin      model.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := memrepo.New()
	clk := clock.NewFake(testStart)

	campaignRepo := db.Campaigns()
	applicationRepo := db.Applications()
	tokenRepo := db.Tokens()
	storeRepo := db.Stores()
	reviewRepo := db.Reviews()

	return &fixture{
		db:    db,
		clock: clk,

		stores:       NewStoreService(db, storeRepo, clk),
		campaigns:    NewCampaignService(db, campaignRepo, storeRepo, applicationRepo, clk),
		applications: NewApplicationService(db, campaignRepo, applicationRepo, clk),
		tokens:       NewTokenService(db, applicationRepo, tokenRepo, clk, 0),
		reviews:      NewReviewService(db, applicationRepo, campaignRepo, reviewRepo, clk),

		owner:      model.Principal{ID: "owner-1", Role: model.RoleOwner},
		influencer: model.Principal{ID: "user-1", Role: model.RoleInfluencer},
		staff:      model.Principal{ID: "staff-1", Role: model.RoleStaff},
		admin:      model.Principal{ID: "admin-1", Role: model.RoleAdmin},
	}
}

func newContext() context.Context {
	return context.Background()
}

func (f *fixture) newStore(t *testing.T) model.Store {
	t.Helper()
	store, err := f.stores.Create(newContext(), f.owner, StoreInput{
		Name:     "모카빈",
		Address:  "서울시 강남구 역삼동",
		Category: model.StoreCategoryCafe,
		Lat:      37.4979,
		Lng:      127.0276,
	})
	require.NoError(t, err)
	return store
}

func (f *fixture) newCampaign(t *testing.T, storeID int64, quota int32) model.Campaign {
	t.Helper()
	campaign, err := f.campaigns.Create(newContext(), f.owner, CampaignInput{
		StoreID:     storeID,
		Name:        "카페 모카 신메뉴 체험단",
		Benefit:     "아메리카노 2잔",
		TotalQuota:  quota,
		RequiredSNS: []string{"블로그"},
		StartDate:   testStart,
		EndDate:     testStart.Add(30 * 24 * time.Hour),
		Deadline:    testStart.Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return campaign
}

// approvedApplication walks one applicant through apply and approve.
func (f *fixture) approvedApplication(
	t *testing.T, campaignID int64, applicant model.Principal,
) model.Application {
	t.Helper()
	app, err := f.applications.TryReserve(newContext(), campaignID, applicant.ID)
	require.NoError(t, err)
	app, err = f.applications.Approve(newContext(), app.ID, f.owner)
	require.NoError(t, err)
	return app
}

// completedApplication additionally issues a token and scans it.
func (f *fixture) completedApplication(
	t *testing.T, campaignID int64, applicant model.Principal,
) model.Application {
	t.Helper()
	app := f.approvedApplication(t, campaignID, applicant)
	token, err := f.tokens.IssueOrGet(newContext(), app.ID, applicant)
	require.NoError(t, err)
	scan, err := f.tokens.Scan(newContext(), token.Code, f.staff)
	require.NoError(t, err)
	return scan.Application
}
