package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyuwonk/chehum/internal/model"
)

func TestTokenService_IssueOrGet(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.approvedApplication(t, campaign.ID, f.influencer)

	token, err := f.tokens.IssueOrGet(newContext(), app.ID, f.influencer)
	require.NoError(t, err)

	assert.Equal(t, app.ID, token.ApplicationID)
	assert.NotEqual(t, "", token.Code)
	assert.Equal(t, testStart, token.IssuedAt)
	assert.Equal(t, testStart.Add(DefaultTokenTTL), token.ExpiresAt)
	assert.False(t, token.IsUsed)

	// a second view returns the same token, not a new one
	again, err := f.tokens.IssueOrGet(newContext(), app.ID, f.influencer)
	require.NoError(t, err)
	assert.Equal(t, token.ID, again.ID)
	assert.Equal(t, token.Code, again.Code)
}

func TestTokenService_IssueOrGet__Requires_Approved(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)

	pending, err := f.applications.TryReserve(newContext(), campaign.ID, f.influencer.ID)
	require.NoError(t, err)

	_, err = f.tokens.IssueOrGet(newContext(), pending.ID, f.influencer)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestTokenService_IssueOrGet__Applicant_Only(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.approvedApplication(t, campaign.ID, f.influencer)

	stranger := model.Principal{ID: "user-x", Role: model.RoleInfluencer}
	_, err := f.tokens.IssueOrGet(newContext(), app.ID, stranger)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.tokens.IssueOrGet(newContext(), app.ID, f.admin)
	assert.NoError(t, err)
}

func TestTokenService_IssueOrGet__Expired_Requires_Explicit_Reissue(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.approvedApplication(t, campaign.ID, f.influencer)

	_, err := f.tokens.IssueOrGet(newContext(), app.ID, f.influencer)
	require.NoError(t, err)

	f.clock.Advance(DefaultTokenTTL + time.Minute)

	_, err = f.tokens.IssueOrGet(newContext(), app.ID, f.influencer)
	assert.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestTokenService_Reissue(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.approvedApplication(t, campaign.ID, f.influencer)

	first, err := f.tokens.IssueOrGet(newContext(), app.ID, f.influencer)
	require.NoError(t, err)

	// while the token is live, Reissue returns it unchanged
	same, err := f.tokens.Reissue(newContext(), app.ID, f.influencer)
	require.NoError(t, err)
	assert.Equal(t, first.ID, same.ID)

	f.clock.Advance(DefaultTokenTTL + time.Minute)

	fresh, err := f.tokens.Reissue(newContext(), app.ID, f.influencer)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
	assert.NotEqual(t, first.Code, fresh.Code)
	assert.Equal(t, f.clock.Now().Add(DefaultTokenTTL), fresh.ExpiresAt)

	// the fresh token is now what IssueOrGet returns
	current, err := f.tokens.IssueOrGet(newContext(), app.ID, f.influencer)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, current.ID)
}

func TestTokenService_Reissue__First_Token(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.approvedApplication(t, campaign.ID, f.influencer)

	token, err := f.tokens.Reissue(newContext(), app.ID, f.influencer)
	require.NoError(t, err)
	assert.NotEqual(t, "", token.Code)
}

func TestTokenService_Reissue__Completed_Application(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.approvedApplication(t, campaign.ID, f.influencer)

	token, err := f.tokens.IssueOrGet(newContext(), app.ID, f.influencer)
	require.NoError(t, err)

	_, err = f.tokens.Scan(newContext(), token.Code, f.staff)
	require.NoError(t, err)

	// the scan completed the application, so no further token is issued
	_, err = f.tokens.Reissue(newContext(), app.ID, f.influencer)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = f.tokens.IssueOrGet(newContext(), app.ID, f.influencer)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestTokenService_Scan(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.approvedApplication(t, campaign.ID, f.influencer)

	token, err := f.tokens.IssueOrGet(newContext(), app.ID, f.influencer)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)

	scan, err := f.tokens.Scan(newContext(), token.Code, f.staff)
	require.NoError(t, err)

	assert.True(t, scan.Token.IsUsed)
	assert.Equal(t, f.clock.Now(), scan.Token.UsedAt.Time)
	assert.Equal(t, f.staff.ID, scan.Token.ScannedBy.String)
	assert.Equal(t, model.ApplicationStatusCompleted, scan.Application.Status)

	// the completion is visible outside the scan transaction
	got, err := f.applications.Get(newContext(), app.ID, f.influencer)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusCompleted, got.Status)
}

func TestTokenService_Scan__Single_Use(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.approvedApplication(t, campaign.ID, f.influencer)

	token, err := f.tokens.IssueOrGet(newContext(), app.ID, f.influencer)
	require.NoError(t, err)

	_, err = f.tokens.Scan(newContext(), token.Code, f.staff)
	require.NoError(t, err)

	_, err = f.tokens.Scan(newContext(), token.Code, f.staff)
	assert.ErrorIs(t, err, model.ErrTokenAlreadyUsed)
}

func TestTokenService_Scan__Expired_Wins_Over_Used(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.approvedApplication(t, campaign.ID, f.influencer)

	token, err := f.tokens.IssueOrGet(newContext(), app.ID, f.influencer)
	require.NoError(t, err)

	_, err = f.tokens.Scan(newContext(), token.Code, f.staff)
	require.NoError(t, err)

	f.clock.Advance(DefaultTokenTTL + time.Second)

	// a token that is both used and expired reports expired
	_, err = f.tokens.Scan(newContext(), token.Code, f.staff)
	assert.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestTokenService_Scan__Expired(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.approvedApplication(t, campaign.ID, f.influencer)

	token, err := f.tokens.IssueOrGet(newContext(), app.ID, f.influencer)
	require.NoError(t, err)

	f.clock.Advance(DefaultTokenTTL + time.Second)

	_, err = f.tokens.Scan(newContext(), token.Code, f.staff)
	assert.ErrorIs(t, err, model.ErrTokenExpired)

	// the application stays approved; nothing was consumed
	got, err := f.applications.Get(newContext(), app.ID, f.influencer)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusApproved, got.Status)
}

func TestTokenService_Scan__Boundary_Instant_Is_Valid(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.approvedApplication(t, campaign.ID, f.influencer)

	token, err := f.tokens.IssueOrGet(newContext(), app.ID, f.influencer)
	require.NoError(t, err)

	// exactly at expiry the token is still consumable
	f.clock.Set(token.ExpiresAt)

	_, err = f.tokens.Scan(newContext(), token.Code, f.staff)
	assert.NoError(t, err)
}

func TestTokenService_Scan__Unknown_Code(t *testing.T) {
	f := newFixture(t)

	_, err := f.tokens.Scan(newContext(), "no-such-code", f.staff)
	assert.ErrorIs(t, err, model.ErrTokenNotFound)
}

// Of any number of concurrent scans of one code, exactly one wins.
func TestTokenService_Scan__Concurrent_Single_Winner(t *testing.T) {
	const scanners = 20

	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.approvedApplication(t, campaign.ID, f.influencer)

	token, err := f.tokens.IssueOrGet(newContext(), app.ID, f.influencer)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, scanners)
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.tokens.Scan(newContext(), token.Code, f.staff)
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, model.ErrTokenAlreadyUsed)
		}
	}
	assert.Equal(t, 1, won)
}

func TestQRToken_Remaining(t *testing.T) {
	token := model.QRToken{ExpiresAt: testStart.Add(time.Hour)}

	assert.Equal(t, time.Hour, token.Remaining(testStart))
	assert.Equal(t, 30*time.Minute, token.Remaining(testStart.Add(30*time.Minute)))
	assert.Equal(t, time.Duration(0), token.Remaining(testStart.Add(2*time.Hour)))
}
