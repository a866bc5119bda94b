package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyuwonk/chehum/internal/clock"
	"github.com/gyuwonk/chehum/internal/model"
	"github.com/gyuwonk/chehum/internal/repository/memrepo"
	"github.com/gyuwonk/chehum/internal/service"
)

var testStart = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

type testServer struct {
	server *httptest.Server
	clock  *clock.Fake
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := memrepo.New()
	clk := clock.NewFake(testStart)

	campaignRepo := db.Campaigns()
	applicationRepo := db.Applications()
	tokenRepo := db.Tokens()
	storeRepo := db.Stores()
	reviewRepo := db.Reviews()

	srv := New(Deps{
		Stores:       service.NewStoreService(db, storeRepo, clk),
		Campaigns:    service.NewCampaignService(db, campaignRepo, storeRepo, applicationRepo, clk),
		Applications: service.NewApplicationService(db, campaignRepo, applicationRepo, clk),
		Tokens:       service.NewTokenService(db, applicationRepo, tokenRepo, clk, 0),
		Reviews:      service.NewReviewService(db, applicationRepo, campaignRepo, reviewRepo, clk),
		Clock:        clk,

		RateLimit:      1000,
		RateLimitBurst: 1000,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testServer{server: ts, clock: clk}
}

func (ts *testServer) do(
	t *testing.T, method, path, userID string, role model.Role, body any,
) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, buf)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
		req.Header.Set("X-User-Role", string(role))
	}

	resp, err := ts.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body ErrorBody
	decodeBody(t, resp, &body)
	return body.Error
}

const (
	ownerID      = "owner-1"
	influencerID = "user-1"
	staffID      = "staff-1"
)

func (ts *testServer) createStore(t *testing.T) int64 {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/stores", ownerID, model.RoleOwner, map[string]any{
		"name":     "모카빈",
		"address":  "서울시 강남구 역삼동",
		"category": "cafe",
		"lat":      37.4979,
		"lng":      127.0276,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var store model.Store
	decodeBody(t, resp, &store)
	return store.ID
}

func (ts *testServer) createCampaign(t *testing.T, storeID int64, quota int32) int64 {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/campaigns", ownerID, model.RoleOwner, map[string]any{
		"store_id":     storeID,
		"name":         "카페 모카 신메뉴 체험단",
		"benefit":      "아메리카노 2잔",
		"total_quota":  quota,
		"required_sns": []string{"블로그"},
		"start_date":   testStart,
		"end_date":     testStart.Add(30 * 24 * time.Hour),
		"deadline":     testStart.Add(7 * 24 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var campaign model.Campaign
	decodeBody(t, resp, &campaign)
	return campaign.ID
}

func (ts *testServer) apply(t *testing.T, campaignID int64, userID string) model.Application {
	t.Helper()
	resp := ts.do(t, http.MethodPost, fmt.Sprintf("/campaigns/%d/applications", campaignID),
		userID, model.RoleInfluencer, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var app model.Application
	decodeBody(t, resp, &app)
	return app
}

func (ts *testServer) approve(t *testing.T, applicationID int64) {
	t.Helper()
	resp := ts.do(t, http.MethodPost, fmt.Sprintf("/applications/%d/approve", applicationID),
		ownerID, model.RoleOwner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_Requires_Principal(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/campaigns", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthenticated", errorCode(t, resp))
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/metrics", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_Application_Workflow(t *testing.T) {
	ts := newTestServer(t)
	storeID := ts.createStore(t)
	campaignID := ts.createCampaign(t, storeID, 5)

	app := ts.apply(t, campaignID, influencerID)
	assert.Equal(t, model.ApplicationStatusPending, app.Status)

	// duplicate apply conflicts
	resp := ts.do(t, http.MethodPost, fmt.Sprintf("/campaigns/%d/applications", campaignID),
		influencerID, model.RoleInfluencer, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_applied", errorCode(t, resp))

	// owners cannot apply
	resp = ts.do(t, http.MethodPost, fmt.Sprintf("/campaigns/%d/applications", campaignID),
		ownerID, model.RoleOwner, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	ts.approve(t, app.ID)

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/applications/%d", app.ID),
		influencerID, model.RoleInfluencer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got model.Application
	decodeBody(t, resp, &got)
	assert.Equal(t, model.ApplicationStatusApproved, got.Status)

	resp = ts.do(t, http.MethodGet, "/my/applications", influencerID, model.RoleInfluencer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine []model.Application
	decodeBody(t, resp, &mine)
	assert.Equal(t, 1, len(mine))
}

func TestServer_QR_Flow(t *testing.T) {
	ts := newTestServer(t)
	storeID := ts.createStore(t)
	campaignID := ts.createCampaign(t, storeID, 5)
	app := ts.apply(t, campaignID, influencerID)
	ts.approve(t, app.ID)

	resp := ts.do(t, http.MethodGet, fmt.Sprintf("/applications/%d/qr", app.ID),
		influencerID, model.RoleInfluencer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var token struct {
		Code             string `json:"code"`
		RemainingSeconds int64  `json:"remaining_seconds"`
	}
	decodeBody(t, resp, &token)
	assert.NotEqual(t, "", token.Code)
	assert.Equal(t, int64((12 * time.Hour).Seconds()), token.RemainingSeconds)

	// influencers cannot scan
	resp = ts.do(t, http.MethodPost, "/qr/scan", influencerID, model.RoleInfluencer,
		map[string]string{"code": token.Code})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/qr/scan", staffID, model.RoleStaff,
		map[string]string{"code": token.Code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var scan service.ScanResult
	decodeBody(t, resp, &scan)
	assert.Equal(t, model.ApplicationStatusCompleted, scan.Application.Status)
	assert.Equal(t, staffID, scan.Token.ScannedBy.String)

	// second scan of the same code conflicts
	resp = ts.do(t, http.MethodPost, "/qr/scan", staffID, model.RoleStaff,
		map[string]string{"code": token.Code})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_used", errorCode(t, resp))
}

func TestServer_QR_Expiry_And_Reissue(t *testing.T) {
	ts := newTestServer(t)
	storeID := ts.createStore(t)
	campaignID := ts.createCampaign(t, storeID, 5)
	app := ts.apply(t, campaignID, influencerID)
	ts.approve(t, app.ID)

	resp := ts.do(t, http.MethodGet, fmt.Sprintf("/applications/%d/qr", app.ID),
		influencerID, model.RoleInfluencer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var first struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &first)

	ts.clock.Advance(12*time.Hour + time.Minute)

	// the expired token is reported as gone, not silently replaced
	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/applications/%d/qr", app.ID),
		influencerID, model.RoleInfluencer, nil)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	assert.Equal(t, "expired", errorCode(t, resp))

	resp = ts.do(t, http.MethodPost, fmt.Sprintf("/applications/%d/qr/reissue", app.ID),
		influencerID, model.RoleInfluencer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fresh struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &fresh)
	assert.NotEqual(t, first.Code, fresh.Code)

	// the stale code can no longer be consumed
	resp = ts.do(t, http.MethodPost, "/qr/scan", staffID, model.RoleStaff,
		map[string]string{"code": first.Code})
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_Campaign_Listing_And_Filters(t *testing.T) {
	ts := newTestServer(t)
	storeID := ts.createStore(t)
	campaignID := ts.createCampaign(t, storeID, 5)

	resp := ts.do(t, http.MethodGet, "/campaigns?search=카페+모카&sns=블로그&region=강남구",
		influencerID, model.RoleInfluencer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var campaigns []model.CampaignSummary
	decodeBody(t, resp, &campaigns)
	require.Equal(t, 1, len(campaigns))
	assert.Equal(t, campaignID, campaigns[0].ID)

	resp = ts.do(t, http.MethodGet, "/campaigns?sns=틱톡", influencerID, model.RoleInfluencer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &campaigns)
	assert.Equal(t, 0, len(campaigns))

	resp = ts.do(t, http.MethodGet, "/campaigns/markers", influencerID, model.RoleInfluencer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var markers []model.Marker
	decodeBody(t, resp, &markers)
	require.Equal(t, 1, len(markers))
	assert.Equal(t, campaignID, markers[0].ID)
}

func TestServer_Campaign_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	storeID := ts.createStore(t)
	campaignID := ts.createCampaign(t, storeID, 5)

	resp := ts.do(t, http.MethodPost, fmt.Sprintf("/campaigns/%d/cancel", campaignID),
		ownerID, model.RoleOwner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var campaign model.Campaign
	decodeBody(t, resp, &campaign)
	assert.Equal(t, model.CampaignStatusCancelled, campaign.Status)

	// cancelled campaigns take no applications
	resp = ts.do(t, http.MethodPost, fmt.Sprintf("/campaigns/%d/applications", campaignID),
		influencerID, model.RoleInfluencer, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "campaign_closed", errorCode(t, resp))
}

func TestServer_Quota_Exhaustion(t *testing.T) {
	ts := newTestServer(t)
	storeID := ts.createStore(t)
	campaignID := ts.createCampaign(t, storeID, 1)

	app := ts.apply(t, campaignID, "user-a")
	ts.approve(t, app.ID)

	late := ts.apply(t, campaignID, "user-b")
	resp := ts.do(t, http.MethodPost, fmt.Sprintf("/applications/%d/approve", late.ID),
		ownerID, model.RoleOwner, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "quota_exceeded", errorCode(t, resp))

	// once the slot holder exists, fresh applies still queue as pending,
	// but a full quota turns away new applicants when reached via count
	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/campaigns/%d", campaignID),
		influencerID, model.RoleInfluencer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary model.CampaignSummary
	decodeBody(t, resp, &summary)
	assert.Equal(t, int64(1), summary.Participants)
}

func TestServer_Review_Flow(t *testing.T) {
	ts := newTestServer(t)
	storeID := ts.createStore(t)
	campaignID := ts.createCampaign(t, storeID, 5)
	app := ts.apply(t, campaignID, influencerID)
	ts.approve(t, app.ID)

	// cannot review before the visit is verified
	resp := ts.do(t, http.MethodPost, fmt.Sprintf("/applications/%d/review", app.ID),
		influencerID, model.RoleInfluencer, map[string]any{"rating": 5, "content": "좋아요"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "not_completed", errorCode(t, resp))

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/applications/%d/qr", app.ID),
		influencerID, model.RoleInfluencer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var token struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &token)
	resp = ts.do(t, http.MethodPost, "/qr/scan", staffID, model.RoleStaff,
		map[string]string{"code": token.Code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, fmt.Sprintf("/applications/%d/review", app.ID),
		influencerID, model.RoleInfluencer, map[string]any{"rating": 5, "content": "좋아요"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/stores/%d/reviews", storeID),
		influencerID, model.RoleInfluencer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reviews service.StoreReviews
	decodeBody(t, resp, &reviews)
	require.Equal(t, 1, len(reviews.Reviews))
	assert.Equal(t, 5.0, reviews.AverageRating)
}

func TestServer_Unknown_Resources(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/campaigns/999", influencerID, model.RoleInfluencer, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "campaign_not_found", errorCode(t, resp))

	resp = ts.do(t, http.MethodGet, "/campaigns/not-a-number", influencerID, model.RoleInfluencer, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/qr/scan", staffID, model.RoleStaff,
		map[string]string{"code": "no-such-code"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "token_not_found", errorCode(t, resp))
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(1, 2)

	assert.True(t, limiter.Allow("user-a"))
	assert.True(t, limiter.Allow("user-a"))
	assert.False(t, limiter.Allow("user-a"))

	// budgets are per principal
	assert.True(t, limiter.Allow("user-b"))
}
