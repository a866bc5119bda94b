package server

import (
	"fmt"
	"net/http"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyuwonk/chehum/internal/clock"
	"github.com/gyuwonk/chehum/internal/service"
)

// Deps is everything the HTTP layer needs wired in.
type Deps struct {
	Stores       *service.StoreService
	Campaigns    *service.CampaignService
	Applications *service.ApplicationService
	Tokens       *service.TokenService
	Reviews      *service.ReviewService
	Clock        clock.Clock

	// DB backs /health/db; nil disables the probe (tests run without one).
	DB *sqlx.DB

	RateLimit      int
	RateLimitBurst int
}

// Server owns the route table for the experience-campaign API.
type Server struct {
	mux *http.ServeMux
}

// New assembles the full route table.
func New(deps Deps) *Server {
	stores := NewStoreHandler(deps.Stores, deps.Reviews)
	campaigns := NewCampaignHandler(deps.Campaigns)
	applications := NewApplicationHandler(deps.Applications)
	tokens := NewTokenHandler(deps.Tokens, deps.Clock)
	reviews := NewReviewHandler(deps.Reviews)

	limiter := NewRateLimiter(deps.RateLimit, deps.RateLimitBurst)

	mux := http.NewServeMux()

	// Authenticated reads.
	get := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc("GET "+pattern, WithPrincipal(h))
	}
	// Authenticated writes, rate limited per principal.
	post := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc("POST "+pattern, WithPrincipal(limiter.Wrap(h)))
	}

	post("/stores", stores.Create)
	get("/stores", stores.List)
	get("/stores/{id}", stores.Get)
	get("/stores/{id}/reviews", stores.Reviews)

	post("/campaigns", campaigns.Create)
	get("/campaigns", campaigns.List)
	get("/campaigns/markers", campaigns.Markers)
	get("/campaigns/{id}", campaigns.Get)
	mux.HandleFunc("PUT /campaigns/{id}", WithPrincipal(limiter.Wrap(campaigns.Update)))
	post("/campaigns/{id}/complete", campaigns.Complete)
	post("/campaigns/{id}/cancel", campaigns.Cancel)
	get("/my/campaigns", campaigns.Mine)

	post("/campaigns/{id}/applications", applications.Apply)
	get("/campaigns/{id}/applications", applications.ListForCampaign)
	get("/my/applications", applications.Mine)
	get("/applications/{id}", applications.Get)
	post("/applications/{id}/approve", applications.Approve)
	post("/applications/{id}/reject", applications.Reject)

	get("/applications/{id}/qr", tokens.Get)
	post("/applications/{id}/qr/reissue", tokens.Reissue)
	post("/qr/scan", tokens.Scan)

	post("/applications/{id}/review", reviews.Create)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		hostname, _ := os.Hostname()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","service":"chehum","hostname":"%s"}`, hostname)
	})

	mux.HandleFunc("GET /health/db", func(w http.ResponseWriter, r *http.Request) {
		if deps.DB == nil {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok","postgres":"not configured"}`))
			return
		}
		if err := deps.DB.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","message":"postgres unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","postgres":"connected"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	return &Server{mux: mux}
}

// Handler returns the root handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return WithLogging(s.mux)
}
