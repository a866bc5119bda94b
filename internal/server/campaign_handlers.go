package server

import (
	"context"
	"net/http"

	"github.com/gyuwonk/chehum/internal/model"
	"github.com/gyuwonk/chehum/internal/query"
	"github.com/gyuwonk/chehum/internal/service"
)

// CampaignHandler serves campaign lifecycle and listing endpoints.
type CampaignHandler struct {
	campaigns *service.CampaignService
}

// NewCampaignHandler creates a new CampaignHandler instance
func NewCampaignHandler(campaigns *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns}
}

// Create handles POST /campaigns
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireRole(w, r, model.RoleOwner)
	if !ok {
		return
	}

	var in service.CampaignInput
	if err := ParseJSONBody(r, &in); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	campaign, err := h.campaigns.Create(r.Context(), owner, in)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusCreated, campaign)
}

// Update handles PUT /campaigns/{id}
func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireRole(w, r, model.RoleOwner)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		ErrorResponse(w, http.StatusBadRequest, "invalid_argument", "invalid campaign id")
		return
	}

	var in service.CampaignInput
	if err := ParseJSONBody(r, &in); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	campaign, err := h.campaigns.Update(r.Context(), owner, id, in)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, campaign)
}

// List handles GET /campaigns with the filter/sort query parameters.
// Repeating a facet parameter selects multiple values.
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := query.Query{
		SearchText: params.Get("search"),
		SNS:        params["sns"],
		Categories: params["category"],
		Regions:    params["region"],
		SortBy:     query.Sort(params.Get("sort")),
	}

	campaigns, err := h.campaigns.ListActive(r.Context(), q)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, campaigns)
}

// Get handles GET /campaigns/{id}
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		ErrorResponse(w, http.StatusBadRequest, "invalid_argument", "invalid campaign id")
		return
	}

	campaign, err := h.campaigns.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, campaign)
}

// Markers handles GET /campaigns/markers
func (h *CampaignHandler) Markers(w http.ResponseWriter, r *http.Request) {
	markers, err := h.campaigns.Markers(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, markers)
}

// Mine handles GET /my/campaigns (the owner's campaigns)
func (h *CampaignHandler) Mine(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireRole(w, r, model.RoleOwner)
	if !ok {
		return
	}

	campaigns, err := h.campaigns.ListByOwner(r.Context(), owner)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, campaigns)
}

// Complete handles POST /campaigns/{id}/complete
func (h *CampaignHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.campaigns.Complete)
}

// Cancel handles POST /campaigns/{id}/cancel
func (h *CampaignHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.campaigns.Cancel)
}

func (h *CampaignHandler) transition(
	w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, owner model.Principal, campaignID int64) (model.Campaign, error),
) {
	owner, ok := requireRole(w, r, model.RoleOwner)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		ErrorResponse(w, http.StatusBadRequest, "invalid_argument", "invalid campaign id")
		return
	}

	campaign, err := op(r.Context(), owner, id)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, campaign)
}
