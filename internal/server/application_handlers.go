package server

import (
	"net/http"

	"github.com/gyuwonk/chehum/internal/model"
	"github.com/gyuwonk/chehum/internal/service"
)

// ApplicationHandler serves the apply/approve/reject workflow.
type ApplicationHandler struct {
	applications *service.ApplicationService
}

// NewApplicationHandler creates a new ApplicationHandler instance
func NewApplicationHandler(applications *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

// Apply handles POST /campaigns/{id}/applications
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	applicant, ok := requireRole(w, r, model.RoleInfluencer)
	if !ok {
		return
	}
	campaignID, ok := pathID(r, "id")
	if !ok {
		ErrorResponse(w, http.StatusBadRequest, "invalid_argument", "invalid campaign id")
		return
	}

	app, err := h.applications.TryReserve(r.Context(), campaignID, applicant.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusCreated, app)
}

// ListForCampaign handles GET /campaigns/{id}/applications
func (h *ApplicationHandler) ListForCampaign(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireRole(w, r, model.RoleOwner)
	if !ok {
		return
	}
	campaignID, ok := pathID(r, "id")
	if !ok {
		ErrorResponse(w, http.StatusBadRequest, "invalid_argument", "invalid campaign id")
		return
	}

	apps, err := h.applications.ListByCampaign(r.Context(), campaignID, owner)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, apps)
}

// Mine handles GET /my/applications
func (h *ApplicationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	applicant := GetPrincipal(r)

	apps, err := h.applications.ListByApplicant(r.Context(), applicant.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, apps)
}

// Get handles GET /applications/{id}
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		ErrorResponse(w, http.StatusBadRequest, "invalid_argument", "invalid application id")
		return
	}

	app, err := h.applications.Get(r.Context(), id, GetPrincipal(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, app)
}

// Approve handles POST /applications/{id}/approve
func (h *ApplicationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireRole(w, r, model.RoleOwner)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		ErrorResponse(w, http.StatusBadRequest, "invalid_argument", "invalid application id")
		return
	}

	app, err := h.applications.Approve(r.Context(), id, owner)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, app)
}

// Reject handles POST /applications/{id}/reject
func (h *ApplicationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireRole(w, r, model.RoleOwner)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		ErrorResponse(w, http.StatusBadRequest, "invalid_argument", "invalid application id")
		return
	}

	app, err := h.applications.Reject(r.Context(), id, owner)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, app)
}
