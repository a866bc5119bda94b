package server

import (
	"net/http"
	"strconv"

	"github.com/gyuwonk/chehum/internal/model"
	"github.com/gyuwonk/chehum/internal/service"
)

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

func requireRole(w http.ResponseWriter, r *http.Request, roles ...model.Role) (model.Principal, bool) {
	principal := GetPrincipal(r)
	for _, role := range roles {
		if principal.Role == role {
			return principal, true
		}
	}
	if principal.Role == model.RoleAdmin {
		return principal, true
	}
	ErrorResponse(w, http.StatusForbidden, "forbidden", "role not allowed for this operation")
	return principal, false
}

// StoreHandler serves the owner's store registry.
type StoreHandler struct {
	stores  *service.StoreService
	reviews *service.ReviewService
}

// NewStoreHandler creates a new StoreHandler instance
func NewStoreHandler(stores *service.StoreService, reviews *service.ReviewService) *StoreHandler {
	return &StoreHandler{stores: stores, reviews: reviews}
}

// Create handles POST /stores
func (h *StoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireRole(w, r, model.RoleOwner)
	if !ok {
		return
	}

	var in service.StoreInput
	if err := ParseJSONBody(r, &in); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	store, err := h.stores.Create(r.Context(), owner, in)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusCreated, store)
}

// List handles GET /stores (the caller's own stores)
func (h *StoreHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireRole(w, r, model.RoleOwner)
	if !ok {
		return
	}

	stores, err := h.stores.ListByOwner(r.Context(), owner)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, stores)
}

// Get handles GET /stores/{id}
func (h *StoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		ErrorResponse(w, http.StatusBadRequest, "invalid_argument", "invalid store id")
		return
	}

	store, err := h.stores.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, store)
}

// Reviews handles GET /stores/{id}/reviews
func (h *StoreHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		ErrorResponse(w, http.StatusBadRequest, "invalid_argument", "invalid store id")
		return
	}

	reviews, err := h.reviews.ListByStore(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, reviews)
}

// ReviewHandler serves post-visit reviews.
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler instance
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Create handles POST /applications/{id}/review
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	applicant, ok := requireRole(w, r, model.RoleInfluencer)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		ErrorResponse(w, http.StatusBadRequest, "invalid_argument", "invalid application id")
		return
	}

	var in service.ReviewInput
	if err := ParseJSONBody(r, &in); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	review, err := h.reviews.Create(r.Context(), applicant, id, in)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusCreated, review)
}
