package server

import (
	"net/http"

	"github.com/gyuwonk/chehum/internal/clock"
	"github.com/gyuwonk/chehum/internal/model"
	"github.com/gyuwonk/chehum/internal/service"
)

// TokenHandler serves the QR verification endpoints.
type TokenHandler struct {
	tokens *service.TokenService
	clock  clock.Clock
}

// NewTokenHandler creates a new TokenHandler instance
func NewTokenHandler(tokens *service.TokenService, clk clock.Clock) *TokenHandler {
	return &TokenHandler{tokens: tokens, clock: clk}
}

type tokenResponse struct {
	model.QRToken
	// RemainingSeconds is the countdown shown on the QR screen,
	// recomputed on every poll.
	RemainingSeconds int64 `json:"remaining_seconds"`
}

func (h *TokenHandler) tokenResponse(token model.QRToken) tokenResponse {
	return tokenResponse{
		QRToken:          token,
		RemainingSeconds: int64(token.Remaining(h.clock.Now()).Seconds()),
	}
}

// Get handles GET /applications/{id}/qr
func (h *TokenHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		ErrorResponse(w, http.StatusBadRequest, "invalid_argument", "invalid application id")
		return
	}

	token, err := h.tokens.IssueOrGet(r.Context(), id, GetPrincipal(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, h.tokenResponse(token))
}

// Reissue handles POST /applications/{id}/qr/reissue
func (h *TokenHandler) Reissue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		ErrorResponse(w, http.StatusBadRequest, "invalid_argument", "invalid application id")
		return
	}

	token, err := h.tokens.Reissue(r.Context(), id, GetPrincipal(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, h.tokenResponse(token))
}

type scanRequest struct {
	Code string `json:"code"`
}

// Scan handles POST /qr/scan
func (h *TokenHandler) Scan(w http.ResponseWriter, r *http.Request) {
	staff := GetPrincipal(r)
	if !staff.CanScan() {
		ErrorResponse(w, http.StatusForbidden, "forbidden", "only store staff may scan QR codes")
		return
	}

	var req scanRequest
	if err := ParseJSONBody(r, &req); err != nil || req.Code == "" {
		ErrorResponse(w, http.StatusBadRequest, "invalid_argument", "code is required")
		return
	}

	result, err := h.tokens.Scan(r.Context(), req.Code, staff)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, result)
}
