package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gyuwonk/chehum/internal/model"
)

type errMapping struct {
	status int
	code   string
}

var errMappings = []struct {
	err     error
	mapping errMapping
}{
	{model.ErrInvalidArgument, errMapping{http.StatusBadRequest, "invalid_argument"}},
	{model.ErrForbidden, errMapping{http.StatusForbidden, "forbidden"}},

	{model.ErrCampaignNotFound, errMapping{http.StatusNotFound, "campaign_not_found"}},
	{model.ErrApplicationNotFound, errMapping{http.StatusNotFound, "application_not_found"}},
	{model.ErrStoreNotFound, errMapping{http.StatusNotFound, "store_not_found"}},
	{model.ErrReviewNotFound, errMapping{http.StatusNotFound, "review_not_found"}},
	{model.ErrTokenNotFound, errMapping{http.StatusNotFound, "token_not_found"}},

	{model.ErrAlreadyApplied, errMapping{http.StatusConflict, "already_applied"}},
	{model.ErrQuotaExceeded, errMapping{http.StatusConflict, "quota_exceeded"}},
	{model.ErrDeadlinePassed, errMapping{http.StatusConflict, "deadline_passed"}},
	{model.ErrCampaignClosed, errMapping{http.StatusConflict, "campaign_closed"}},
	{model.ErrInvalidTransition, errMapping{http.StatusConflict, "invalid_transition"}},
	{model.ErrTokenAlreadyUsed, errMapping{http.StatusConflict, "already_used"}},
	{model.ErrAlreadyReviewed, errMapping{http.StatusConflict, "already_reviewed"}},
	{model.ErrNotCompleted, errMapping{http.StatusConflict, "not_completed"}},

	{model.ErrTokenExpired, errMapping{http.StatusGone, "expired"}},

	{model.ErrUnavailable, errMapping{http.StatusServiceUnavailable, "unavailable"}},
}

// WriteError maps a business error onto the HTTP response. Unmodeled
// errors surface as an opaque 500; nothing tries to interpret storage
// failure modes beyond the retryable/unavailable split.
func WriteError(w http.ResponseWriter, err error) {
	for _, m := range errMappings {
		if errors.Is(err, m.err) {
			ErrorResponse(w, m.mapping.status, m.mapping.code, m.err.Error())
			return
		}
	}

	slog.Error("internal error", "error", err)
	ErrorResponse(w, http.StatusInternalServerError, "internal", "internal error")
}
