package model

import (
	"errors"
)

// Business outcomes are sentinel errors so callers branch with errors.Is
// instead of matching message strings. None of these are retryable except
// ErrUnavailable.
var (
	// Reservation-time rule violations.
	ErrAlreadyApplied = errors.New("already applied to this campaign")
	ErrCampaignClosed = errors.New("campaign is not accepting applications")
	ErrQuotaExceeded  = errors.New("campaign quota exceeded")
	ErrDeadlinePassed = errors.New("application deadline has passed")

	// Illegal workflow transition, e.g. completing a pending application.
	ErrInvalidTransition = errors.New("invalid status transition")

	// Token scan outcomes. Expired and already-used are distinct so the
	// scan screen can show the operator which one happened.
	ErrTokenNotFound    = errors.New("qr token not found")
	ErrTokenAlreadyUsed = errors.New("qr token already used")
	ErrTokenExpired     = errors.New("qr token expired")

	// Lookup failures.
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrApplicationNotFound = errors.New("application not found")
	ErrStoreNotFound       = errors.New("store not found")
	ErrReviewNotFound      = errors.New("review not found")

	// Permission failures (principal is not the owner/applicant of the row).
	ErrForbidden = errors.New("not permitted for this principal")

	// Malformed caller input (bad quota, rating out of range, ...).
	ErrInvalidArgument = errors.New("invalid argument")

	// One review per completed application.
	ErrAlreadyReviewed = errors.New("application already reviewed")
	ErrNotCompleted    = errors.New("application is not completed")

	// Store or network failure. The only retryable category; callers may
	// retry with backoff because reservation and scan are idempotent.
	ErrUnavailable = errors.New("storage unavailable")
)
