package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gyuwonk/chehum/internal/clock"
	"github.com/gyuwonk/chehum/internal/metrics"
	"github.com/gyuwonk/chehum/internal/model"
	"github.com/gyuwonk/chehum/internal/repository"
)

// DefaultTokenTTL is the validity window of a visit QR token.
const DefaultTokenTTL = 12 * time.Hour

// TokenService issues and consumes visit verification QR tokens. At most
// one live token exists per application; expired tokens are superseded
// by Reissue and kept as history.
type TokenService struct {
	provider     repository.Provider
	applications repository.Application
	tokens       repository.Token
	clock        clock.Clock
	ttl          time.Duration
}

// NewTokenService creates a new TokenService instance. A non-positive
// ttl falls back to DefaultTokenTTL.
func NewTokenService(
	provider repository.Provider,
	applications repository.Application,
	tokens repository.Token,
	clk clock.Clock,
	ttl time.Duration,
) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		provider:     provider,
		applications: applications,
		tokens:       tokens,
		clock:        clk,
		ttl:          ttl,
	}
}

// ScanResult is the outcome of a successful scan: the consumed token and
// the application it completed.
type ScanResult struct {
	Token       model.QRToken     `json:"token"`
	Application model.Application `json:"application"`
}

// IssueOrGet returns the live token for an approved application, lazily
// creating one on the first view of the verification screen. Once the
// latest token has expired it is NOT silently replaced; the caller gets
// ErrTokenExpired and must ask for an explicit Reissue.
func (s *TokenService) IssueOrGet(
	ctx context.Context, applicationID int64, applicant model.Principal,
) (model.QRToken, error) {
	var token model.QRToken
	err := s.provider.Transact(ctx, func(ctx context.Context) error {
		app, err := s.guardTokenAccess(ctx, applicationID, applicant)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		latest, err := s.tokens.Latest(ctx, app.ID)
		if errors.Is(err, model.ErrTokenNotFound) {
			token, err = s.issue(ctx, app.ID, now)
			return err
		}
		if err != nil {
			return err
		}

		if latest.Live(now) {
			token = latest
			return nil
		}
		// a used token implies a completed application, which the
		// guard above rejects; anything not live here has lapsed
		return model.ErrTokenExpired
	})
	return token, err
}

// Reissue supersedes an expired token with a fresh one. When a live
// token still exists it is returned unchanged, so retries are harmless.
func (s *TokenService) Reissue(
	ctx context.Context, applicationID int64, applicant model.Principal,
) (model.QRToken, error) {
	var token model.QRToken
	err := s.provider.Transact(ctx, func(ctx context.Context) error {
		app, err := s.guardTokenAccess(ctx, applicationID, applicant)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		latest, err := s.tokens.Latest(ctx, app.ID)
		if err == nil {
			if latest.Live(now) {
				token = latest
				return nil
			}
		} else if !errors.Is(err, model.ErrTokenNotFound) {
			return err
		}

		token, err = s.issue(ctx, app.ID, now)
		return err
	})
	return token, err
}

// Scan consumes a token by its opaque code and completes the underlying
// application, all in one transaction. Exactly one of any number of
// concurrent scans of the same code wins; the rest observe AlreadyUsed.
// An expired token reports Expired no matter what its used flag says.
func (s *TokenService) Scan(
	ctx context.Context, code string, staff model.Principal,
) (ScanResult, error) {
	start := time.Now()
	result := "error"
	defer func() {
		metrics.RecordScanDuration(result, time.Since(start).Seconds())
	}()

	var scan ScanResult
	err := s.provider.Transact(ctx, func(ctx context.Context) error {
		token, err := s.tokens.LockByCode(ctx, code)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if token.Expired(now) {
			return model.ErrTokenExpired
		}
		if token.IsUsed {
			return model.ErrTokenAlreadyUsed
		}

		if err := s.tokens.MarkUsed(ctx, token.ID, now, staff.ID); err != nil {
			return err
		}
		token.IsUsed = true
		token.UsedAt.Valid = true
		token.UsedAt.Time = now
		token.ScannedBy.Valid = true
		token.ScannedBy.String = staff.ID

		app, err := s.applications.Lock(ctx, token.ApplicationID)
		if err != nil {
			return err
		}
		app, err = completeApplication(ctx, s.applications, app, now)
		if err != nil {
			return err
		}

		scan = ScanResult{Token: token, Application: app}
		return nil
	})
	if err != nil {
		result = scanResultLabel(err)
		return ScanResult{}, err
	}

	result = "completed"
	return scan, nil
}

// guardTokenAccess locks the application and checks the caller may hold
// its QR token. Tokens exist only for approved applications.
func (s *TokenService) guardTokenAccess(
	ctx context.Context, applicationID int64, applicant model.Principal,
) (model.Application, error) {
	app, err := s.applications.Lock(ctx, applicationID)
	if err != nil {
		return model.Application{}, err
	}
	if app.UserID != applicant.ID && applicant.Role != model.RoleAdmin {
		return model.Application{}, model.ErrForbidden
	}
	if app.Status != model.ApplicationStatusApproved {
		return model.Application{}, model.ErrInvalidTransition
	}
	return app, nil
}

func (s *TokenService) issue(ctx context.Context, applicationID int64, now time.Time) (model.QRToken, error) {
	token := model.QRToken{
		ApplicationID: applicationID,
		Code:          uuid.NewString(),
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.ttl),
		CreatedAt:     now,
	}
	if err := s.tokens.Insert(ctx, &token); err != nil {
		return model.QRToken{}, err
	}
	return token, nil
}

func scanResultLabel(err error) string {
	switch {
	case errors.Is(err, model.ErrTokenNotFound):
		return "not_found"
	case errors.Is(err, model.ErrTokenAlreadyUsed):
		return "already_used"
	case errors.Is(err, model.ErrTokenExpired):
		return "expired"
	default:
		return "error"
	}
}
