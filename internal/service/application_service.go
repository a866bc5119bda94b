package service

import (
	"context"
	"errors"
	"time"

	"github.com/gyuwonk/chehum/internal/clock"
	"github.com/gyuwonk/chehum/internal/metrics"
	"github.com/gyuwonk/chehum/internal/model"
	"github.com/gyuwonk/chehum/internal/repository"
)

// ApplicationService is the quota ledger and application state machine.
// Slot accounting is derived from application rows; reservation and
// approval both run their check-then-act inside one transaction holding
// the campaign row lock, which is what keeps
// count(approved+completed) <= total_quota under concurrent requests.
type ApplicationService struct {
	provider     repository.Provider
	campaigns    repository.Campaign
	applications repository.Application
	clock        clock.Clock
}

// NewApplicationService creates a new ApplicationService instance
func NewApplicationService(
	provider repository.Provider,
	campaigns repository.Campaign,
	applications repository.Application,
	clk clock.Clock,
) *ApplicationService {
	return &ApplicationService{
		provider:     provider,
		campaigns:    campaigns,
		applications: applications,
		clock:        clk,
	}
}

// TryReserve attempts to reserve a slot in a campaign for an applicant.
// On success the application starts out pending. Failures are the typed
// reservation errors; callers branch on them, nothing is retried here.
func (s *ApplicationService) TryReserve(
	ctx context.Context, campaignID int64, applicantID string,
) (model.Application, error) {
	start := time.Now()
	result := "error"
	defer func() {
		metrics.RecordReserveDuration(result, time.Since(start).Seconds())
	}()

	var app model.Application
	err := s.provider.Transact(ctx, func(ctx context.Context) error {
		campaign, err := s.campaigns.Lock(ctx, campaignID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if campaign.Status != model.CampaignStatusActive {
			return model.ErrCampaignClosed
		}
		if now.After(campaign.Deadline) {
			return model.ErrDeadlinePassed
		}

		// One application per (campaign, applicant), rejected included:
		// a rejected applicant cannot reapply to the same campaign.
		_, err = s.applications.FindByCampaignAndUser(ctx, campaignID, applicantID)
		if err == nil {
			return model.ErrAlreadyApplied
		}
		if !errors.Is(err, model.ErrApplicationNotFound) {
			return err
		}

		count, err := s.applications.CountActive(ctx, campaignID)
		if err != nil {
			return err
		}
		if count >= int64(campaign.TotalQuota) {
			return model.ErrQuotaExceeded
		}

		app = model.Application{
			CampaignID: campaignID,
			UserID:     applicantID,
			Status:     model.ApplicationStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return s.applications.Insert(ctx, &app)
	})
	if err != nil {
		result = reserveResultLabel(err)
		return model.Application{}, err
	}

	result = "reserved"
	return app, nil
}

// Approve transitions a pending application to approved. Approving an
// already-approved application is a no-op success so owner clients can
// retry the call safely. The quota is re-checked here because more
// applications can be pending than there are free slots.
func (s *ApplicationService) Approve(
	ctx context.Context, applicationID int64, owner model.Principal,
) (model.Application, error) {
	var result model.Application
	err := s.provider.Transact(ctx, func(ctx context.Context) error {
		app, err := s.applications.Lock(ctx, applicationID)
		if err != nil {
			return err
		}
		campaign, err := s.campaigns.Lock(ctx, app.CampaignID)
		if err != nil {
			return err
		}
		if campaign.OwnerID != owner.ID && owner.Role != model.RoleAdmin {
			return model.ErrForbidden
		}

		switch app.Status {
		case model.ApplicationStatusApproved:
			result = app
			return nil
		case model.ApplicationStatusPending:
			count, err := s.applications.CountActive(ctx, app.CampaignID)
			if err != nil {
				return err
			}
			if count >= int64(campaign.TotalQuota) {
				return model.ErrQuotaExceeded
			}

			now := s.clock.Now()
			if err := s.applications.UpdateStatus(ctx, app.ID, model.ApplicationStatusApproved, now); err != nil {
				return err
			}
			app.Status = model.ApplicationStatusApproved
			app.UpdatedAt = now
			result = app
			return nil
		default:
			return model.ErrInvalidTransition
		}
	})
	return result, err
}

// Reject transitions a pending application to rejected. Terminal: the
// slot pair stays consumed and the applicant cannot reapply. Rejecting
// twice is a no-op success.
func (s *ApplicationService) Reject(
	ctx context.Context, applicationID int64, owner model.Principal,
) (model.Application, error) {
	var result model.Application
	err := s.provider.Transact(ctx, func(ctx context.Context) error {
		app, err := s.applications.Lock(ctx, applicationID)
		if err != nil {
			return err
		}
		campaign, err := s.campaigns.Lock(ctx, app.CampaignID)
		if err != nil {
			return err
		}
		if campaign.OwnerID != owner.ID && owner.Role != model.RoleAdmin {
			return model.ErrForbidden
		}

		switch app.Status {
		case model.ApplicationStatusRejected:
			result = app
			return nil
		case model.ApplicationStatusPending:
			now := s.clock.Now()
			if err := s.applications.UpdateStatus(ctx, app.ID, model.ApplicationStatusRejected, now); err != nil {
				return err
			}
			app.Status = model.ApplicationStatusRejected
			app.UpdatedAt = now
			result = app
			return nil
		default:
			return model.ErrInvalidTransition
		}
	})
	return result, err
}

// Get returns a single application, visible to its applicant and the
// campaign owner.
func (s *ApplicationService) Get(
	ctx context.Context, applicationID int64, principal model.Principal,
) (model.Application, error) {
	ctx = s.provider.Readonly(ctx)
	app, err := s.applications.Get(ctx, applicationID)
	if err != nil {
		return model.Application{}, err
	}
	if app.UserID == principal.ID || principal.Role == model.RoleAdmin {
		return app, nil
	}
	campaign, err := s.campaigns.Get(ctx, app.CampaignID)
	if err != nil {
		return model.Application{}, err
	}
	if campaign.OwnerID != principal.ID {
		return model.Application{}, model.ErrForbidden
	}
	return app, nil
}

// ListByCampaign returns a campaign's applications for its owner.
func (s *ApplicationService) ListByCampaign(
	ctx context.Context, campaignID int64, owner model.Principal,
) ([]model.Application, error) {
	ctx = s.provider.Readonly(ctx)
	campaign, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.OwnerID != owner.ID && owner.Role != model.RoleAdmin {
		return nil, model.ErrForbidden
	}
	return s.applications.ListByCampaign(ctx, campaignID)
}

// ListByApplicant returns all of an applicant's own applications.
func (s *ApplicationService) ListByApplicant(
	ctx context.Context, applicantID string,
) ([]model.Application, error) {
	return s.applications.ListByUser(s.provider.Readonly(ctx), applicantID)
}

// completeApplication moves an approved application to completed. Only
// the QR scan path calls this, inside the scan transaction; completion
// is never a direct user action.
func completeApplication(
	ctx context.Context,
	applications repository.Application,
	app model.Application,
	now time.Time,
) (model.Application, error) {
	switch app.Status {
	case model.ApplicationStatusCompleted:
		return app, nil
	case model.ApplicationStatusApproved:
		if err := applications.UpdateStatus(ctx, app.ID, model.ApplicationStatusCompleted, now); err != nil {
			return model.Application{}, err
		}
		app.Status = model.ApplicationStatusCompleted
		app.UpdatedAt = now
		return app, nil
	default:
		return model.Application{}, model.ErrInvalidTransition
	}
}

func reserveResultLabel(err error) string {
	switch {
	case errors.Is(err, model.ErrAlreadyApplied):
		return "already_applied"
	case errors.Is(err, model.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, model.ErrDeadlinePassed):
		return "deadline_passed"
	case errors.Is(err, model.ErrCampaignClosed):
		return "closed"
	default:
		return "error"
	}
}
