package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/gyuwonk/chehum/internal/model"
)

type applicationImpl struct {
}

// NewApplication creates an application repository
func NewApplication() Application {
	return &applicationImpl{}
}

const applicationColumns = `id, campaign_id, user_id, status, created_at, updated_at`

// Insert creates a new application and sets app.ID.
// The UNIQUE (campaign_id, user_id) constraint is the last line of
// defense against duplicate applications racing past the read check.
func (a *applicationImpl) Insert(ctx context.Context, app *model.Application) error {
	query := `
INSERT INTO applications (campaign_id, user_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`
	err := GetTx(ctx).GetContext(ctx, &app.ID, query,
		app.CampaignID, app.UserID, app.Status, app.CreatedAt, app.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return model.ErrAlreadyApplied
	}
	return wrapError("insert application", err)
}

// Get retrieves an application by ID
func (a *applicationImpl) Get(ctx context.Context, id int64) (model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	var app model.Application
	err := GetReadonly(ctx).GetContext(ctx, &app, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Application{}, model.ErrApplicationNotFound
	}
	return app, wrapError("get application", err)
}

// Lock retrieves an application with FOR UPDATE
func (a *applicationImpl) Lock(ctx context.Context, id int64) (model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 FOR UPDATE`

	var app model.Application
	err := GetTx(ctx).GetContext(ctx, &app, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Application{}, model.ErrApplicationNotFound
	}
	return app, wrapError("lock application", err)
}

// FindByCampaignAndUser returns the application for a (campaign, applicant)
// pair regardless of status
func (a *applicationImpl) FindByCampaignAndUser(
	ctx context.Context, campaignID int64, userID string,
) (model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications
WHERE campaign_id = $1 AND user_id = $2`

	var app model.Application
	err := GetReadonly(ctx).GetContext(ctx, &app, query, campaignID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Application{}, model.ErrApplicationNotFound
	}
	return app, wrapError("find application", err)
}

// CountActive counts applications holding a quota slot. The count is
// derived from rows, never stored, so it cannot drift.
func (a *applicationImpl) CountActive(ctx context.Context, campaignID int64) (int64, error) {
	query := `
SELECT COUNT(*) FROM applications
WHERE campaign_id = $1 AND status IN ('approved', 'completed')
`
	var count int64
	err := GetReadonly(ctx).GetContext(ctx, &count, query, campaignID)
	return count, wrapError("count active applications", err)
}

// CountActiveForCampaigns counts slot holders for many campaigns at once
func (a *applicationImpl) CountActiveForCampaigns(
	ctx context.Context, campaignIDs []int64,
) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(campaignIDs))
	if len(campaignIDs) == 0 {
		return counts, nil
	}

	query := `
SELECT campaign_id, COUNT(*) AS cnt FROM applications
WHERE campaign_id = ANY($1) AND status IN ('approved', 'completed')
GROUP BY campaign_id
`
	var rows []struct {
		CampaignID int64 `db:"campaign_id"`
		Count      int64 `db:"cnt"`
	}
	err := GetReadonly(ctx).SelectContext(ctx, &rows, query, pq.Array(campaignIDs))
	if err != nil {
		return nil, wrapError("count active applications", err)
	}
	for _, row := range rows {
		counts[row.CampaignID] = row.Count
	}
	return counts, nil
}

// UpdateStatus transitions an application
func (a *applicationImpl) UpdateStatus(
	ctx context.Context, id int64, status model.ApplicationStatus, updatedAt time.Time,
) error {
	query := `UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := GetTx(ctx).ExecContext(ctx, query, status, updatedAt, id)
	if err != nil {
		return wrapError("update application status", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapError("update application status", err)
	}
	if affected == 0 {
		return model.ErrApplicationNotFound
	}
	return nil
}

// ListByCampaign lists a campaign's applications in insertion order
func (a *applicationImpl) ListByCampaign(ctx context.Context, campaignID int64) ([]model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications
WHERE campaign_id = $1 ORDER BY id ASC`

	var apps []model.Application
	err := GetReadonly(ctx).SelectContext(ctx, &apps, query, campaignID)
	return apps, wrapError("list applications by campaign", err)
}

// ListByUser lists an applicant's applications in insertion order
func (a *applicationImpl) ListByUser(ctx context.Context, userID string) ([]model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications
WHERE user_id = $1 ORDER BY id ASC`

	var apps []model.Application
	err := GetReadonly(ctx).SelectContext(ctx, &apps, query, userID)
	return apps, wrapError("list applications by user", err)
}
