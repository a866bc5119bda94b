package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gyuwonk/chehum/internal/model"
)

type campaignImpl struct {
}

// NewCampaign creates a campaign repository
func NewCampaign() Campaign {
	return &campaignImpl{}
}

const campaignColumns = `id, store_id, owner_id, name, description, benefit,
	total_quota, required_sns, start_date, end_date, deadline, status,
	created_at, updated_at`

// Insert creates a new campaign and sets campaign.ID
func (c *campaignImpl) Insert(ctx context.Context, campaign *model.Campaign) error {
	query := `
INSERT INTO campaigns (
	store_id, owner_id, name, description, benefit,
	total_quota, required_sns, start_date, end_date, deadline, status,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id
`
	err := GetTx(ctx).GetContext(ctx, &campaign.ID, query,
		campaign.StoreID, campaign.OwnerID, campaign.Name,
		campaign.Description, campaign.Benefit,
		campaign.TotalQuota, campaign.RequiredSNS,
		campaign.StartDate, campaign.EndDate, campaign.Deadline,
		campaign.Status, campaign.CreatedAt, campaign.UpdatedAt)
	return wrapError("insert campaign", err)
}

// Update overwrites the mutable campaign fields
func (c *campaignImpl) Update(ctx context.Context, campaign model.Campaign) error {
	query := `
UPDATE campaigns
SET name = $1, description = $2, benefit = $3, total_quota = $4,
	required_sns = $5, start_date = $6, end_date = $7, deadline = $8,
	status = $9, updated_at = $10
WHERE id = $11
`
	_, err := GetTx(ctx).ExecContext(ctx, query,
		campaign.Name, campaign.Description, campaign.Benefit,
		campaign.TotalQuota, campaign.RequiredSNS,
		campaign.StartDate, campaign.EndDate, campaign.Deadline,
		campaign.Status, campaign.UpdatedAt, campaign.ID)
	return wrapError("update campaign", err)
}

// Get retrieves a campaign by ID
func (c *campaignImpl) Get(ctx context.Context, id int64) (model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	var campaign model.Campaign
	err := GetReadonly(ctx).GetContext(ctx, &campaign, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Campaign{}, model.ErrCampaignNotFound
	}
	return campaign, wrapError("get campaign", err)
}

// Lock retrieves a campaign with FOR UPDATE so concurrent reservations
// against the same campaign serialize on this row.
func (c *campaignImpl) Lock(ctx context.Context, id int64) (model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1 FOR UPDATE`

	var campaign model.Campaign
	err := GetTx(ctx).GetContext(ctx, &campaign, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Campaign{}, model.ErrCampaignNotFound
	}
	return campaign, wrapError("lock campaign", err)
}

// ListByStatus lists campaigns in insertion order
func (c *campaignImpl) ListByStatus(ctx context.Context, status model.CampaignStatus) ([]model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status = $1 ORDER BY id ASC`

	var campaigns []model.Campaign
	err := GetReadonly(ctx).SelectContext(ctx, &campaigns, query, status)
	return campaigns, wrapError("list campaigns by status", err)
}

// ListByOwner lists an owner's campaigns in insertion order
func (c *campaignImpl) ListByOwner(ctx context.Context, ownerID string) ([]model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE owner_id = $1 ORDER BY id ASC`

	var campaigns []model.Campaign
	err := GetReadonly(ctx).SelectContext(ctx, &campaigns, query, ownerID)
	return campaigns, wrapError("list campaigns by owner", err)
}
