package service

import (
	"context"
	"time"

	"github.com/gyuwonk/chehum/internal/clock"
	"github.com/gyuwonk/chehum/internal/model"
	"github.com/gyuwonk/chehum/internal/query"
	"github.com/gyuwonk/chehum/internal/repository"
)

// CampaignService manages campaign lifecycle and the read side consumed
// by listing screens and the map.
type CampaignService struct {
	provider     repository.Provider
	campaigns    repository.Campaign
	stores       repository.Store
	applications repository.Application
	clock        clock.Clock
}

// NewCampaignService creates a new CampaignService instance
func NewCampaignService(
	provider repository.Provider,
	campaigns repository.Campaign,
	stores repository.Store,
	applications repository.Application,
	clk clock.Clock,
) *CampaignService {
	return &CampaignService{
		provider:     provider,
		campaigns:    campaigns,
		stores:       stores,
		applications: applications,
		clock:        clk,
	}
}

// CampaignInput carries the owner-editable campaign fields.
type CampaignInput struct {
	StoreID     int64     `json:"store_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Benefit     string    `json:"benefit"`
	TotalQuota  int32     `json:"total_quota"`
	RequiredSNS []string  `json:"required_sns"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Deadline    time.Time `json:"deadline"`
}

func (in CampaignInput) validate() error {
	if in.Name == "" || in.TotalQuota <= 0 {
		return model.ErrInvalidArgument
	}
	if in.EndDate.Before(in.StartDate) || in.Deadline.After(in.EndDate) {
		return model.ErrInvalidArgument
	}
	return nil
}

// Create opens a new campaign on one of the owner's stores.
func (s *CampaignService) Create(
	ctx context.Context, owner model.Principal, in CampaignInput,
) (model.Campaign, error) {
	if err := in.validate(); err != nil {
		return model.Campaign{}, err
	}

	var campaign model.Campaign
	err := s.provider.Transact(ctx, func(ctx context.Context) error {
		store, err := s.stores.Get(ctx, in.StoreID)
		if err != nil {
			return err
		}
		if store.OwnerID != owner.ID && owner.Role != model.RoleAdmin {
			return model.ErrForbidden
		}

		now := s.clock.Now()
		campaign = model.Campaign{
			StoreID:     store.ID,
			OwnerID:     store.OwnerID,
			Name:        in.Name,
			Description: in.Description,
			Benefit:     in.Benefit,
			TotalQuota:  in.TotalQuota,
			RequiredSNS: in.RequiredSNS,
			StartDate:   in.StartDate,
			EndDate:     in.EndDate,
			Deadline:    in.Deadline,
			Status:      model.CampaignStatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if campaign.RequiredSNS == nil {
			campaign.RequiredSNS = []string{}
		}
		return s.campaigns.Insert(ctx, &campaign)
	})
	return campaign, err
}

// Update edits an active campaign. Only the owner may edit, and only
// while the campaign is still active.
func (s *CampaignService) Update(
	ctx context.Context, owner model.Principal, campaignID int64, in CampaignInput,
) (model.Campaign, error) {
	if err := in.validate(); err != nil {
		return model.Campaign{}, err
	}

	var campaign model.Campaign
	err := s.provider.Transact(ctx, func(ctx context.Context) error {
		var err error
		campaign, err = s.campaigns.Lock(ctx, campaignID)
		if err != nil {
			return err
		}
		if campaign.OwnerID != owner.ID && owner.Role != model.RoleAdmin {
			return model.ErrForbidden
		}
		if campaign.Status != model.CampaignStatusActive {
			return model.ErrInvalidTransition
		}

		// the quota can never drop below the slots already handed out
		holders, err := s.applications.CountActive(ctx, campaign.ID)
		if err != nil {
			return err
		}
		if int64(in.TotalQuota) < holders {
			return model.ErrQuotaExceeded
		}

		campaign.Name = in.Name
		campaign.Description = in.Description
		campaign.Benefit = in.Benefit
		campaign.TotalQuota = in.TotalQuota
		campaign.RequiredSNS = in.RequiredSNS
		if campaign.RequiredSNS == nil {
			campaign.RequiredSNS = []string{}
		}
		campaign.StartDate = in.StartDate
		campaign.EndDate = in.EndDate
		campaign.Deadline = in.Deadline
		campaign.UpdatedAt = s.clock.Now()
		return s.campaigns.Update(ctx, campaign)
	})
	return campaign, err
}

// Complete closes an active campaign as finished.
func (s *CampaignService) Complete(
	ctx context.Context, owner model.Principal, campaignID int64,
) (model.Campaign, error) {
	return s.transition(ctx, owner, campaignID, model.CampaignStatusCompleted)
}

// Cancel closes an active campaign without finishing it. Campaigns are
// never deleted, only status-transitioned.
func (s *CampaignService) Cancel(
	ctx context.Context, owner model.Principal, campaignID int64,
) (model.Campaign, error) {
	return s.transition(ctx, owner, campaignID, model.CampaignStatusCancelled)
}

func (s *CampaignService) transition(
	ctx context.Context, owner model.Principal, campaignID int64, target model.CampaignStatus,
) (model.Campaign, error) {
	var campaign model.Campaign
	err := s.provider.Transact(ctx, func(ctx context.Context) error {
		var err error
		campaign, err = s.campaigns.Lock(ctx, campaignID)
		if err != nil {
			return err
		}
		if campaign.OwnerID != owner.ID && owner.Role != model.RoleAdmin {
			return model.ErrForbidden
		}
		if campaign.Status == target {
			return nil
		}
		if campaign.Status != model.CampaignStatusActive {
			return model.ErrInvalidTransition
		}

		campaign.Status = target
		campaign.UpdatedAt = s.clock.Now()
		return s.campaigns.Update(ctx, campaign)
	})
	return campaign, err
}

// Get returns one campaign joined with its store and participant count.
func (s *CampaignService) Get(ctx context.Context, campaignID int64) (model.CampaignSummary, error) {
	ctx = s.provider.Readonly(ctx)

	campaign, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return model.CampaignSummary{}, err
	}
	store, err := s.stores.Get(ctx, campaign.StoreID)
	if err != nil {
		return model.CampaignSummary{}, err
	}
	count, err := s.applications.CountActive(ctx, campaignID)
	if err != nil {
		return model.CampaignSummary{}, err
	}
	return summarize(campaign, store, count), nil
}

// ListActive returns the active campaign set filtered and ordered by the
// given query.
func (s *CampaignService) ListActive(ctx context.Context, q query.Query) ([]model.CampaignSummary, error) {
	summaries, err := s.activeSummaries(ctx)
	if err != nil {
		return nil, err
	}
	return query.Run(summaries, q), nil
}

// ListByOwner returns the owner's campaigns with participant counts.
func (s *CampaignService) ListByOwner(
	ctx context.Context, owner model.Principal,
) ([]model.CampaignSummary, error) {
	ctx = s.provider.Readonly(ctx)
	campaigns, err := s.campaigns.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	return s.summarizeAll(ctx, campaigns)
}

// Markers returns the marker payloads for every active campaign. The map
// SDK consuming these is a black box on the other side of the API.
func (s *CampaignService) Markers(ctx context.Context) ([]model.Marker, error) {
	summaries, err := s.activeSummaries(ctx)
	if err != nil {
		return nil, err
	}

	markers := make([]model.Marker, 0, len(summaries))
	for _, summary := range summaries {
		markers = append(markers, model.Marker{
			ID:           summary.ID,
			Lat:          summary.Lat,
			Lng:          summary.Lng,
			Label:        summary.Name,
			Participants: summary.Participants,
			TotalQuota:   summary.TotalQuota,
		})
	}
	return markers, nil
}

func (s *CampaignService) activeSummaries(ctx context.Context) ([]model.CampaignSummary, error) {
	ctx = s.provider.Readonly(ctx)
	campaigns, err := s.campaigns.ListByStatus(ctx, model.CampaignStatusActive)
	if err != nil {
		return nil, err
	}
	return s.summarizeAll(ctx, campaigns)
}

func (s *CampaignService) summarizeAll(
	ctx context.Context, campaigns []model.Campaign,
) ([]model.CampaignSummary, error) {
	storeIDs := make([]int64, 0, len(campaigns))
	campaignIDs := make([]int64, 0, len(campaigns))
	for _, c := range campaigns {
		storeIDs = append(storeIDs, c.StoreID)
		campaignIDs = append(campaignIDs, c.ID)
	}

	stores, err := s.stores.GetMulti(ctx, storeIDs)
	if err != nil {
		return nil, err
	}
	counts, err := s.applications.CountActiveForCampaigns(ctx, campaignIDs)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.CampaignSummary, 0, len(campaigns))
	for _, c := range campaigns {
		summaries = append(summaries, summarize(c, stores[c.StoreID], counts[c.ID]))
	}
	return summaries, nil
}

func summarize(campaign model.Campaign, store model.Store, participants int64) model.CampaignSummary {
	return model.CampaignSummary{
		Campaign:      campaign,
		StoreName:     store.Name,
		StoreCategory: store.Category,
		StoreAddress:  store.Address,
		Lat:           store.Lat,
		Lng:           store.Lng,
		Participants:  participants,
	}
}
