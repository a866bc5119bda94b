package service

import (
	"context"

	"github.com/gyuwonk/chehum/internal/clock"
	"github.com/gyuwonk/chehum/internal/model"
	"github.com/gyuwonk/chehum/internal/repository"
)

// ReviewService lets influencers review stores after a completed visit.
type ReviewService struct {
	provider     repository.Provider
	applications repository.Application
	campaigns    repository.Campaign
	reviews      repository.Review
	clock        clock.Clock
}

// NewReviewService creates a new ReviewService instance
func NewReviewService(
	provider repository.Provider,
	applications repository.Application,
	campaigns repository.Campaign,
	reviews repository.Review,
	clk clock.Clock,
) *ReviewService {
	return &ReviewService{
		provider:     provider,
		applications: applications,
		campaigns:    campaigns,
		reviews:      reviews,
		clock:        clk,
	}
}

// ReviewInput carries the review fields.
type ReviewInput struct {
	Rating  int32  `json:"rating"`
	Content string `json:"content"`
}

// Create writes the single review allowed per completed application.
func (s *ReviewService) Create(
	ctx context.Context, applicant model.Principal, applicationID int64, in ReviewInput,
) (model.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return model.Review{}, model.ErrInvalidArgument
	}

	var review model.Review
	err := s.provider.Transact(ctx, func(ctx context.Context) error {
		app, err := s.applications.Lock(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.UserID != applicant.ID {
			return model.ErrForbidden
		}
		if app.Status != model.ApplicationStatusCompleted {
			return model.ErrNotCompleted
		}

		campaign, err := s.campaigns.Get(ctx, app.CampaignID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		review = model.Review{
			ApplicationID: app.ID,
			UserID:        applicant.ID,
			CampaignID:    campaign.ID,
			StoreID:       campaign.StoreID,
			Rating:        in.Rating,
			Content:       in.Content,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.reviews.Insert(ctx, &review)
	})
	return review, err
}

// StoreReviews is a store's review list with its average rating.
type StoreReviews struct {
	Reviews       []model.Review `json:"reviews"`
	AverageRating float64        `json:"average_rating"`
}

// ListByStore returns a store's reviews, newest first, with the average.
func (s *ReviewService) ListByStore(ctx context.Context, storeID int64) (StoreReviews, error) {
	reviews, err := s.reviews.ListByStore(s.provider.Readonly(ctx), storeID)
	if err != nil {
		return StoreReviews{}, err
	}

	var sum int64
	for _, review := range reviews {
		sum += int64(review.Rating)
	}
	result := StoreReviews{Reviews: reviews}
	if len(reviews) > 0 {
		result.AverageRating = float64(sum) / float64(len(reviews))
	}
	return result, nil
}
