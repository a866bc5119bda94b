package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/gyuwonk/chehum/internal/model"
)

type reviewImpl struct {
}

// NewReview creates a review repository
func NewReview() Review {
	return &reviewImpl{}
}

const reviewColumns = `id, application_id, user_id, campaign_id, store_id,
	rating, content, created_at, updated_at`

// Insert creates a new review and sets review.ID
func (r *reviewImpl) Insert(ctx context.Context, review *model.Review) error {
	query := `
INSERT INTO reviews (
	application_id, user_id, campaign_id, store_id,
	rating, content, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id
`
	err := GetTx(ctx).GetContext(ctx, &review.ID, query,
		review.ApplicationID, review.UserID, review.CampaignID, review.StoreID,
		review.Rating, review.Content, review.CreatedAt, review.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return model.ErrAlreadyReviewed
	}
	return wrapError("insert review", err)
}

// FindByApplication returns the review written for an application
func (r *reviewImpl) FindByApplication(ctx context.Context, applicationID int64) (model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE application_id = $1`

	var review model.Review
	err := GetReadonly(ctx).GetContext(ctx, &review, query, applicationID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Review{}, model.ErrReviewNotFound
	}
	return review, wrapError("find review", err)
}

// ListByStore lists a store's reviews, newest first
func (r *reviewImpl) ListByStore(ctx context.Context, storeID int64) ([]model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE store_id = $1 ORDER BY id DESC`

	var reviews []model.Review
	err := GetReadonly(ctx).SelectContext(ctx, &reviews, query, storeID)
	return reviews, wrapError("list reviews by store", err)
}
