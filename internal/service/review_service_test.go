package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyuwonk/chehum/internal/model"
)

func TestReviewService_Create(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.completedApplication(t, campaign.ID, f.influencer)

	review, err := f.reviews.Create(newContext(), f.influencer, app.ID, ReviewInput{
		Rating:  5,
		Content: "아메리카노가 맛있어요",
	})
	require.NoError(t, err)

	assert.Equal(t, app.ID, review.ApplicationID)
	assert.Equal(t, f.influencer.ID, review.UserID)
	assert.Equal(t, campaign.ID, review.CampaignID)
	assert.Equal(t, store.ID, review.StoreID)
	assert.Equal(t, int32(5), review.Rating)
}

func TestReviewService_Create__One_Per_Application(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.completedApplication(t, campaign.ID, f.influencer)

	_, err := f.reviews.Create(newContext(), f.influencer, app.ID, ReviewInput{Rating: 5})
	require.NoError(t, err)

	_, err = f.reviews.Create(newContext(), f.influencer, app.ID, ReviewInput{Rating: 3})
	assert.ErrorIs(t, err, model.ErrAlreadyReviewed)
}

func TestReviewService_Create__Completed_Only(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)

	pending, err := f.applications.TryReserve(newContext(), campaign.ID, f.influencer.ID)
	require.NoError(t, err)

	_, err = f.reviews.Create(newContext(), f.influencer, pending.ID, ReviewInput{Rating: 4})
	assert.ErrorIs(t, err, model.ErrNotCompleted)

	approved := f.approvedApplication(t, campaign.ID, model.Principal{ID: "user-2", Role: model.RoleInfluencer})
	_, err = f.reviews.Create(newContext(), model.Principal{ID: "user-2"}, approved.ID, ReviewInput{Rating: 4})
	assert.ErrorIs(t, err, model.ErrNotCompleted)
}

func TestReviewService_Create__Applicant_Only(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.completedApplication(t, campaign.ID, f.influencer)

	stranger := model.Principal{ID: "user-x", Role: model.RoleInfluencer}
	_, err := f.reviews.Create(newContext(), stranger, app.ID, ReviewInput{Rating: 4})
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestReviewService_Create__Rating_Bounds(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)
	app := f.completedApplication(t, campaign.ID, f.influencer)

	_, err := f.reviews.Create(newContext(), f.influencer, app.ID, ReviewInput{Rating: 0})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = f.reviews.Create(newContext(), f.influencer, app.ID, ReviewInput{Rating: 6})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestReviewService_ListByStore(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)
	campaign := f.newCampaign(t, store.ID, 5)

	ratings := []int32{5, 3}
	for i, rating := range ratings {
		applicant := model.Principal{ID: "user-" + string(rune('a'+i)), Role: model.RoleInfluencer}
		app := f.completedApplication(t, campaign.ID, applicant)
		_, err := f.reviews.Create(newContext(), applicant, app.ID, ReviewInput{Rating: rating})
		require.NoError(t, err)
	}

	result, err := f.reviews.ListByStore(newContext(), store.ID)
	require.NoError(t, err)

	require.Equal(t, 2, len(result.Reviews))
	// newest first
	assert.Equal(t, int32(3), result.Reviews[0].Rating)
	assert.Equal(t, int32(5), result.Reviews[1].Rating)
	assert.Equal(t, 4.0, result.AverageRating)
}

func TestReviewService_ListByStore__Empty(t *testing.T) {
	f := newFixture(t)
	store := f.newStore(t)

	result, err := f.reviews.ListByStore(newContext(), store.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, len(result.Reviews))
	assert.Equal(t, 0.0, result.AverageRating)
}
