package model

import (
	"time"
)

// Review is written by an influencer after a completed visit.
// One review per application.
type Review struct {
	ID            int64     `db:"id" json:"id"`
	ApplicationID int64     `db:"application_id" json:"application_id"`
	UserID        string    `db:"user_id" json:"user_id"`
	CampaignID    int64     `db:"campaign_id" json:"campaign_id"`
	StoreID       int64     `db:"store_id" json:"store_id"`
	Rating        int32     `db:"rating" json:"rating"`
	Content       string    `db:"content" json:"content"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
