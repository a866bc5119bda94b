package model

import (
	"time"

	"github.com/lib/pq"
)

// CampaignStatus is the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

// Campaign represents an experience campaign offered by a store
type Campaign struct {
	ID          int64          `db:"id" json:"id"`
	StoreID     int64          `db:"store_id" json:"store_id"`
	OwnerID     string         `db:"owner_id" json:"owner_id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Benefit     string         `db:"benefit" json:"benefit"`
	TotalQuota  int32          `db:"total_quota" json:"total_quota"`
	RequiredSNS pq.StringArray `db:"required_sns" json:"required_sns"`
	StartDate   time.Time      `db:"start_date" json:"start_date"`
	EndDate     time.Time      `db:"end_date" json:"end_date"`
	Deadline    time.Time      `db:"deadline" json:"deadline"`
	Status      CampaignStatus `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// CampaignSummary is a campaign joined with its store and the number of
// participants currently holding a slot (approved or completed).
// This is the unit the query/filter service operates on.
type CampaignSummary struct {
	Campaign
	StoreName     string        `json:"store_name"`
	StoreCategory StoreCategory `json:"store_category"`
	StoreAddress  string        `json:"store_address"`
	Lat           float64       `json:"lat"`
	Lng           float64       `json:"lng"`
	Participants  int64         `json:"participants"`
}

// Marker is the payload handed to a map marker renderer for one visible
// campaign. The renderer is a black box that draws pins and reports
// clicks carrying the campaign id back.
type Marker struct {
	ID           int64   `json:"id"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Label        string  `json:"label"`
	Participants int64   `json:"current_participants"`
	TotalQuota   int32   `json:"total_quota"`
}
