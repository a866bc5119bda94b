package model

import (
	"time"
)

// ApplicationStatus is the workflow state of a campaign application.
//
// Legal transitions: pending -> approved -> completed, pending -> rejected.
// Rejected and completed are terminal.
type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "pending"
	ApplicationStatusApproved  ApplicationStatus = "approved"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
	ApplicationStatusCompleted ApplicationStatus = "completed"
)

// HoldsSlot reports whether an application in this status counts against
// the campaign quota.
func (s ApplicationStatus) HoldsSlot() bool {
	return s == ApplicationStatusApproved || s == ApplicationStatusCompleted
}

// Terminal reports whether no further transition is legal from this status.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationStatusRejected || s == ApplicationStatusCompleted
}

// Application represents one applicant's request to join a campaign.
// At most one application exists per (campaign, applicant) pair.
type Application struct {
	ID         int64             `db:"id" json:"id"`
	CampaignID int64             `db:"campaign_id" json:"campaign_id"`
	UserID     string            `db:"user_id" json:"user_id"`
	Status     ApplicationStatus `db:"status" json:"status"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}
