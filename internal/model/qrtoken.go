package model

import (
	"database/sql"
	"time"
)

// QRToken is a time-boxed, single-use proof of a physical store visit,
// issued against an approved application. A token flips unused -> used
// exactly once, and only before its expiry.
type QRToken struct {
	ID            int64          `db:"id" json:"id"`
	ApplicationID int64          `db:"application_id" json:"application_id"`
	Code          string         `db:"code" json:"code"`
	IssuedAt      time.Time      `db:"issued_at" json:"issued_at"`
	ExpiresAt     time.Time      `db:"expires_at" json:"expires_at"`
	IsUsed        bool           `db:"is_used" json:"is_used"`
	UsedAt        sql.NullTime   `db:"used_at" json:"used_at"`
	ScannedBy     sql.NullString `db:"scanned_by" json:"scanned_by"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// Live reports whether the token can still be consumed at the given time.
func (t QRToken) Live(now time.Time) bool {
	return !t.IsUsed && !now.After(t.ExpiresAt)
}

// Expired reports whether the validity window has passed.
func (t QRToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Remaining returns the countdown shown next to the QR code. Derived on
// every poll, never stored.
func (t QRToken) Remaining(now time.Time) time.Duration {
	d := t.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
