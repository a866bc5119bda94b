package model

import (
	"time"
)

// StoreCategory is the business category of a store
type StoreCategory string

const (
	StoreCategoryCafe       StoreCategory = "cafe"
	StoreCategoryRestaurant StoreCategory = "restaurant"
	StoreCategoryBar        StoreCategory = "bar"
	StoreCategoryBakery     StoreCategory = "bakery"
	StoreCategoryIzakaya    StoreCategory = "izakaya"
	StoreCategoryKorean     StoreCategory = "korean"
	StoreCategoryChinese    StoreCategory = "chinese"
	StoreCategoryJapanese   StoreCategory = "japanese"
	StoreCategoryWestern    StoreCategory = "western"
)

// StoreStatus is the lifecycle state of a store
type StoreStatus string

const (
	StoreStatusActive   StoreStatus = "active"
	StoreStatusInactive StoreStatus = "inactive"
)

// Store represents a physical store owned by an owner account
type Store struct {
	ID        int64         `db:"id" json:"id"`
	OwnerID   string        `db:"owner_id" json:"owner_id"`
	Name      string        `db:"name" json:"name"`
	Address   string        `db:"address" json:"address"`
	Phone     string        `db:"phone" json:"phone"`
	Category  StoreCategory `db:"category" json:"category"`
	Lat       float64       `db:"lat" json:"lat"`
	Lng       float64       `db:"lng" json:"lng"`
	OpenTime  string        `db:"open_time" json:"open_time"`
	CloseTime string        `db:"close_time" json:"close_time"`
	Status    StoreStatus   `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}
