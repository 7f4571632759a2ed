package models

import "time"

// Base holds the columns every table carries.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"productId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
