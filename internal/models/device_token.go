package models

import "time"

type DeviceToken struct {
	ID        uint   `gorm:"primaryKey"`
	VendorID  uint   `gorm:"index;not null"`
	Token     string `gorm:"size:255;not null;uniqueIndex"`
	Platform  string `gorm:"size:20"` // android / ios / web
	CreatedAt time.Time
	UpdatedAt time.Time
}
