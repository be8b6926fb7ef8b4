package models

import "time"

type UserRole string

const (
	RoleSuperAdmin UserRole = "super_admin"
	RoleVendor     UserRole = "vendor"
)

// User is a login. Vendor owners carry VendorID; admins log in by email.
type User struct {
	ID           uint  `gorm:"primaryKey"`
	VendorID     *uint `gorm:"index"`
	Vendor       *Vendor
	Name         string   `gorm:"size:100;not null"`
	Email        *string  `gorm:"size:100;uniqueIndex"`
	Phone        *string  `gorm:"size:20;uniqueIndex"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
