// Package domain contains persistence models for the device registry.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Device is a licensed player/panel device owned by a user.
type Device struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID           snowflake.ID `json:"user_id" gorm:"not null;index"`
	Name             string       `json:"name" gorm:"type:text;not null;default:''"`
	ExpiresAt        *time.Time   `json:"expires_at"`
	LastLicenseCheck *time.Time   `json:"last_license_check"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Device) TableName() string { return "devices" }

// LicenceActive reports whether the device license is currently valid.
func (d Device) LicenceActive(now time.Time) bool {
	return d.ExpiresAt != nil && d.ExpiresAt.After(now)
}
