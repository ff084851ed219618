// Package domain contains persistence models for affiliate links.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Link is a tracked affiliate destination addressed by its short code.
// The cumulative counters are only ever mutated by the capture and
// conversion write paths, never by readers.
type Link struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	ShortCode      string            `gorm:"uniqueIndex;size:64;not null" json:"short_code"`
	DestinationURL string            `gorm:"not null" json:"destination_url"`
	Title          string            `gorm:"size:255" json:"title,omitempty"`
	Category       string            `gorm:"size:64;index" json:"category,omitempty"`
	Platform       string            `gorm:"size:64;index" json:"platform,omitempty"`
	CommissionRate *float64          `json:"commission_rate,omitempty"`
	IsActive       bool              `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
	TotalClicks    int64             `gorm:"not null;default:0" json:"total_clicks"`
	UniqueClicks   int64             `gorm:"not null;default:0" json:"unique_clicks"`
	Conversions    int64             `gorm:"not null;default:0" json:"conversions"`
	Revenue        float64           `gorm:"not null;default:0" json:"revenue"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Link) TableName() string { return "links" }

// Resolvable reports whether the link may still serve redirects at the
// given instant. Inactive and lapsed links stay resolvable to operators
// but answer redirects with a gone signal.
func (l Link) Resolvable(now time.Time) bool {
	if !l.IsActive {
		return false
	}
	if l.ExpiresAt != nil && l.ExpiresAt.Before(now) {
		return false
	}
	return true
}
