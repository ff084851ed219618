// Package domain contains the click capture models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Click is one captured redirect request. Rows are immutable except for
// the conversion back-fill, which is settable exactly once.
type Click struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	LinkID          snowflake.ID `gorm:"index;not null" json:"link_id"`
	IPAddress       string       `gorm:"size:64" json:"ip_address"`
	UserAgent       string       `gorm:"size:512" json:"user_agent"`
	Referrer        string       `gorm:"size:512" json:"referrer"`
	DeviceType      string       `gorm:"size:16;index" json:"device_type"`
	Country         string       `gorm:"size:64" json:"country,omitempty"`
	ClickedAt       time.Time    `gorm:"index;not null" json:"clicked_at"`
	Converted       bool         `gorm:"not null;default:false" json:"converted"`
	ConversionValue *float64     `json:"conversion_value,omitempty"`
}

// TableName sets the database table name.
func (Click) TableName() string { return "clicks" }

// RequestContext carries the request metadata the transport layer saw.
type RequestContext struct {
	IPAddress string
	UserAgent string
	Referrer  string
	Country   string
}
