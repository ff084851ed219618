// Package domain contains the per-day aggregation model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DateFormat is the canonical key for a daily bucket.
const DateFormat = "2006-01-02"

// DailyPerformance is one link's aggregate for one calendar day in the
// business timezone. Rows are only ever touched through the atomic
// upsert-increment paths, so concurrent writers can never lose counts.
type DailyPerformance struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	LinkID         snowflake.ID `gorm:"uniqueIndex:idx_daily_link_date;not null" json:"link_id"`
	Date           string       `gorm:"uniqueIndex:idx_daily_link_date;size:10;not null" json:"date"`
	Clicks         int64        `gorm:"not null;default:0" json:"clicks"`
	UniqueVisitors int64        `gorm:"not null;default:0" json:"unique_visitors"`
	Conversions    int64        `gorm:"not null;default:0" json:"conversions"`
	Revenue        float64      `gorm:"not null;default:0" json:"revenue"`
	CTR            float64      `gorm:"not null;default:0" json:"ctr"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (DailyPerformance) TableName() string { return "daily_performance" }

// BucketDate formats an instant as a daily bucket key in the given
// timezone.
func BucketDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateFormat)
}
