package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ConversionDelta describes one attributed conversion.
type ConversionDelta struct {
	LinkID snowflake.ID
	Date   string
	Value  float64
}

// Repository exposes only atomic increment operations. There is no
// read-modify-write path: every mutation is a single SQL statement (or
// an insert-or-increment upsert), so N concurrent writers net exactly N.
//
// IncrementLinkClicks doubles as the serialization point for click
// capture: inside a capture transaction its update takes the link row
// lock, and the unique-visitor decision reads after it.
type Repository interface {
	IncrementLinkClicks(ctx context.Context, db *gorm.DB, linkID snowflake.ID) error
	IncrementLinkUniqueClicks(ctx context.Context, db *gorm.DB, linkID snowflake.ID) error
	IncrementLinkConversions(ctx context.Context, db *gorm.DB, delta ConversionDelta) error
	UpsertDailyClicks(ctx context.Context, db *gorm.DB, row *DailyPerformance) error
	UpsertDailyConversions(ctx context.Context, db *gorm.DB, row *DailyPerformance) error
}
