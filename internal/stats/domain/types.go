// Package domain defines the read-side dashboard queries.
package domain

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrInvalidTimeframe  = errors.New("invalid_timeframe")
	ErrInvalidExportType = errors.New("invalid_export_type")
)

// ParseTimeframe translates a dashboard period into a start cutoff.
// A nil cutoff means no lower bound.
func ParseTimeframe(timeframe string, now time.Time) (*time.Time, error) {
	var days int
	switch timeframe {
	case "", "all":
		return nil, nil
	case "1d":
		days = 1
	case "7d":
		days = 7
	case "30d":
		days = 30
	case "90d":
		days = 90
	default:
		return nil, ErrInvalidTimeframe
	}
	cutoff := now.AddDate(0, 0, -days)
	return &cutoff, nil
}

type Summary struct {
	TotalClicks    int64   `json:"total_clicks"`
	UniqueClicks   int64   `json:"unique_clicks"`
	Conversions    int64   `json:"conversions"`
	Revenue        float64 `json:"revenue"`
	ActiveLinks    int64   `json:"active_links"`
	CTR            float64 `json:"ctr"`
	ConversionRate float64 `json:"conversion_rate"`
}

// RankedLink is one row of the top-links board.
type RankedLink struct {
	LinkID         string  `json:"link_id"`
	ShortCode      string  `json:"short_code"`
	Title          string  `json:"title,omitempty"`
	Category       string  `json:"category,omitempty"`
	TotalClicks    int64   `json:"total_clicks"`
	UniqueClicks   int64   `json:"unique_clicks"`
	Conversions    int64   `json:"conversions"`
	Revenue        float64 `json:"revenue"`
	CTR            float64 `json:"ctr"`
	ConversionRate float64 `json:"conversion_rate"`
}

// TimelinePoint is one calendar day of click activity.
type TimelinePoint struct {
	Date           string `json:"date"`
	Clicks         int64  `json:"clicks"`
	UniqueVisitors int64  `json:"unique_visitors"`
}

// DeviceSlice is one device bucket's share of the period.
type DeviceSlice struct {
	DeviceType string  `json:"device_type"`
	Clicks     int64   `json:"clicks"`
	Percentage float64 `json:"percentage"`
}

// CategoryRow aggregates active links per category.
type CategoryRow struct {
	Category       string  `json:"category"`
	Links          int64   `json:"links"`
	Clicks         int64   `json:"clicks"`
	Conversions    int64   `json:"conversions"`
	Revenue        float64 `json:"revenue"`
	ConversionRate float64 `json:"conversion_rate"`
}

type SummaryRequest struct {
	Timeframe string
	LinkID    *string
}

type ExportRequest struct {
	Type string
	From *time.Time
	To   *time.Time
}

type Service interface {
	Summary(ctx context.Context, req SummaryRequest) (Summary, error)
	TopLinks(ctx context.Context, limit int) ([]RankedLink, error)
	Timeline(ctx context.Context, timeframe string) ([]TimelinePoint, error)
	DeviceBreakdown(ctx context.Context, timeframe string) ([]DeviceSlice, error)
	CategoryPerformance(ctx context.Context) ([]CategoryRow, error)
	Export(ctx context.Context, w io.Writer, req ExportRequest) error
}

// Ratio is the shared null-safe percentage helper: a zero denominator
// yields zero instead of dividing.
func Ratio(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator) * 100
}
