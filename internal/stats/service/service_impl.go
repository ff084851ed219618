package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	clickdomain "github.com/linkpulse/linkpulse/internal/click/domain"
	"github.com/linkpulse/linkpulse/internal/clock"
	"github.com/linkpulse/linkpulse/internal/config"
	linkdomain "github.com/linkpulse/linkpulse/internal/link/domain"
	rollupdomain "github.com/linkpulse/linkpulse/internal/rollup/domain"
	statsdomain "github.com/linkpulse/linkpulse/internal/stats/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultTopLimit = 10

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Tracking *config.TrackingConfigHolder
}

// Service answers dashboard reads straight from the three tables. It
// never mutates aggregates; all increments happen inline with the
// triggering write.
type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	tracking *config.TrackingConfigHolder
}

func New(p Params) statsdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("stats.service"),
		clock:    p.Clock,
		tracking: p.Tracking,
	}
}

type counterSums struct {
	TotalClicks  int64
	UniqueClicks int64
	Conversions  int64
	Revenue      float64
}

func (s *Service) Summary(ctx context.Context, req statsdomain.SummaryRequest) (statsdomain.Summary, error) {
	cutoff, err := statsdomain.ParseTimeframe(req.Timeframe, s.clock.Now())
	if err != nil {
		return statsdomain.Summary{}, err
	}

	var linkID *snowflake.ID
	if req.LinkID != nil && strings.TrimSpace(*req.LinkID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(*req.LinkID))
		if err != nil || id == 0 {
			return statsdomain.Summary{}, linkdomain.ErrInvalidID
		}
		linkID = &id
	}

	activeQuery := s.db.WithContext(ctx).
		Model(&linkdomain.Link{}).
		Where("is_active = ?", true)
	if linkID != nil {
		activeQuery = activeQuery.Where("id = ?", *linkID)
	}
	var activeLinks int64
	if err := activeQuery.Count(&activeLinks).Error; err != nil {
		return statsdomain.Summary{}, err
	}

	var sums counterSums
	if cutoff == nil {
		// Lifetime view reads the cumulative link counters.
		query := s.db.WithContext(ctx).
			Model(&linkdomain.Link{}).
			Select(`COALESCE(SUM(total_clicks), 0) AS total_clicks,
				COALESCE(SUM(unique_clicks), 0) AS unique_clicks,
				COALESCE(SUM(conversions), 0) AS conversions,
				COALESCE(SUM(revenue), 0) AS revenue`)
		if linkID != nil {
			query = query.Where("id = ?", *linkID)
		}
		if err := query.Scan(&sums).Error; err != nil {
			return statsdomain.Summary{}, err
		}
	} else {
		// Bounded views sum the daily rollup from the cutoff day on.
		query := s.db.WithContext(ctx).
			Model(&rollupdomain.DailyPerformance{}).
			Select(`COALESCE(SUM(clicks), 0) AS total_clicks,
				COALESCE(SUM(unique_visitors), 0) AS unique_clicks,
				COALESCE(SUM(conversions), 0) AS conversions,
				COALESCE(SUM(revenue), 0) AS revenue`).
			Where("date >= ?", rollupdomain.BucketDate(*cutoff, s.location()))
		if linkID != nil {
			query = query.Where("link_id = ?", *linkID)
		}
		if err := query.Scan(&sums).Error; err != nil {
			return statsdomain.Summary{}, err
		}
	}

	return statsdomain.Summary{
		TotalClicks:    sums.TotalClicks,
		UniqueClicks:   sums.UniqueClicks,
		Conversions:    sums.Conversions,
		Revenue:        sums.Revenue,
		ActiveLinks:    activeLinks,
		CTR:            statsdomain.Ratio(sums.UniqueClicks, sums.TotalClicks),
		ConversionRate: statsdomain.Ratio(sums.Conversions, sums.TotalClicks),
	}, nil
}

func (s *Service) TopLinks(ctx context.Context, limit int) ([]statsdomain.RankedLink, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}

	var links []linkdomain.Link
	err := s.db.WithContext(ctx).
		Order("total_clicks DESC").
		Limit(limit).
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	ranked := make([]statsdomain.RankedLink, 0, len(links))
	for _, link := range links {
		ranked = append(ranked, statsdomain.RankedLink{
			LinkID:         link.ID.String(),
			ShortCode:      link.ShortCode,
			Title:          link.Title,
			Category:       link.Category,
			TotalClicks:    link.TotalClicks,
			UniqueClicks:   link.UniqueClicks,
			Conversions:    link.Conversions,
			Revenue:        link.Revenue,
			CTR:            statsdomain.Ratio(link.UniqueClicks, link.TotalClicks),
			ConversionRate: statsdomain.Ratio(link.Conversions, link.TotalClicks),
		})
	}
	return ranked, nil
}

func (s *Service) Timeline(ctx context.Context, timeframe string) ([]statsdomain.TimelinePoint, error) {
	cutoff, err := statsdomain.ParseTimeframe(timeframe, s.clock.Now())
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&clickdomain.Click{})
	if cutoff != nil {
		query = query.Where("clicked_at >= ?", *cutoff)
	}
	var clicks []clickdomain.Click
	if err := query.Select("ip_address", "clicked_at").Find(&clicks).Error; err != nil {
		return nil, err
	}

	// Bucketing happens here rather than in SQL so the calendar date
	// follows the business timezone on every dialect.
	loc := s.location()
	days := map[string]*statsdomain.TimelinePoint{}
	visitors := map[string]map[string]struct{}{}
	for _, click := range clicks {
		date := rollupdomain.BucketDate(click.ClickedAt, loc)
		point, ok := days[date]
		if !ok {
			point = &statsdomain.TimelinePoint{Date: date}
			days[date] = point
			visitors[date] = map[string]struct{}{}
		}
		point.Clicks++
		if click.IPAddress != "" {
			visitors[date][click.IPAddress] = struct{}{}
		}
	}

	timeline := make([]statsdomain.TimelinePoint, 0, len(days))
	for date, point := range days {
		point.UniqueVisitors = int64(len(visitors[date]))
		timeline = append(timeline, *point)
	}
	sort.Slice(timeline, func(i, j int) bool {
		return timeline[i].Date > timeline[j].Date
	})
	return timeline, nil
}

func (s *Service) DeviceBreakdown(ctx context.Context, timeframe string) ([]statsdomain.DeviceSlice, error) {
	cutoff, err := statsdomain.ParseTimeframe(timeframe, s.clock.Now())
	if err != nil {
		return nil, err
	}

	type deviceCount struct {
		DeviceType string
		Clicks     int64
	}

	query := s.db.WithContext(ctx).
		Model(&clickdomain.Click{}).
		Select("device_type, COUNT(*) AS clicks").
		Group("device_type").
		Order("clicks DESC")
	if cutoff != nil {
		query = query.Where("clicked_at >= ?", *cutoff)
	}
	var counts []deviceCount
	if err := query.Scan(&counts).Error; err != nil {
		return nil, err
	}

	var total int64
	for _, c := range counts {
		total += c.Clicks
	}

	slices := make([]statsdomain.DeviceSlice, 0, len(counts))
	for _, c := range counts {
		slices = append(slices, statsdomain.DeviceSlice{
			DeviceType: c.DeviceType,
			Clicks:     c.Clicks,
			Percentage: statsdomain.Ratio(c.Clicks, total),
		})
	}
	return slices, nil
}

func (s *Service) CategoryPerformance(ctx context.Context) ([]statsdomain.CategoryRow, error) {
	type categoryCount struct {
		Category    string
		Links       int64
		Clicks      int64
		Conversions int64
		Revenue     float64
	}

	var counts []categoryCount
	err := s.db.WithContext(ctx).
		Model(&linkdomain.Link{}).
		Select(`category,
			COUNT(*) AS links,
			COALESCE(SUM(total_clicks), 0) AS clicks,
			COALESCE(SUM(conversions), 0) AS conversions,
			COALESCE(SUM(revenue), 0) AS revenue`).
		Where("is_active = ?", true).
		Group("category").
		Order("clicks DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	rows := make([]statsdomain.CategoryRow, 0, len(counts))
	for _, c := range counts {
		category := c.Category
		if category == "" {
			category = "uncategorized"
		}
		rows = append(rows, statsdomain.CategoryRow{
			Category:       category,
			Links:          c.Links,
			Clicks:         c.Clicks,
			Conversions:    c.Conversions,
			Revenue:        c.Revenue,
			ConversionRate: statsdomain.Ratio(c.Conversions, c.Clicks),
		})
	}
	return rows, nil
}

func (s *Service) Export(ctx context.Context, w io.Writer, req statsdomain.ExportRequest) error {
	switch req.Type {
	case "links":
		return s.exportLinks(ctx, w, req.From, req.To)
	case "clicks":
		return s.exportClicks(ctx, w, req.From, req.To)
	default:
		return statsdomain.ErrInvalidExportType
	}
}

func (s *Service) exportLinks(ctx context.Context, w io.Writer, from, to *time.Time) error {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var links []linkdomain.Link
	if err := query.Find(&links).Error; err != nil {
		return err
	}

	out := csv.NewWriter(w)
	header := []string{
		"id", "short_code", "destination_url", "title", "category",
		"platform", "is_active", "total_clicks", "unique_clicks",
		"conversions", "revenue", "created_at",
	}
	if err := out.Write(header); err != nil {
		return err
	}
	for _, link := range links {
		record := []string{
			link.ID.String(),
			link.ShortCode,
			link.DestinationURL,
			link.Title,
			link.Category,
			link.Platform,
			strconv.FormatBool(link.IsActive),
			strconv.FormatInt(link.TotalClicks, 10),
			strconv.FormatInt(link.UniqueClicks, 10),
			strconv.FormatInt(link.Conversions, 10),
			formatMoney(link.Revenue),
			link.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

func (s *Service) exportClicks(ctx context.Context, w io.Writer, from, to *time.Time) error {
	query := s.db.WithContext(ctx).Model(&clickdomain.Click{}).Order("clicked_at DESC")
	if from != nil {
		query = query.Where("clicked_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("clicked_at <= ?", *to)
	}
	var clicks []clickdomain.Click
	if err := query.Find(&clicks).Error; err != nil {
		return err
	}

	out := csv.NewWriter(w)
	header := []string{
		"id", "link_id", "ip_address", "user_agent", "referrer",
		"device_type", "country", "clicked_at", "converted",
		"conversion_value",
	}
	if err := out.Write(header); err != nil {
		return err
	}
	for _, click := range clicks {
		value := ""
		if click.ConversionValue != nil {
			value = formatMoney(*click.ConversionValue)
		}
		record := []string{
			click.ID.String(),
			click.LinkID.String(),
			click.IPAddress,
			click.UserAgent,
			click.Referrer,
			click.DeviceType,
			click.Country,
			click.ClickedAt.UTC().Format(time.RFC3339),
			strconv.FormatBool(click.Converted),
			value,
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

func (s *Service) location() *time.Location {
	if s.tracking == nil {
		return time.UTC
	}
	return s.tracking.Get().Location()
}

func formatMoney(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
