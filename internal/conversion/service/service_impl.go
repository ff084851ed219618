package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	clickdomain "github.com/linkpulse/linkpulse/internal/click/domain"
	"github.com/linkpulse/linkpulse/internal/clock"
	"github.com/linkpulse/linkpulse/internal/config"
	conversiondomain "github.com/linkpulse/linkpulse/internal/conversion/domain"
	linkdomain "github.com/linkpulse/linkpulse/internal/link/domain"
	"github.com/linkpulse/linkpulse/internal/liveevents"
	"github.com/linkpulse/linkpulse/internal/observability/metrics"
	rollupdomain "github.com/linkpulse/linkpulse/internal/rollup/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Tracking *config.TrackingConfigHolder
	Links    linkdomain.Repository
	Clicks   clickdomain.Repository
	Rollup   rollupdomain.Repository
	Hub      *liveevents.Hub
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	tracking *config.TrackingConfigHolder
	links    linkdomain.Repository
	clicks   clickdomain.Repository
	rollup   rollupdomain.Repository
	hub      *liveevents.Hub
	metrics  *metrics.Metrics
}

func New(p Params) conversiondomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("conversion.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		tracking: p.Tracking,
		links:    p.Links,
		clicks:   p.Clicks,
		rollup:   p.Rollup,
		hub:      p.Hub,
		metrics:  p.Metrics,
	}
}

// Record folds a confirmed conversion into the link's cumulative
// counters and the arrival-date daily row. Unlike the redirect path,
// storage failures here surface to the caller: conversions carry money
// and the webhook sender retries on error.
func (s *Service) Record(ctx context.Context, req conversiondomain.RecordConversionRequest) error {
	linkID, err := snowflake.ParseString(strings.TrimSpace(req.LinkID))
	if err != nil || linkID == 0 {
		return linkdomain.ErrInvalidID
	}

	link, err := s.links.FindByID(ctx, s.db, linkID)
	if err != nil {
		return err
	}
	if link == nil {
		return linkdomain.ErrNotFound
	}

	value := 0.0
	if req.Value != nil {
		value = *req.Value
	}

	if req.ClickID != nil {
		s.backfillClick(ctx, link.ID, *req.ClickID, value)
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.rollup.IncrementLinkConversions(ctx, tx, rollupdomain.ConversionDelta{
			LinkID: link.ID,
			Value:  value,
		}); err != nil {
			return err
		}
		return s.rollup.UpsertDailyConversions(ctx, tx, &rollupdomain.DailyPerformance{
			ID:          s.genID.Generate(),
			LinkID:      link.ID,
			Date:        rollupdomain.BucketDate(now, s.location()),
			Conversions: 1,
			Revenue:     value,
			UpdatedAt:   now,
		})
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordConversion(ctx)
	}

	s.hub.Publish(liveevents.Event{
		Type:      liveevents.TypeConversion,
		LinkID:    link.ID.String(),
		ShortCode: link.ShortCode,
		Title:     link.Title,
		Value:     value,
	})

	return nil
}

// backfillClick marks the referenced click converted. A stale or
// foreign reference is tolerated: webhooks arrive long after the click
// and sometimes reference one that was pruned.
func (s *Service) backfillClick(ctx context.Context, linkID snowflake.ID, rawClickID string, value float64) {
	log := s.log.With(
		zap.String("link_id", linkID.String()),
		zap.String("click_id", rawClickID),
	)

	clickID, err := snowflake.ParseString(strings.TrimSpace(rawClickID))
	if err != nil || clickID == 0 {
		log.Warn("conversion referenced malformed click id")
		return
	}

	click, err := s.clicks.FindByID(ctx, s.db, clickID)
	if err != nil {
		log.Warn("click lookup failed", zap.Error(err))
		return
	}
	if click == nil || click.LinkID != linkID {
		log.Warn("conversion referenced stale click")
		return
	}

	marked, err := s.clicks.MarkConverted(ctx, s.db, clickID, value)
	if err != nil {
		log.Warn("click back-fill failed", zap.Error(err))
		return
	}
	if !marked {
		log.Warn("click already converted")
	}
}

func (s *Service) location() *time.Location {
	if s.tracking == nil {
		return time.UTC
	}
	return s.tracking.Get().Location()
}
