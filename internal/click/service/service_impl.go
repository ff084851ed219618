package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/linkpulse/linkpulse/internal/cache"
	clickdomain "github.com/linkpulse/linkpulse/internal/click/domain"
	"github.com/linkpulse/linkpulse/internal/clock"
	"github.com/linkpulse/linkpulse/internal/config"
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
	Cache    cache.LinkResolverCache `optional:"true"`
	Metrics  *metrics.Metrics        `optional:"true"`
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
	cache    cache.LinkResolverCache
	metrics  *metrics.Metrics

	pending sync.WaitGroup
}

func New(p Params) clickdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("click.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		tracking: p.Tracking,
		links:    p.Links,
		clicks:   p.Clicks,
		rollup:   p.Rollup,
		hub:      p.Hub,
		cache:    p.Cache,
		metrics:  p.Metrics,
	}
}

func (s *Service) Resolve(ctx context.Context, shortCode string, reqCtx clickdomain.RequestContext) (string, error) {
	code := strings.TrimSpace(shortCode)
	if code == "" {
		return "", linkdomain.ErrNotFound
	}

	link, err := s.lookup(ctx, code)
	if err != nil {
		return "", err
	}
	if link == nil {
		if s.metrics != nil {
			s.metrics.RecordRejectedRedirect(ctx, "not_found")
		}
		return "", linkdomain.ErrNotFound
	}
	if !link.Resolvable(s.clock.Now()) {
		if s.metrics != nil {
			s.metrics.RecordRejectedRedirect(ctx, "gone")
		}
		return "", clickdomain.ErrLinkGone
	}

	// The redirect answers immediately. Capture runs detached so a slow
	// or failing analytics write never keeps the visitor waiting.
	captureCtx := context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.capture(captureCtx, *link, reqCtx)
	}()

	return link.DestinationURL, nil
}

// lookup resolves a short code through the read-through cache. Misses
// and unknown codes always go to storage so new links appear at once.
func (s *Service) lookup(ctx context.Context, code string) (*linkdomain.Link, error) {
	if s.cache != nil {
		if link, ok := s.cache.GetByCode(code); ok {
			return link, nil
		}
	}
	link, err := s.links.FindByShortCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if link != nil && s.cache != nil {
		s.cache.SetByCode(code, link)
	}
	return link, nil
}

// Drain waits for in-flight capture goroutines. Wired to server
// shutdown so the last clicks before an exit still land.
func (s *Service) Drain() {
	s.pending.Wait()
}

// capture persists the click and folds it into the aggregates. The
// writes share one transaction so the unique-visitor decision reads
// under the link row lock taken by the counter update: of any
// concurrent same-address burst exactly one capture sees no other row.
func (s *Service) capture(ctx context.Context, link linkdomain.Link, reqCtx clickdomain.RequestContext) {
	now := s.clock.Now()
	click := clickdomain.Click{
		ID:         s.genID.Generate(),
		LinkID:     link.ID,
		IPAddress:  reqCtx.IPAddress,
		UserAgent:  reqCtx.UserAgent,
		Referrer:   reqCtx.Referrer,
		DeviceType: clickdomain.ClassifyDevice(reqCtx.UserAgent),
		Country:    reqCtx.Country,
		ClickedAt:  now,
	}

	log := s.log.With(
		zap.String("short_code", link.ShortCode),
		zap.String("link_id", link.ID.String()),
	)

	date := rollupdomain.BucketDate(now, s.location())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.clicks.Insert(ctx, tx, &click); err != nil {
			return err
		}
		if err := s.rollup.IncrementLinkClicks(ctx, tx, link.ID); err != nil {
			return err
		}

		unique := false
		if click.IPAddress != "" {
			other, err := s.clicks.OtherFromIP(ctx, tx, link.ID, click.IPAddress, click.ID)
			if err != nil {
				return err
			}
			unique = !other
		}

		uniqueVisitors := int64(0)
		if unique {
			if err := s.rollup.IncrementLinkUniqueClicks(ctx, tx, link.ID); err != nil {
				return err
			}
			uniqueVisitors = 1
		}

		return s.rollup.UpsertDailyClicks(ctx, tx, &rollupdomain.DailyPerformance{
			ID:             s.genID.Generate(),
			LinkID:         link.ID,
			Date:           date,
			Clicks:         1,
			UniqueVisitors: uniqueVisitors,
			UpdatedAt:      now,
		})
	})
	if err != nil {
		log.Warn("click capture failed", zap.Error(err))
		s.captureFallback(ctx, log, link, date, now)
	}

	if s.metrics != nil {
		s.metrics.RecordClick(ctx, click.DeviceType)
	}

	s.hub.Publish(liveevents.Event{
		Type:       liveevents.TypeClick,
		LinkID:     link.ID.String(),
		ShortCode:  link.ShortCode,
		Title:      link.Title,
		DeviceType: click.DeviceType,
		Source:     TruncateIP(click.IPAddress),
	})
}

// captureFallback keeps the counters moving when the transactional
// path rolls back, for example with the clicks table unavailable. The
// uniqueness decision needs the click row, so the fallback counts the
// click as repeat traffic.
func (s *Service) captureFallback(ctx context.Context, log *zap.Logger, link linkdomain.Link, date string, now time.Time) {
	if err := s.rollup.IncrementLinkClicks(ctx, s.db, link.ID); err != nil {
		log.Warn("link counter increment failed", zap.Error(err))
	}
	if err := s.rollup.UpsertDailyClicks(ctx, s.db, &rollupdomain.DailyPerformance{
		ID:        s.genID.Generate(),
		LinkID:    link.ID,
		Date:      date,
		Clicks:    1,
		UpdatedAt: now,
	}); err != nil {
		log.Warn("daily rollup upsert failed", zap.Error(err))
	}
}

func (s *Service) location() *time.Location {
	if s.tracking == nil {
		return time.UTC
	}
	return s.tracking.Get().Location()
}

// TruncateIP reduces an address to a prefix before it leaves the
// write path. Full addresses stay in the clicks table only.
func TruncateIP(ip string) string {
	if ip == "" {
		return ""
	}
	if parts := strings.Split(ip, "."); len(parts) == 4 {
		return strings.Join(parts[:3], ".") + ".x"
	}
	if groups := strings.Split(ip, ":"); len(groups) > 2 {
		return strings.Join(groups[:2], ":") + "::"
	}
	return "x"
}
