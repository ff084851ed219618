package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/linkpulse/linkpulse/internal/cache"
	clickdomain "github.com/linkpulse/linkpulse/internal/click/domain"
	clickrepo "github.com/linkpulse/linkpulse/internal/click/repository"
	"github.com/linkpulse/linkpulse/internal/clock"
	linkdomain "github.com/linkpulse/linkpulse/internal/link/domain"
	linkrepo "github.com/linkpulse/linkpulse/internal/link/repository"
	"github.com/linkpulse/linkpulse/internal/liveevents"
	rollupdomain "github.com/linkpulse/linkpulse/internal/rollup/domain"
	rolluprepo "github.com/linkpulse/linkpulse/internal/rollup/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *liveevents.Hub) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&linkdomain.Link{}, &clickdomain.Click{}, &rollupdomain.DailyPerformance{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	hub := liveevents.NewHub(nil)
	svc := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Links:  linkrepo.Provide(),
		Clicks: clickrepo.Provide(),
		Rollup: rolluprepo.Provide(),
		Hub:    hub,
	})
	return svc.(*Service), db, hub
}

var seedNode, _ = snowflake.NewNode(6)

func seedLink(t *testing.T, db *gorm.DB, mutate func(*linkdomain.Link)) linkdomain.Link {
	t.Helper()

	link := linkdomain.Link{
		ID:             seedNode.Generate(),
		ShortCode:      "demo",
		DestinationURL: "https://shop.example.com/deal",
		Title:          "Demo Deal",
		IsActive:       true,
	}
	if mutate != nil {
		mutate(&link)
	}
	// GORM's Create omits zero-value fields that carry a default tag (and
	// writes the fetched column default back into the struct), so a seeded
	// IsActive=false would otherwise be stored as the column default (true).
	// Write the flag explicitly to persist what was seeded.
	active := link.IsActive
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("seed link: %v", err)
	}
	if err := db.Model(&linkdomain.Link{}).Where("id = ?", link.ID).
		UpdateColumn("is_active", active).Error; err != nil {
		t.Fatalf("seed link active flag: %v", err)
	}
	link.IsActive = active
	return link
}

func TestResolveUnknownCode(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Resolve(context.Background(), "nope", clickdomain.RequestContext{})
	assert.ErrorIs(t, err, linkdomain.ErrNotFound)
}

func TestResolveGoneLink(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	seedLink(t, db, func(l *linkdomain.Link) {
		l.ShortCode = "retired"
		l.IsActive = false
	})
	_, err := svc.Resolve(ctx, "retired", clickdomain.RequestContext{})
	assert.ErrorIs(t, err, clickdomain.ErrLinkGone)

	expired := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	seedLink(t, db, func(l *linkdomain.Link) {
		l.ShortCode = "lapsed"
		l.ExpiresAt = &expired
	})
	_, err = svc.Resolve(ctx, "lapsed", clickdomain.RequestContext{})
	assert.ErrorIs(t, err, clickdomain.ErrLinkGone)
}

func TestResolveCapturesClick(t *testing.T) {
	svc, db, hub := newTestService(t)
	link := seedLink(t, db, nil)

	sub := hub.Subscribe()
	defer sub.Close()

	dest, err := svc.Resolve(context.Background(), "demo", clickdomain.RequestContext{
		IPAddress: "203.0.113.9",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0) Mobile Safari",
		Referrer:  "https://social.example.com",
	})
	assert.NoError(t, err)
	assert.Equal(t, link.DestinationURL, dest)

	svc.Drain()

	var click clickdomain.Click
	assert.NoError(t, db.First(&click, "link_id = ?", link.ID).Error)
	assert.Equal(t, clickdomain.DeviceMobile, click.DeviceType)
	assert.Equal(t, "203.0.113.9", click.IPAddress)
	assert.False(t, click.Converted)

	var got linkdomain.Link
	assert.NoError(t, db.First(&got, "id = ?", link.ID).Error)
	assert.Equal(t, int64(1), got.TotalClicks)
	assert.Equal(t, int64(1), got.UniqueClicks)

	var daily rollupdomain.DailyPerformance
	assert.NoError(t, db.First(&daily, "link_id = ? AND date = ?", link.ID, "2025-06-01").Error)
	assert.Equal(t, int64(1), daily.Clicks)
	assert.Equal(t, int64(1), daily.UniqueVisitors)

	select {
	case event := <-sub.Events():
		assert.Equal(t, liveevents.TypeClick, event.Type)
		assert.Equal(t, "demo", event.ShortCode)
		assert.Equal(t, "203.0.113.x", event.Source)
	case <-time.After(time.Second):
		t.Fatal("no click event published")
	}
}

func TestConcurrentResolvesCountEveryClick(t *testing.T) {
	for _, n := range []int{1, 50, 500} {
		n := n
		t.Run(fmt.Sprintf("clicks_%d", n), func(t *testing.T) {
			svc, db, _ := newTestService(t)
			link := seedLink(t, db, nil)

			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.Resolve(context.Background(), "demo", clickdomain.RequestContext{
						IPAddress: "198.51.100.7",
						UserAgent: "curl/8.0",
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()
			svc.Drain()

			var got linkdomain.Link
			assert.NoError(t, db.First(&got, "id = ?", link.ID).Error)
			assert.Equal(t, int64(n), got.TotalClicks)
			assert.Equal(t, int64(1), got.UniqueClicks)

			var daily rollupdomain.DailyPerformance
			assert.NoError(t, db.First(&daily, "link_id = ?", link.ID).Error)
			assert.Equal(t, int64(n), daily.Clicks)
			assert.Equal(t, int64(1), daily.UniqueVisitors)
		})
	}
}

func TestResolveServesCachedLink(t *testing.T) {
	svc, db, _ := newTestService(t)
	svc.cache = cache.NewLinkResolverCache()
	link := seedLink(t, db, nil)
	ctx := context.Background()

	dest, err := svc.Resolve(ctx, "demo", clickdomain.RequestContext{IPAddress: "203.0.113.20"})
	assert.NoError(t, err)
	assert.Equal(t, link.DestinationURL, dest)
	svc.Drain()

	// A row removed behind the API keeps resolving from cache until the
	// TTL lapses. API writes go through the service and invalidate.
	assert.NoError(t, db.Exec("DELETE FROM links WHERE id = ?", link.ID).Error)

	dest, err = svc.Resolve(ctx, "demo", clickdomain.RequestContext{IPAddress: "203.0.113.21"})
	assert.NoError(t, err)
	assert.Equal(t, link.DestinationURL, dest)
	svc.Drain()

	svc.cache.Invalidate("demo")
	_, err = svc.Resolve(ctx, "demo", clickdomain.RequestContext{})
	assert.ErrorIs(t, err, linkdomain.ErrNotFound)
}

func TestCaptureFailureDoesNotBlockRedirect(t *testing.T) {
	svc, db, _ := newTestService(t)
	link := seedLink(t, db, nil)

	assert.NoError(t, db.Exec("DROP TABLE clicks").Error)

	dest, err := svc.Resolve(context.Background(), "demo", clickdomain.RequestContext{
		IPAddress: "203.0.113.10",
	})
	assert.NoError(t, err)
	assert.Equal(t, link.DestinationURL, dest)

	svc.Drain()

	// Counter update is still attempted after the failed insert.
	var got linkdomain.Link
	assert.NoError(t, db.First(&got, "id = ?", link.ID).Error)
	assert.Equal(t, int64(1), got.TotalClicks)
}

func TestTruncateIP(t *testing.T) {
	assert.Equal(t, "203.0.113.x", TruncateIP("203.0.113.54"))
	assert.Equal(t, "2001:db8::", TruncateIP("2001:db8:85a3::8a2e:370:7334"))
	assert.Equal(t, "", TruncateIP(""))
	assert.Equal(t, "x", TruncateIP("localhost"))
}
