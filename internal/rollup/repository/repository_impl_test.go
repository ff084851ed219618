package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	linkdomain "github.com/linkpulse/linkpulse/internal/link/domain"
	rollupdomain "github.com/linkpulse/linkpulse/internal/rollup/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	// Single connection so concurrent writers queue instead of hitting
	// a busy error, same as the production sqlite pool.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&linkdomain.Link{}, &rollupdomain.DailyPerformance{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedLink(t *testing.T, db *gorm.DB) linkdomain.Link {
	t.Helper()

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	link := linkdomain.Link{
		ID:             node.Generate(),
		ShortCode:      "bench",
		DestinationURL: "https://example.com",
		IsActive:       true,
	}
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("seed link: %v", err)
	}
	return link
}

func TestConcurrentIncrementsNetExactly(t *testing.T) {
	for _, n := range []int{1, 50, 500} {
		n := n
		t.Run(fmt.Sprintf("writers_%d", n), func(t *testing.T) {
			db := newTestDB(t)
			link := seedLink(t, db)
			repo := Provide()
			ctx := context.Background()

			node, err := snowflake.NewNode(3)
			assert.NoError(t, err)

			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := repo.IncrementLinkClicks(ctx, db, link.ID)
					assert.NoError(t, err)

					err = repo.IncrementLinkUniqueClicks(ctx, db, link.ID)
					assert.NoError(t, err)

					err = repo.UpsertDailyClicks(ctx, db, &rollupdomain.DailyPerformance{
						ID:             node.Generate(),
						LinkID:         link.ID,
						Date:           "2025-06-01",
						Clicks:         1,
						UniqueVisitors: 1,
						UpdatedAt:      time.Now().UTC(),
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			var got linkdomain.Link
			assert.NoError(t, db.First(&got, "id = ?", link.ID).Error)
			assert.Equal(t, int64(n), got.TotalClicks)
			assert.Equal(t, int64(n), got.UniqueClicks)

			var rows []rollupdomain.DailyPerformance
			assert.NoError(t, db.Where("link_id = ?", link.ID).Find(&rows).Error)
			assert.Len(t, rows, 1)
			assert.Equal(t, int64(n), rows[0].Clicks)
		})
	}
}

func TestUpsertConversionsAccumulatesRevenueAndCTR(t *testing.T) {
	db := newTestDB(t)
	link := seedLink(t, db)
	repo := Provide()
	ctx := context.Background()

	node, err := snowflake.NewNode(4)
	assert.NoError(t, err)

	now := time.Now().UTC()
	for i := 0; i < 4; i++ {
		unique := int64(0)
		if i < 2 {
			unique = 1
		}
		err := repo.UpsertDailyClicks(ctx, db, &rollupdomain.DailyPerformance{
			ID:             node.Generate(),
			LinkID:         link.ID,
			Date:           "2025-06-02",
			Clicks:         1,
			UniqueVisitors: unique,
			UpdatedAt:      now,
		})
		assert.NoError(t, err)
	}
	err = repo.UpsertDailyConversions(ctx, db, &rollupdomain.DailyPerformance{
		ID:          node.Generate(),
		LinkID:      link.ID,
		Date:        "2025-06-02",
		Conversions: 1,
		Revenue:     25.0,
		UpdatedAt:   now,
	})
	assert.NoError(t, err)

	var row rollupdomain.DailyPerformance
	assert.NoError(t, db.First(&row, "link_id = ? AND date = ?", link.ID, "2025-06-02").Error)
	assert.Equal(t, int64(4), row.Clicks)
	assert.Equal(t, int64(1), row.Conversions)
	assert.Equal(t, 25.0, row.Revenue)
	assert.InDelta(t, 0.5, row.CTR, 1e-9)
}

func TestIncrementLinkConversions(t *testing.T) {
	db := newTestDB(t)
	link := seedLink(t, db)
	repo := Provide()
	ctx := context.Background()

	assert.NoError(t, repo.IncrementLinkConversions(ctx, db, rollupdomain.ConversionDelta{
		LinkID: link.ID,
		Value:  12.5,
	}))
	assert.NoError(t, repo.IncrementLinkConversions(ctx, db, rollupdomain.ConversionDelta{
		LinkID: link.ID,
		Value:  7.5,
	}))

	var got linkdomain.Link
	assert.NoError(t, db.First(&got, "id = ?", link.ID).Error)
	assert.Equal(t, int64(2), got.Conversions)
	assert.Equal(t, 20.0, got.Revenue)
}
