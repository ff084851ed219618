package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	clickdomain "github.com/linkpulse/linkpulse/internal/click/domain"
	clickrepo "github.com/linkpulse/linkpulse/internal/click/repository"
	"github.com/linkpulse/linkpulse/internal/clock"
	conversiondomain "github.com/linkpulse/linkpulse/internal/conversion/domain"
	linkdomain "github.com/linkpulse/linkpulse/internal/link/domain"
	linkrepo "github.com/linkpulse/linkpulse/internal/link/repository"
	"github.com/linkpulse/linkpulse/internal/liveevents"
	rollupdomain "github.com/linkpulse/linkpulse/internal/rollup/domain"
	rolluprepo "github.com/linkpulse/linkpulse/internal/rollup/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNode, _ = snowflake.NewNode(7)

func newTestService(t *testing.T) (*Service, *gorm.DB, *liveevents.Hub) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&linkdomain.Link{}, &clickdomain.Click{}, &rollupdomain.DailyPerformance{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	hub := liveevents.NewHub(nil)
	svc := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  testNode,
		Clock:  clock.NewFakeClock(time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)),
		Links:  linkrepo.Provide(),
		Clicks: clickrepo.Provide(),
		Rollup: rolluprepo.Provide(),
		Hub:    hub,
	})
	return svc.(*Service), db, hub
}

func seedLink(t *testing.T, db *gorm.DB) linkdomain.Link {
	t.Helper()

	link := linkdomain.Link{
		ID:             testNode.Generate(),
		ShortCode:      "promo",
		DestinationURL: "https://example.com/promo",
		Title:          "Promo",
		IsActive:       true,
	}
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("seed link: %v", err)
	}
	return link
}

func seedClick(t *testing.T, db *gorm.DB, linkID snowflake.ID) clickdomain.Click {
	t.Helper()

	click := clickdomain.Click{
		ID:        testNode.Generate(),
		LinkID:    linkID,
		IPAddress: "203.0.113.4",
		ClickedAt: time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&click).Error; err != nil {
		t.Fatalf("seed click: %v", err)
	}
	return click
}

func TestRecordUnknownLink(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Record(context.Background(), conversiondomain.RecordConversionRequest{
		LinkID: "987654321",
	})
	assert.ErrorIs(t, err, linkdomain.ErrNotFound)

	err = svc.Record(context.Background(), conversiondomain.RecordConversionRequest{
		LinkID: "not-a-number",
	})
	assert.ErrorIs(t, err, linkdomain.ErrInvalidID)
}

func TestRecordIncrementsLinkAndArrivalDay(t *testing.T) {
	svc, db, hub := newTestService(t)
	link := seedLink(t, db)

	sub := hub.Subscribe()
	defer sub.Close()

	value := 25.0
	err := svc.Record(context.Background(), conversiondomain.RecordConversionRequest{
		LinkID: link.ID.String(),
		Value:  &value,
	})
	assert.NoError(t, err)

	var got linkdomain.Link
	assert.NoError(t, db.First(&got, "id = ?", link.ID).Error)
	assert.Equal(t, int64(1), got.Conversions)
	assert.Equal(t, 25.0, got.Revenue)

	// The daily row lands on the conversion's arrival date, not the
	// click's date.
	var daily rollupdomain.DailyPerformance
	assert.NoError(t, db.First(&daily, "link_id = ? AND date = ?", link.ID, "2025-06-03").Error)
	assert.Equal(t, int64(1), daily.Conversions)
	assert.Equal(t, 25.0, daily.Revenue)

	select {
	case event := <-sub.Events():
		assert.Equal(t, liveevents.TypeConversion, event.Type)
		assert.Equal(t, "promo", event.ShortCode)
		assert.Equal(t, 25.0, event.Value)
	case <-time.After(time.Second):
		t.Fatal("no conversion event published")
	}
}

func TestRecordBackfillsClickOnce(t *testing.T) {
	svc, db, _ := newTestService(t)
	link := seedLink(t, db)
	click := seedClick(t, db, link.ID)

	value := 10.0
	clickID := click.ID.String()
	req := conversiondomain.RecordConversionRequest{
		LinkID:  link.ID.String(),
		ClickID: &clickID,
		Value:   &value,
	}
	assert.NoError(t, svc.Record(context.Background(), req))

	var got clickdomain.Click
	assert.NoError(t, db.First(&got, "id = ?", click.ID).Error)
	assert.True(t, got.Converted)
	if assert.NotNil(t, got.ConversionValue) {
		assert.Equal(t, 10.0, *got.ConversionValue)
	}

	// A second conversion with the same click reference still counts
	// against the link but leaves the first back-fill untouched.
	second := 99.0
	req.Value = &second
	assert.NoError(t, svc.Record(context.Background(), req))

	assert.NoError(t, db.First(&got, "id = ?", click.ID).Error)
	if assert.NotNil(t, got.ConversionValue) {
		assert.Equal(t, 10.0, *got.ConversionValue)
	}

	var gotLink linkdomain.Link
	assert.NoError(t, db.First(&gotLink, "id = ?", link.ID).Error)
	assert.Equal(t, int64(2), gotLink.Conversions)
	assert.Equal(t, 109.0, gotLink.Revenue)
}

func TestRecordToleratesStaleClickReference(t *testing.T) {
	svc, db, _ := newTestService(t)
	link := seedLink(t, db)

	stale := "123123123"
	err := svc.Record(context.Background(), conversiondomain.RecordConversionRequest{
		LinkID:  link.ID.String(),
		ClickID: &stale,
	})
	assert.NoError(t, err)

	var got linkdomain.Link
	assert.NoError(t, db.First(&got, "id = ?", link.ID).Error)
	assert.Equal(t, int64(1), got.Conversions)
	assert.Equal(t, 0.0, got.Revenue)
}
