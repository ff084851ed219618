package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	clickdomain "github.com/linkpulse/linkpulse/internal/click/domain"
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
	if err := db.AutoMigrate(&clickdomain.Click{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Two same-address captures can land out of ID order: the click that
// drew the larger ID may finish first. The decision compares against
// any other row, not smaller IDs, so exactly one counts as unique.
func TestOutOfOrderSameIPClicksCountOneUnique(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()

	node, err := snowflake.NewNode(7)
	assert.NoError(t, err)
	linkID := node.Generate()
	first := node.Generate()
	second := node.Generate()
	assert.Less(t, int64(first), int64(second))

	now := time.Now().UTC()
	uniques := 0

	// The slower capture holds the smaller ID; the faster one lands first.
	assert.NoError(t, repo.Insert(ctx, db, &clickdomain.Click{
		ID: second, LinkID: linkID, IPAddress: "198.51.100.7", ClickedAt: now,
	}))
	other, err := repo.OtherFromIP(ctx, db, linkID, "198.51.100.7", second)
	assert.NoError(t, err)
	if !other {
		uniques++
	}

	assert.NoError(t, repo.Insert(ctx, db, &clickdomain.Click{
		ID: first, LinkID: linkID, IPAddress: "198.51.100.7", ClickedAt: now,
	}))
	other, err = repo.OtherFromIP(ctx, db, linkID, "198.51.100.7", first)
	assert.NoError(t, err)
	if !other {
		uniques++
	}

	assert.Equal(t, 1, uniques)
}

func TestOtherFromIPIgnoresForeignRows(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()

	node, err := snowflake.NewNode(8)
	assert.NoError(t, err)
	linkID := node.Generate()
	neighborID := node.Generate()

	now := time.Now().UTC()
	assert.NoError(t, repo.Insert(ctx, db, &clickdomain.Click{
		ID: node.Generate(), LinkID: neighborID, IPAddress: "203.0.113.5", ClickedAt: now,
	}))
	assert.NoError(t, repo.Insert(ctx, db, &clickdomain.Click{
		ID: node.Generate(), LinkID: linkID, IPAddress: "203.0.113.99", ClickedAt: now,
	}))

	self := node.Generate()
	assert.NoError(t, repo.Insert(ctx, db, &clickdomain.Click{
		ID: self, LinkID: linkID, IPAddress: "203.0.113.5", ClickedAt: now,
	}))

	other, err := repo.OtherFromIP(ctx, db, linkID, "203.0.113.5", self)
	assert.NoError(t, err)
	assert.False(t, other)
}
