package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	linkdomain "github.com/linkpulse/linkpulse/internal/link/domain"
	"gorm.io/gorm"
)

const (
	demoShortCode   = "welcome"
	demoDestination = "https://example.com/linkpulse"
	demoTitle       = "Welcome Link"
	demoCategory    = "demo"
)

// EnsureDemoLink seeds a sample link so a fresh install has something
// to redirect before the first real link is created. It is idempotent:
// an existing row with the demo short code is left untouched.
func EnsureDemoLink(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ensureDemoLinkTx(ctx, tx, node)
	})
}

func ensureDemoLinkTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var existing linkdomain.Link
	err := tx.WithContext(ctx).
		Where("short_code = ?", demoShortCode).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	link := linkdomain.Link{
		ID:             node.Generate(),
		ShortCode:      demoShortCode,
		DestinationURL: demoDestination,
		Title:          demoTitle,
		Category:       demoCategory,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return tx.WithContext(ctx).Create(&link).Error
}
