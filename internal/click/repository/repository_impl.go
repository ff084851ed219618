package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	clickdomain "github.com/linkpulse/linkpulse/internal/click/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() clickdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, click *clickdomain.Click) error {
	return db.WithContext(ctx).Create(click).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*clickdomain.Click, error) {
	var click clickdomain.Click
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&click).Error
	if err != nil {
		return nil, err
	}
	if click.ID == 0 {
		return nil, nil
	}
	return &click, nil
}

func (r *repo) OtherFromIP(ctx context.Context, db *gorm.DB, linkID snowflake.ID, ip string, self snowflake.ID) (bool, error) {
	// Compared by identity, not by ID order: a capture that finishes
	// first counts as unique even when a slower one drew a smaller ID.
	var count int64
	err := db.WithContext(ctx).
		Model(&clickdomain.Click{}).
		Where("link_id = ? AND ip_address = ? AND id <> ?", linkID, ip, self).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) MarkConverted(ctx context.Context, db *gorm.DB, id snowflake.ID, value float64) (bool, error) {
	// The converted guard makes the back-fill first-writer-wins.
	res := db.WithContext(ctx).Exec(
		`UPDATE clicks
		 SET converted = ?, conversion_value = ?
		 WHERE id = ? AND converted = ?`,
		true,
		value,
		id,
		false,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
