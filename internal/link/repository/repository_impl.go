package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/linkpulse/linkpulse/internal/link/domain"
	"github.com/linkpulse/linkpulse/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, link *domain.Link) error {
	return db.WithContext(ctx).Create(link).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Link, error) {
	var link domain.Link
	err := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&link).Error
	if err != nil {
		return nil, err
	}
	if link.ID == 0 {
		return nil, nil
	}
	return &link, nil
}

func (r *repo) FindByShortCode(ctx context.Context, db *gorm.DB, code string) (*domain.Link, error) {
	var link domain.Link
	err := db.WithContext(ctx).Where("short_code = ?", code).Limit(1).Find(&link).Error
	if err != nil {
		return nil, err
	}
	if link.ID == 0 {
		return nil, nil
	}
	return &link, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListLinkFilter, page pagination.Pagination) ([]*domain.Link, error) {
	stmt := db.WithContext(ctx).Model(&domain.Link{})

	if filter.Active != nil {
		stmt = stmt.Where("is_active = ?", *filter.Active)
	} else {
		stmt = stmt.Where("is_active = ?", true)
	}
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.Platform != "" {
		stmt = stmt.Where("platform = ?", filter.Platform)
	}

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", createdAt, id)
	}

	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}

	var links []*domain.Link
	err := stmt.
		Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, link *domain.Link) error {
	return db.WithContext(ctx).
		Model(&domain.Link{}).
		Where("id = ?", link.ID).
		Select("short_code", "destination_url", "title", "category", "platform",
			"commission_rate", "is_active", "expires_at", "metadata", "updated_at").
		Updates(link).Error
}

func (r *repo) DeleteCascade(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM clicks WHERE link_id = ?`, id).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(`DELETE FROM daily_performance WHERE link_id = ?`, id).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`DELETE FROM links WHERE id = ?`, id).Error
}
