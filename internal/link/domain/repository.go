package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/linkpulse/linkpulse/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, link *Link) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Link, error)
	FindByShortCode(ctx context.Context, db *gorm.DB, code string) (*Link, error)
	List(ctx context.Context, db *gorm.DB, filter ListLinkFilter, page pagination.Pagination) ([]*Link, error)
	Update(ctx context.Context, db *gorm.DB, link *Link) error
	// DeleteCascade removes the link's clicks and daily rows before the
	// link itself; callers wrap it in a transaction.
	DeleteCascade(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
