package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, click *Click) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Click, error)
	// OtherFromIP reports whether the link holds a click from the
	// address besides the given one. Callers must run it inside the
	// capture transaction, after the link counter update has locked the
	// link row: the lock serializes concurrent same-address captures,
	// so exactly one of them sees no other row.
	OtherFromIP(ctx context.Context, db *gorm.DB, linkID snowflake.ID, ip string, self snowflake.ID) (bool, error)
	// MarkConverted sets the conversion back-fill on a click that has
	// not converted yet. Returns false when the click was already
	// converted or does not exist.
	MarkConverted(ctx context.Context, db *gorm.DB, id snowflake.ID, value float64) (bool, error)
}
