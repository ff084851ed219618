package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	rollupdomain "github.com/linkpulse/linkpulse/internal/rollup/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() rollupdomain.Repository {
	return &repo{}
}

func (r *repo) IncrementLinkClicks(ctx context.Context, db *gorm.DB, linkID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE links
		 SET total_clicks = total_clicks + 1
		 WHERE id = ?`,
		linkID,
	).Error
}

func (r *repo) IncrementLinkUniqueClicks(ctx context.Context, db *gorm.DB, linkID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE links
		 SET unique_clicks = unique_clicks + 1
		 WHERE id = ?`,
		linkID,
	).Error
}

func (r *repo) IncrementLinkConversions(ctx context.Context, db *gorm.DB, delta rollupdomain.ConversionDelta) error {
	return db.WithContext(ctx).Exec(
		`UPDATE links
		 SET conversions = conversions + 1,
		     revenue = revenue + ?
		 WHERE id = ?`,
		delta.Value,
		delta.LinkID,
	).Error
}

func (r *repo) UpsertDailyClicks(ctx context.Context, db *gorm.DB, row *rollupdomain.DailyPerformance) error {
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "link_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"clicks":          gorm.Expr("clicks + ?", row.Clicks),
			"unique_visitors": gorm.Expr("unique_visitors + ?", row.UniqueVisitors),
			"updated_at":      row.UpdatedAt,
		}),
	}).Create(row).Error
	if err != nil {
		return err
	}
	return r.refreshCTR(ctx, db, row)
}

func (r *repo) UpsertDailyConversions(ctx context.Context, db *gorm.DB, row *rollupdomain.DailyPerformance) error {
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "link_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"conversions": gorm.Expr("conversions + ?", row.Conversions),
			"revenue":     gorm.Expr("revenue + ?", row.Revenue),
			"updated_at":  row.UpdatedAt,
		}),
	}).Create(row).Error
	if err != nil {
		return err
	}
	return r.refreshCTR(ctx, db, row)
}

// refreshCTR recomputes the derived unique-over-total ratio from the
// row's own counters. It trails the increments, so a reader may briefly
// observe a stale ratio, never a lost count.
func (r *repo) refreshCTR(ctx context.Context, db *gorm.DB, row *rollupdomain.DailyPerformance) error {
	return db.WithContext(ctx).Exec(
		`UPDATE daily_performance
		 SET ctr = CASE WHEN clicks > 0 THEN (unique_visitors * 1.0) / clicks ELSE 0 END
		 WHERE link_id = ? AND date = ?`,
		row.LinkID,
		row.Date,
	).Error
}
