package migration

import (
	clickdomain "github.com/linkpulse/linkpulse/internal/click/domain"
	"github.com/linkpulse/linkpulse/internal/config"
	linkdomain "github.com/linkpulse/linkpulse/internal/link/domain"
	rollupdomain "github.com/linkpulse/linkpulse/internal/rollup/domain"
	"github.com/linkpulse/linkpulse/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// The sqlite and mysql paths exist for local development,
			// where the model-derived schema is enough.
			if err := conn.AutoMigrate(
				&linkdomain.Link{},
				&clickdomain.Click{},
				&rollupdomain.DailyPerformance{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDemoData {
			return seed.EnsureDemoLink(conn)
		}
		return nil
	}),
)
