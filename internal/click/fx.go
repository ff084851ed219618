package click

import (
	"context"

	clickdomain "github.com/linkpulse/linkpulse/internal/click/domain"
	"github.com/linkpulse/linkpulse/internal/click/repository"
	"github.com/linkpulse/linkpulse/internal/click/service"
	"go.uber.org/fx"
)

var Module = fx.Module("click.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Invoke(drainOnStop),
)

// drainOnStop lets in-flight capture writes finish before the process
// exits, so a shutdown during traffic does not drop the last clicks.
func drainOnStop(lc fx.Lifecycle, svc clickdomain.Service) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			svc.Drain()
			return nil
		},
	})
}
