package stats

import (
	"github.com/linkpulse/linkpulse/internal/stats/service"
	"go.uber.org/fx"
)

var Module = fx.Module("stats.service",
	fx.Provide(service.New),
)
