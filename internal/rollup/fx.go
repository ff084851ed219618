package rollup

import (
	"github.com/linkpulse/linkpulse/internal/rollup/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("rollup.repository",
	fx.Provide(repository.Provide),
)
