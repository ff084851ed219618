package link

import (
	"github.com/linkpulse/linkpulse/internal/link/repository"
	"github.com/linkpulse/linkpulse/internal/link/service"
	"go.uber.org/fx"
)

var Module = fx.Module("link.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
