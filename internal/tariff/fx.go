package tariff

import (
	"github.com/gridfare/gridfare/internal/tariff/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tariff.service",
	fx.Provide(service.NewService),
)
