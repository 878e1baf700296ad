package metrics

import (
	"github.com/gridfare/gridfare/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("observability.metrics",
	fx.Provide(func(cfg config.Config) *BillingMetrics {
		return BillingWithConfig(Config{
			ServiceName: cfg.ServiceName,
			Environment: cfg.Environment,
		})
	}),
)
