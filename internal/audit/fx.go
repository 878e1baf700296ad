package audit

import (
	"github.com/gridfare/gridfare/internal/audit/repository"
	"github.com/gridfare/gridfare/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
