// Package logger provides the shared zap logger.
package logger

import (
	"github.com/gridfare/gridfare/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("logger",
	fx.Provide(New),
)

// New builds a production logger, or a development logger outside production.
func New(cfg config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
