package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gridfare/gridfare/internal/audit"
	"github.com/gridfare/gridfare/internal/billing"
	"github.com/gridfare/gridfare/internal/clock"
	"github.com/gridfare/gridfare/internal/config"
	"github.com/gridfare/gridfare/internal/events"
	"github.com/gridfare/gridfare/internal/ledger"
	"github.com/gridfare/gridfare/internal/logger"
	"github.com/gridfare/gridfare/internal/migration"
	"github.com/gridfare/gridfare/internal/observability/metrics"
	"github.com/gridfare/gridfare/internal/observability/tracing"
	"github.com/gridfare/gridfare/internal/payment"
	"github.com/gridfare/gridfare/internal/payment/holdwatch"
	"github.com/gridfare/gridfare/internal/payout"
	"github.com/gridfare/gridfare/internal/roaming"
	"github.com/gridfare/gridfare/internal/seed"
	"github.com/gridfare/gridfare/internal/server"
	"github.com/gridfare/gridfare/internal/tariff"
	"github.com/gridfare/gridfare/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		fx.Invoke(func(conn *gorm.DB) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			return seed.EnsureDemoWorkspace(conn)
		}),
		metrics.Module,
		tracing.Module,
		clock.Module,
		fx.Provide(events.NewOutbox),
		audit.Module,
		ledger.Module,
		tariff.Module,
		billing.Module,
		payment.Module,
		holdwatch.Module,
		payout.Module,
		roaming.Module,
		server.Module,
	)
	app.Run()
}
