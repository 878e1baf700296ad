// Package db wires the gorm connection into the fx graph.
package db

import (
	"context"
	"strings"

	"github.com/gridfare/gridfare/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var Module = fx.Module("db",
	fx.Provide(NewConnection),
	fx.Invoke(registerLifecycle),
)

// NewConnection opens the database described by the config DSN. A dsn of the
// form "file:..." or ":memory:" selects sqlite, anything else postgres.
func NewConnection(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector := dialectorFor(cfg.DatabaseDSN)

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	log.Named("db").Info("database connected")
	return conn, nil
}

func dialectorFor(dsn string) gorm.Dialector {
	trimmed := strings.TrimSpace(dsn)
	if strings.HasPrefix(trimmed, "file:") || strings.Contains(trimmed, ":memory:") {
		return sqlite.Open(trimmed)
	}
	return postgres.Open(trimmed)
}

func registerLifecycle(lc fx.Lifecycle, conn *gorm.DB, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			log.Named("db").Info("closing database connection")
			return sqlDB.Close()
		},
	})
}
