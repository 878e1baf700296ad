package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	tariffdomain "github.com/gridfare/gridfare/internal/tariff/domain"
	workspacedomain "github.com/gridfare/gridfare/internal/workspace/domain"
	"gorm.io/gorm"
)

const (
	defaultWorkspaceName = "Main"
	defaultWorkspaceSlug = "main"
	defaultStationName   = "Depot 1"
	defaultConnector     = "CCS-1"
	defaultDriverEmail   = "driver@gridfare.dev"
	defaultDriverName    = "Demo Driver"
	defaultTariffName    = "Standard AC"
)

// EnsureDemoWorkspace seeds a default workspace with one station, connector,
// end user, and an assigned tariff so a fresh install can bill a session
// without any provisioning calls.
func EnsureDemoWorkspace(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ws, created, err := ensureWorkspaceTx(ctx, tx, node)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}

		now := time.Now().UTC()
		station := workspacedomain.Station{
			ID:          node.Generate(),
			WorkspaceID: ws.ID,
			Name:        defaultStationName,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&station).Error; err != nil {
			return err
		}

		connector := workspacedomain.Connector{
			ID:        node.Generate(),
			StationID: station.ID,
			Label:     defaultConnector,
			CreatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&connector).Error; err != nil {
			return err
		}

		driver := workspacedomain.EndUser{
			ID:          node.Generate(),
			WorkspaceID: ws.ID,
			Email:       defaultDriverEmail,
			DisplayName: defaultDriverName,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&driver).Error; err != nil {
			return err
		}

		profile := tariffdomain.TariffProfile{
			ID:                 node.Generate(),
			WorkspaceID:        ws.ID,
			Name:               defaultTariffName,
			BasePricePerKwh:    0.45,
			PricePerMinute:     0,
			SessionStartFee:    0,
			PlatformFeePercent: 15,
			Currency:           "EUR",
			Active:             true,
			ValidFrom:          now,
			Version:            1,
			Lifecycle:          tariffdomain.LifecycleActive,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := tx.WithContext(ctx).Create(&profile).Error; err != nil {
			return err
		}

		assignment := tariffdomain.TariffAssignment{
			ID:              node.Generate(),
			WorkspaceID:     ws.ID,
			TariffProfileID: profile.ID,
			StationID:       station.ID,
			ValidFrom:       now,
			Lifecycle:       tariffdomain.LifecycleActive,
			CreatedAt:       now,
		}
		return tx.WithContext(ctx).Create(&assignment).Error
	})
}

func ensureWorkspaceTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (workspacedomain.Workspace, bool, error) {
	var ws workspacedomain.Workspace
	err := tx.WithContext(ctx).Where("slug = ?", defaultWorkspaceSlug).First(&ws).Error
	if err == nil {
		return ws, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return ws, false, err
	}
	now := time.Now().UTC()
	ws = workspacedomain.Workspace{
		ID:        node.Generate(),
		Name:      defaultWorkspaceName,
		Slug:      defaultWorkspaceSlug,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&ws).Error; err != nil {
		return ws, false, err
	}
	return ws, true, nil
}
