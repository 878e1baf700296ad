package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gridfare/gridfare/internal/cache"
	tariffdomain "github.com/gridfare/gridfare/internal/tariff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// resolveTTL bounds how long a resolved price list may be served from memory.
const resolveTTL = 30 * time.Second

type resolveKey struct {
	WorkspaceID snowflake.ID
	StationID   snowflake.ID
	ConnectorID snowflake.ID
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cache cache.Cache[resolveKey, *tariffdomain.TariffProfile] `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	cache cache.Cache[resolveKey, *tariffdomain.TariffProfile]
}

func NewService(p ServiceParam) tariffdomain.Service {
	resolved := p.Cache
	if resolved == nil {
		resolved = cache.NewTTLCache[resolveKey, *tariffdomain.TariffProfile]()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tariff.service"),
		genID: p.GenID,
		cache: resolved,
	}
}

func (s *Service) ResolveActiveTariff(
	ctx context.Context,
	workspaceID, stationID snowflake.ID,
	connectorID *snowflake.ID,
	at time.Time,
) (*tariffdomain.TariffProfile, error) {
	if workspaceID == 0 {
		return nil, tariffdomain.ErrInvalidWorkspace
	}
	if stationID == 0 {
		return nil, tariffdomain.ErrInvalidStation
	}
	if at.IsZero() {
		return nil, tariffdomain.ErrInvalidTime
	}

	key := resolveKey{WorkspaceID: workspaceID, StationID: stationID}
	if connectorID != nil {
		key.ConnectorID = *connectorID
	}
	// Only "now" resolutions may be served from cache; historic lookups
	// always hit the database.
	cacheable := time.Since(at).Abs() < resolveTTL
	if cacheable {
		if profile, ok := s.cache.Get(key); ok {
			return profile, nil
		}
	}

	var profile *tariffdomain.TariffProfile
	var err error
	if connectorID != nil && *connectorID != 0 {
		profile, err = s.resolveLevel(ctx, workspaceID, stationID, connectorID, at)
		if err != nil {
			return nil, err
		}
	}
	if profile == nil {
		profile, err = s.resolveLevel(ctx, workspaceID, stationID, nil, at)
		if err != nil {
			return nil, err
		}
	}
	if profile == nil {
		return nil, tariffdomain.ErrNoActiveTariff
	}

	if cacheable {
		s.cache.Set(key, profile, resolveTTL)
	}
	return profile, nil
}

// resolveLevel searches one assignment level. connectorID nil means
// station-level assignments (connector_id IS NULL).
func (s *Service) resolveLevel(
	ctx context.Context,
	workspaceID, stationID snowflake.ID,
	connectorID *snowflake.ID,
	at time.Time,
) (*tariffdomain.TariffProfile, error) {
	connectorClause := "a.connector_id IS NULL"
	args := []any{workspaceID, stationID}
	if connectorID != nil {
		connectorClause = "a.connector_id = ?"
		args = append(args, *connectorID)
	}
	args = append(args,
		tariffdomain.LifecycleActive,
		tariffdomain.LifecycleActive,
		at, at, at, at,
	)

	var profile tariffdomain.TariffProfile
	err := s.db.WithContext(ctx).Raw(
		`SELECT p.*
		 FROM tariff_assignments a
		 JOIN tariff_profiles p ON p.id = a.tariff_profile_id
		 WHERE a.workspace_id = ? AND a.station_id = ? AND `+connectorClause+`
		   AND a.lifecycle = ? AND p.lifecycle = ? AND p.active = TRUE
		   AND a.valid_from <= ? AND (a.valid_until IS NULL OR a.valid_until >= ?)
		   AND p.valid_from <= ? AND (p.valid_until IS NULL OR p.valid_until >= ?)
		 ORDER BY a.valid_from DESC, a.id DESC
		 LIMIT 1`,
		args...,
	).Scan(&profile).Error
	if err != nil {
		return nil, err
	}
	if profile.ID == 0 {
		return nil, nil
	}
	return &profile, nil
}

func (s *Service) CreateProfile(ctx context.Context, req tariffdomain.CreateProfileRequest) (*tariffdomain.TariffProfile, error) {
	if req.WorkspaceID == 0 {
		return nil, tariffdomain.ErrInvalidWorkspace
	}
	if req.BasePricePerKwh < 0 || req.PricePerMinute < 0 || req.SessionStartFee < 0 {
		return nil, tariffdomain.ErrInvalidPrice
	}
	if req.PlatformFeePercent < 0 || req.PlatformFeePercent > 100 {
		return nil, tariffdomain.ErrInvalidFeePercent
	}
	if req.ValidFrom.IsZero() {
		return nil, tariffdomain.ErrInvalidWindow
	}
	if req.ValidUntil != nil && !req.ValidUntil.After(req.ValidFrom) {
		return nil, tariffdomain.ErrInvalidWindow
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "EUR"
	}

	now := time.Now().UTC()
	profile := tariffdomain.TariffProfile{
		ID:                 s.genID.Generate(),
		WorkspaceID:        req.WorkspaceID,
		Name:               strings.TrimSpace(req.Name),
		BasePricePerKwh:    req.BasePricePerKwh,
		PricePerMinute:     req.PricePerMinute,
		SessionStartFee:    req.SessionStartFee,
		PlatformFeePercent: req.PlatformFeePercent,
		Currency:           currency,
		Active:             true,
		ValidFrom:          req.ValidFrom,
		ValidUntil:         req.ValidUntil,
		Version:            1,
		Lifecycle:          tariffdomain.LifecycleActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
		return nil, err
	}
	s.cache.Purge()
	return &profile, nil
}

func (s *Service) UpdateProfile(ctx context.Context, workspaceID, profileID snowflake.ID, req tariffdomain.UpdateProfileRequest) (*tariffdomain.TariffProfile, error) {
	if req.PlatformFeePercent != nil && (*req.PlatformFeePercent < 0 || *req.PlatformFeePercent > 100) {
		return nil, tariffdomain.ErrInvalidFeePercent
	}
	if (req.BasePricePerKwh != nil && *req.BasePricePerKwh < 0) ||
		(req.PricePerMinute != nil && *req.PricePerMinute < 0) ||
		(req.SessionStartFee != nil && *req.SessionStartFee < 0) {
		return nil, tariffdomain.ErrInvalidPrice
	}

	var updated tariffdomain.TariffProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := s.lockProfile(ctx, tx, workspaceID, profileID)
		if err != nil {
			return err
		}
		if profile == nil {
			return tariffdomain.ErrProfileNotFound
		}
		if profile.Lifecycle == tariffdomain.LifecycleArchived {
			return tariffdomain.ErrProfileArchived
		}

		if req.BasePricePerKwh != nil {
			profile.BasePricePerKwh = *req.BasePricePerKwh
		}
		if req.PricePerMinute != nil {
			profile.PricePerMinute = *req.PricePerMinute
		}
		if req.SessionStartFee != nil {
			profile.SessionStartFee = *req.SessionStartFee
		}
		if req.PlatformFeePercent != nil {
			profile.PlatformFeePercent = *req.PlatformFeePercent
		}
		if req.Active != nil {
			profile.Active = *req.Active
		}
		if req.ValidUntil != nil {
			if !req.ValidUntil.After(profile.ValidFrom) {
				return tariffdomain.ErrInvalidWindow
			}
			profile.ValidUntil = req.ValidUntil
		}
		profile.Version++
		profile.UpdatedAt = time.Now().UTC()

		if err := tx.WithContext(ctx).Save(profile).Error; err != nil {
			return err
		}
		updated = *profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Purge()
	return &updated, nil
}

func (s *Service) ArchiveProfile(ctx context.Context, workspaceID, profileID snowflake.ID) error {
	result := s.db.WithContext(ctx).Exec(
		`UPDATE tariff_profiles
		 SET lifecycle = ?, active = FALSE, updated_at = ?
		 WHERE id = ? AND workspace_id = ? AND lifecycle = ?`,
		tariffdomain.LifecycleArchived,
		time.Now().UTC(),
		profileID,
		workspaceID,
		tariffdomain.LifecycleActive,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tariffdomain.ErrProfileNotFound
	}
	s.cache.Purge()
	return nil
}

func (s *Service) Assign(ctx context.Context, req tariffdomain.AssignRequest) (*tariffdomain.TariffAssignment, error) {
	if req.WorkspaceID == 0 {
		return nil, tariffdomain.ErrInvalidWorkspace
	}
	if req.StationID == 0 {
		return nil, tariffdomain.ErrInvalidStation
	}
	if req.ValidFrom.IsZero() {
		return nil, tariffdomain.ErrInvalidWindow
	}
	if req.ValidUntil != nil && !req.ValidUntil.After(req.ValidFrom) {
		return nil, tariffdomain.ErrInvalidWindow
	}

	profile, err := s.loadProfile(ctx, req.WorkspaceID, req.TariffProfileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, tariffdomain.ErrProfileNotFound
	}
	if profile.Lifecycle == tariffdomain.LifecycleArchived {
		return nil, tariffdomain.ErrProfileNotReferable
	}

	assignment := tariffdomain.TariffAssignment{
		ID:              s.genID.Generate(),
		WorkspaceID:     req.WorkspaceID,
		TariffProfileID: req.TariffProfileID,
		StationID:       req.StationID,
		ConnectorID:     req.ConnectorID,
		ValidFrom:       req.ValidFrom,
		ValidUntil:      req.ValidUntil,
		Lifecycle:       tariffdomain.LifecycleActive,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&assignment).Error; err != nil {
		return nil, err
	}
	s.cache.Purge()
	return &assignment, nil
}

func (s *Service) RemoveAssignment(ctx context.Context, workspaceID, assignmentID snowflake.ID) error {
	result := s.db.WithContext(ctx).Exec(
		`UPDATE tariff_assignments
		 SET lifecycle = ?
		 WHERE id = ? AND workspace_id = ? AND lifecycle = ?`,
		tariffdomain.LifecycleArchived,
		assignmentID,
		workspaceID,
		tariffdomain.LifecycleActive,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tariffdomain.ErrAssignmentNotFound
	}
	s.cache.Purge()
	return nil
}

func (s *Service) loadProfile(ctx context.Context, workspaceID, profileID snowflake.ID) (*tariffdomain.TariffProfile, error) {
	var profile tariffdomain.TariffProfile
	err := s.db.WithContext(ctx).Raw(
		`SELECT * FROM tariff_profiles WHERE id = ? AND workspace_id = ?`,
		profileID,
		workspaceID,
	).Scan(&profile).Error
	if err != nil {
		return nil, err
	}
	if profile.ID == 0 {
		return nil, nil
	}
	return &profile, nil
}

func (s *Service) lockProfile(ctx context.Context, tx *gorm.DB, workspaceID, profileID snowflake.ID) (*tariffdomain.TariffProfile, error) {
	var profile tariffdomain.TariffProfile
	query := `SELECT * FROM tariff_profiles WHERE id = ? AND workspace_id = ?`
	if tx.Dialector.Name() != "sqlite" {
		query += ` FOR UPDATE`
	}
	err := tx.WithContext(ctx).Raw(query, profileID, workspaceID).Scan(&profile).Error
	if err != nil {
		return nil, err
	}
	if profile.ID == 0 {
		return nil, nil
	}
	return &profile, nil
}
