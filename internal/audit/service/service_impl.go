package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/gridfare/gridfare/internal/audit/domain"
	"github.com/gridfare/gridfare/internal/auditcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func NewService(p ServiceParam) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) AuditLog(
	ctx context.Context,
	workspaceID *snowflake.ID,
	action, targetType string,
	targetID *string,
	metadata map[string]any,
) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return nil
	}

	actorType, actorID := auditcontext.ActorFromContext(ctx)
	if actorType == "" {
		actorType = string(auditdomain.ActorTypeSystem)
	}

	entry := &auditdomain.AuditLog{
		ID:          s.genID.Generate(),
		WorkspaceID: workspaceID,
		ActorType:   actorType,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Metadata:    datatypes.JSONMap{},
		CreatedAt:   time.Now().UTC(),
	}
	if actorID != "" {
		entry.ActorID = &actorID
	}
	if ip := auditcontext.IPAddressFromContext(ctx); ip != "" {
		entry.IPAddress = &ip
	}
	if ua := auditcontext.UserAgentFromContext(ctx); ua != "" {
		entry.UserAgent = &ua
	}
	for key, value := range metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		entry.Metadata[key] = value
	}

	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		// Audit writes never fail the business operation.
		s.log.Warn("audit insert failed", zap.String("action", action), zap.Error(err))
	}
	return nil
}
