// Package server exposes the billing engine over HTTP: session lifecycle,
// tariff administration, payment operations, payout generation, and CDR
// delivery.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/gridfare/gridfare/internal/billing/domain"
	"github.com/gridfare/gridfare/internal/config"
	paymentdomain "github.com/gridfare/gridfare/internal/payment/domain"
	payoutdomain "github.com/gridfare/gridfare/internal/payout/domain"
	roamingdomain "github.com/gridfare/gridfare/internal/roaming/domain"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
	tariffdomain "github.com/gridfare/gridfare/internal/tariff/domain"
	"github.com/gridfare/gridfare/pkg/repository"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	BillingSvc billingdomain.Service
	TariffSvc  tariffdomain.Service
	PaymentSvc paymentdomain.Service
	PayoutSvc  payoutdomain.Service
	RoamingSvc roamingdomain.Service
}

type Server struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        config.Config
	billingSvc billingdomain.Service
	tariffSvc  tariffdomain.Service
	paymentSvc paymentdomain.Service
	payoutSvc  payoutdomain.Service
	roamingSvc roamingdomain.Service
	sessions   repository.Repository[sessiondomain.ChargingSession]
}

func NewServer(p Params) *Server {
	return &Server{
		db:         p.DB,
		log:        p.Log.Named("server"),
		cfg:        p.Cfg,
		billingSvc: p.BillingSvc,
		tariffSvc:  p.TariffSvc,
		paymentSvc: p.PaymentSvc,
		payoutSvc:  p.PayoutSvc,
		roamingSvc: p.RoamingSvc,
		sessions:   repository.ProvideStore[sessiondomain.ChargingSession](p.DB),
	}
}

// Engine assembles the router. Webhooks stay outside token auth; their
// signature check is the authentication.
func (s *Server) Engine() *gin.Engine {
	if s.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.RequestContext())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.POST("/webhooks/:provider", s.IngestWebhook)

	v1 := engine.Group("/v1")
	v1.Use(s.TokenRequired())
	{
		v1.POST("/sessions", s.StartSession)
		v1.GET("/sessions", s.ListSessions)
		v1.GET("/sessions/:id", s.GetSession)
		v1.POST("/sessions/:id/stop", s.StopSession)
		v1.POST("/sessions/:id/bill", s.BillSession)
		v1.POST("/sessions/:id/resnapshot", s.ResnapshotTariff)

		v1.POST("/sessions/:id/hold", s.CreateHold)
		v1.POST("/sessions/:id/capture", s.CaptureHold)
		v1.POST("/sessions/:id/cancel-hold", s.CancelHold)

		v1.POST("/tariffs", s.CreateTariffProfile)
		v1.PATCH("/tariffs/:id", s.UpdateTariffProfile)
		v1.DELETE("/tariffs/:id", s.ArchiveTariffProfile)
		v1.POST("/tariff-assignments", s.AssignTariff)
		v1.DELETE("/tariff-assignments/:id", s.RemoveTariffAssignment)
		v1.GET("/tariffs/resolve", s.ResolveTariff)

		v1.POST("/payouts", s.GeneratePayout)
		v1.GET("/payouts/:id", s.GetPayout)
		v1.POST("/payouts/:id/issue", s.IssuePayout)
		v1.POST("/payouts/:id/pay", s.PayPayout)
		v1.POST("/payouts/:id/cancel", s.CancelPayout)

		v1.POST("/roaming/cdrs", s.DeliverCDR)
		v1.POST("/sessions/:id/resolve-dispute", s.ResolveDispute)
	}

	return engine
}

// TokenRequired authenticates the internal API surface with the shared
// deployment token. Per-user RBAC lives in the gateway in front.
func (s *Server) TokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := strings.TrimSpace(s.cfg.InternalAPIToken)
		if expected == "" {
			// Local development runs open.
			c.Next()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] != expected {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func RunHTTP(lc fx.Lifecycle, server *Server, log *zap.Logger) {
	httpServer := &http.Server{
		Addr:              server.cfg.HTTPAddr,
		Handler:           server.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", server.cfg.HTTPAddr))
			go func() {
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	})
}
