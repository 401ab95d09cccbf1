// Package server exposes the HTTP API consumed by the product UI and the
// admin dashboard.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
	"github.com/pathworklabs/pathwork/internal/config"
	ledgerdomain "github.com/pathworklabs/pathwork/internal/ledger/domain"
	orchestratordomain "github.com/pathworklabs/pathwork/internal/orchestrator/domain"
	pricingdomain "github.com/pathworklabs/pathwork/internal/pricing/domain"
	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
)

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(Start),
)

type ServerParam struct {
	fx.In

	Log          *zap.Logger
	Cfg          config.Config
	Registry     *prometheus.Registry
	Accounts     accountdomain.Service
	Wallet       walletdomain.Service
	Ledger       ledgerdomain.Service
	Resolver     pricingdomain.Resolver
	Orchestrator orchestratordomain.Service
}

type Server struct {
	log          *zap.Logger
	cfg          config.Config
	accounts     accountdomain.Service
	wallet       walletdomain.Service
	ledger       ledgerdomain.Service
	resolver     pricingdomain.Resolver
	orchestrator orchestratordomain.Service
	router       *gin.Engine
}

func NewServer(p ServerParam) *Server {
	s := &Server{
		log:          p.Log.Named("server"),
		cfg:          p.Cfg,
		accounts:     p.Accounts,
		wallet:       p.Wallet,
		ledger:       p.Ledger,
		resolver:     p.Resolver,
		orchestrator: p.Orchestrator,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/features", s.ListFeatures)
		v1.POST("/tenants", s.CreateTenant)
		v1.GET("/tenants/:slug/stats", s.TenantStats)
		v1.POST("/accounts", s.CreateAccount)
		v1.GET("/accounts/:id/wallet", s.GetWallet)
		v1.POST("/accounts/:id/topup", s.TopUp)
		v1.GET("/accounts/:id/ledger", s.ListLedger)
		v1.GET("/accounts/:id/ledger/export", s.ExportLedger)
		v1.POST("/runs", s.CreateRun)
		v1.GET("/runs/:id", s.GetRun)
	}

	s.router = router
	return s
}

func Start(lc fx.Lifecycle, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("http server starting", zap.String("addr", s.cfg.HTTP.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
