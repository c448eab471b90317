package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mediasign/licenza/internal/batchlicense"
	batchdomain "github.com/mediasign/licenza/internal/batchlicense/domain"
	"github.com/mediasign/licenza/internal/clock"
	"github.com/mediasign/licenza/internal/config"
	"github.com/mediasign/licenza/internal/device"
	devicedomain "github.com/mediasign/licenza/internal/device/domain"
	"github.com/mediasign/licenza/internal/gateway"
	"github.com/mediasign/licenza/internal/observability"
	obsmiddleware "github.com/mediasign/licenza/internal/observability/logger"
	obstracing "github.com/mediasign/licenza/internal/observability/tracing"
	"github.com/mediasign/licenza/internal/rollup"
	rollupdomain "github.com/mediasign/licenza/internal/rollup/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	device.Module,
	gateway.Module,
	batchlicense.Module,
	rollup.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	db         *gorm.DB
	clock      clock.Clock
	batchSvc   batchdomain.Service
	deviceRepo devicedomain.Repository
	rollupSvc  rollupdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	DB         *gorm.DB
	Clock      clock.Clock
	BatchSvc   batchdomain.Service
	DeviceRepo devicedomain.Repository
	RollupSvc  rollupdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		db:         p.DB,
		clock:      p.Clock,
		batchSvc:   p.BatchSvc,
		deviceRepo: p.DeviceRepo,
		rollupSvc:  p.RollupSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/batch-licenses", s.CreateBatchLicense)
	api.GET("/batch-licenses", s.ListBatchLicenses)
	api.GET("/batch-licenses/:id", s.GetBatchLicense)
	api.POST("/batch-licenses/:id/invoice", s.OpenBatchInvoice)
	api.POST("/batch-licenses/:id/confirm", s.ConfirmBatchLicense)
	api.GET("/batch-licenses/:id/payment-status", s.CheckBatchPaymentStatus)

	api.GET("/financial-overview", s.GetFinancialOverview)
	api.GET("/users/:id/devices", s.ListUserDevices)
}
