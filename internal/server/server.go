package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/linkpulse/linkpulse/internal/cache"
	"github.com/linkpulse/linkpulse/internal/click"
	clickdomain "github.com/linkpulse/linkpulse/internal/click/domain"
	"github.com/linkpulse/linkpulse/internal/config"
	"github.com/linkpulse/linkpulse/internal/conversion"
	conversiondomain "github.com/linkpulse/linkpulse/internal/conversion/domain"
	"github.com/linkpulse/linkpulse/internal/link"
	linkdomain "github.com/linkpulse/linkpulse/internal/link/domain"
	"github.com/linkpulse/linkpulse/internal/liveevents"
	"github.com/linkpulse/linkpulse/internal/observability"
	obslogger "github.com/linkpulse/linkpulse/internal/observability/logger"
	obsmetrics "github.com/linkpulse/linkpulse/internal/observability/metrics"
	obstracing "github.com/linkpulse/linkpulse/internal/observability/tracing"
	"github.com/linkpulse/linkpulse/internal/ratelimit"
	"github.com/linkpulse/linkpulse/internal/rollup"
	"github.com/linkpulse/linkpulse/internal/stats"
	statsdomain "github.com/linkpulse/linkpulse/internal/stats/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	cache.Module,
	link.Module,
	rollup.Module,
	click.Module,
	conversion.Module,
	stats.Module,
	liveevents.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
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
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	linkSvc       linkdomain.Service
	clickSvc      clickdomain.Service
	conversionSvc conversiondomain.Service
	statsSvc      statsdomain.Service
	liveEvents    *liveevents.Hub
	obsMetrics    *obsmetrics.Metrics
	limiter       *ratelimit.ConversionLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	LinkSvc       linkdomain.Service
	ClickSvc      clickdomain.Service
	ConversionSvc conversiondomain.Service
	StatsSvc      statsdomain.Service
	LiveEvents    *liveevents.Hub
	ObsMetrics    *obsmetrics.Metrics          `optional:"true"`
	Limiter       *ratelimit.ConversionLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		linkSvc:       p.LinkSvc,
		clickSvc:      p.ClickSvc,
		conversionSvc: p.ConversionSvc,
		statsSvc:      p.StatsSvc,
		liveEvents:    p.LiveEvents,
		obsMetrics:    p.ObsMetrics,
		limiter:       p.Limiter,
	}

	svc.registerRedirectRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerRedirectRoutes() {
	s.engine.GET("/go/:code", s.Redirect)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/conversions", s.RecordConversion)

	links := api.Group("/links")
	links.POST("", s.CreateLink)
	links.GET("", s.ListLinks)
	links.GET("/:id", s.GetLink)
	links.PATCH("/:id", s.UpdateLink)
	links.DELETE("/:id", s.DeleteLink)

	statsGroup := api.Group("/stats")
	statsGroup.GET("/summary", s.StatsSummary)
	statsGroup.GET("/top", s.StatsTopLinks)
	statsGroup.GET("/timeline", s.StatsTimeline)
	statsGroup.GET("/devices", s.StatsDeviceBreakdown)
	statsGroup.GET("/categories", s.StatsCategoryPerformance)
	statsGroup.GET("/live", s.StreamLiveEvents)

	api.GET("/export", s.Export)
}
