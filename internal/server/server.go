package server

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/operalab/commesse/internal/config"
	"github.com/operalab/commesse/internal/ledger"
	ledgerdomain "github.com/operalab/commesse/internal/ledger/domain"
	"github.com/operalab/commesse/internal/storage"
	storagedomain "github.com/operalab/commesse/internal/storage/domain"
	"github.com/operalab/commesse/internal/storage/local"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	ledger.Module,
	storage.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine    *gin.Engine
	cfg       config.Config
	genID     *snowflake.Node
	ledgerSvc ledgerdomain.Service
	store     storagedomain.Store
	policy    *config.UploadPolicyHolder
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	GenID     *snowflake.Node
	LedgerSvc ledgerdomain.Service
	Store     storagedomain.Store
	Policy    *config.UploadPolicyHolder
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		genID:     p.GenID,
		ledgerSvc: p.LedgerSvc,
		store:     p.Store,
		policy:    p.Policy,
	}

	svc.registerAPIRoutes()
	svc.registerFileRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/upload/voice-file", s.UploadVoiceFile)
	api.POST("/delete/voice-file", s.DeleteVoiceFile)

	api.GET("/commissions", s.ListCommissions)
	api.POST("/commissions", s.CreateCommission)
	api.GET("/commissions/:id", s.GetCommission)
	api.PUT("/commissions/:id", s.UpdateCommission)
	api.DELETE("/commissions/:id", s.DeleteCommission)

	api.POST("/commissions/:id/phases", s.CreatePhase)
	api.PUT("/phases/:id", s.UpdatePhase)
	api.DELETE("/phases/:id", s.DeletePhase)

	api.POST("/phases/:id/voices", s.CreateVoice)
	api.PUT("/voices/:id", s.UpdateVoice)
	api.DELETE("/voices/:id", s.DeleteVoice)
	api.GET("/voices/:id/files", s.ListVoiceFiles)
}

// registerFileRoutes exposes stored attachments when the local backend
// is active; with the s3 backend the bucket serves them itself.
func (s *Server) registerFileRoutes() {
	if localStore, ok := s.store.(*local.Store); ok {
		s.engine.Static("/files/voices", filepath.Join(localStore.Root(), "voices"))
	}
}
