package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"nooveria/internal/auth"
	"nooveria/internal/config"
	"nooveria/internal/ledger"
	"nooveria/internal/logger"
	"nooveria/internal/user"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config
}

type Deps struct {
	DB     *sqlx.DB
	Redis  redis.UniversalClient
	Ledger ledger.Ledger
	Users  user.Finder
}

// New wires the HTTP surface. ctx bounds background helpers such as the rate
// limiter sweeper.
func New(ctx context.Context, cfg *config.Config, d Deps) *Server {
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware(), MetricsMiddleware(), RequestLoggingMiddleware())

	ledgerHandler := ledger.NewHandler(d.Ledger)
	userHandler := user.NewHandler(d.Users)
	limiter := NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute)

	router.GET("/health", Health(d.DB, d.Redis))
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware, RateLimitMiddleware(limiter))
	{
		protected.GET("/me", userHandler.GetMe)
		protected.GET("/wallets", ledgerHandler.GetWallets)
		protected.GET("/wallets/communal", ledgerHandler.GetCommunal)
		protected.GET("/wallets/events", ledgerHandler.ListEvents)
		protected.GET("/wallets/transactions", ledgerHandler.ListTransactions)
		protected.GET("/wallets/usage", ledgerHandler.ListUsage)
		protected.POST("/wallets/charge", ledgerHandler.Charge)
		protected.POST("/wallets/transfer", ledgerHandler.Transfer)
		protected.POST("/usage", ledgerHandler.RecordUsage)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole("admin"))
	{
		admin.POST("/accounts", ledgerHandler.OpenAccount)
		admin.POST("/wallets/topup", ledgerHandler.TopUp)
	}

	return &Server{
		router: router,
		config: cfg,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
