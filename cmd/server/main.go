package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/agency-api/internal/authz"
	"github.com/yukikurage/agency-api/internal/config"
	"github.com/yukikurage/agency-api/internal/constants"
	"github.com/yukikurage/agency-api/internal/database"
	"github.com/yukikurage/agency-api/internal/handlers"
	"github.com/yukikurage/agency-api/internal/logger"
	"github.com/yukikurage/agency-api/internal/metrics"
	"github.com/yukikurage/agency-api/internal/notify"
	"github.com/yukikurage/agency-api/internal/repository"
	"github.com/yukikurage/agency-api/internal/services"
	"github.com/yukikurage/agency-api/internal/token"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.InitLogger(cfg)
	defer log.Sync()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg, log); err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	db := database.GetDB()

	// Run migrations and load reference data
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := database.Seed(db); err != nil {
		log.Fatal("Failed to seed reference data", zap.Error(err))
	}

	publisher := newPublisher(cfg, log)
	defer publisher.Close()

	// Initialize services
	repos := repository.New(db)
	seats := services.NewSeatGate(repos, cfg.DefaultMaxUsers, log)
	invitations := services.NewInvitationService(repos, seats, publisher, cfg.InvitationTTL, log)

	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestID(), logger.Middleware(log))
	if cfg.MetricsEnabled {
		r.Use(metrics.Middleware())
		r.GET("/metrics", metrics.Handler())
	}

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		log.Fatal("Failed to create Redis store", zap.Error(err))
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Agency API is running",
		})
	})

	handlers.Router{
		Auth:          services.NewAuthService(repos, invitations, log),
		Organizations: services.NewOrganizationService(repos, seats, log),
		Invitations:   invitations,
		Billing:       services.NewBillingService(repos, seats, log),
		Tasks:         services.NewTaskService(repos),
		Resolver:      authz.NewResolver(repos, log),
		Tokens:        token.NewManager(cfg.JWTSecret, cfg.JWTTTL),
	}.Register(r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go services.NewInvitationReaper(repos, cfg.InvitationReaperInterval, log).Run(ctx)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}

// newPublisher connects to the message broker when one is configured and
// otherwise logs events.
func newPublisher(cfg *config.Config, log *zap.Logger) notify.Publisher {
	if cfg.AMQPURL == "" {
		return notify.NewLogPublisher(log)
	}
	publisher, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		log.Warn("Message broker unavailable, logging events instead", zap.Error(err))
		return notify.NewLogPublisher(log)
	}
	return publisher
}
