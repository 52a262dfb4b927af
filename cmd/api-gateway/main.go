package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/djangonaut-space/indymeet-api/api/swagger"
	"github.com/djangonaut-space/indymeet-api/internal/handler"
	internalmiddleware "github.com/djangonaut-space/indymeet-api/internal/middleware"
	"github.com/djangonaut-space/indymeet-api/internal/models"
	"github.com/djangonaut-space/indymeet-api/internal/repository"
	"github.com/djangonaut-space/indymeet-api/internal/service"
	"github.com/djangonaut-space/indymeet-api/pkg/cache"
	"github.com/djangonaut-space/indymeet-api/pkg/config"
	"github.com/djangonaut-space/indymeet-api/pkg/database"
	"github.com/djangonaut-space/indymeet-api/pkg/logger"
	corsmiddleware "github.com/djangonaut-space/indymeet-api/pkg/middleware/cors"
	reqidmiddleware "github.com/djangonaut-space/indymeet-api/pkg/middleware/requestid"
)

// @title IndyMeet Session API
// @version 0.1.0
// @description Team formation, acceptance and waitlist promotion for mentoring sessions
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	sessions := repository.NewSessionRepository(db)
	memberships := repository.NewMembershipRepository(db)
	teams := repository.NewTeamRepository(db)
	projects := repository.NewProjectRepository(db)
	preferences := repository.NewPreferenceRepository(db)
	availabilities := repository.NewAvailabilityRepository(db)
	waitlist := repository.NewWaitlistRepository(db)
	users := repository.NewUserRepository(db)
	sessionCache := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
	})

	formationService := service.NewFormationService(
		sessions, memberships, teams, projects, preferences, availabilities, waitlist,
		sessionCache, db, metricsService, nil, logr,
		service.FormationServiceConfig{
			Defaults: service.TeamCapacity{
				Djangonauts:    cfg.Formation.DjangonautsPerTeam,
				MinDjangonauts: cfg.Formation.MinDjangonautsPerTeam,
			},
		},
	)
	promotionService := service.NewPromotionService(
		sessions, teams, memberships, waitlist, availabilities,
		sessionCache, db, metricsService, logr, cfg.Promotion.QueueSize,
	)
	acceptanceService := service.NewAcceptanceService(memberships, promotionService, logr)
	notificationService := service.NewNotificationService(
		sessions, memberships, waitlist, users,
		service.NewLogMailer(logr), metricsService, logr,
		service.NotificationServiceConfig{
			DefaultDeadlineDays: cfg.Notifications.DefaultDeadlineDays,
			Workers:             cfg.Notifications.Workers,
			QueueSize:           cfg.Notifications.QueueSize,
		},
	)
	availabilityService := service.NewAvailabilityService(
		sessions, memberships, availabilities, sessionCache, logr, cfg.Availability.CacheTTL,
	)
	waitlistService := service.NewWaitlistService(sessions, waitlist, users)
	sessionService := service.NewSessionService(sessions)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	promotionService.Start(ctx)
	defer promotionService.Stop()
	notificationService.Start(ctx)
	defer notificationService.Stop()

	formationHandler := handler.NewFormationHandler(formationService)
	membershipHandler := handler.NewMembershipHandler(acceptanceService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	availabilityHandler := handler.NewAvailabilityHandler(availabilityService)
	waitlistHandler := handler.NewWaitlistHandler(waitlistService, promotionService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleOrganizerStaff)

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(authService))
	{
		api.GET("/sessions/:id", sessionHandler.Get)

		sessionsGroup := api.Group("/sessions/:id")
		sessionsGroup.POST("/formation/run", staff, formationHandler.Run)
		sessionsGroup.GET("/formation/report", staff, formationHandler.Report)
		sessionsGroup.GET("/formation/export", staff, formationHandler.Export)
		sessionsGroup.POST("/results/send", staff, notificationHandler.SendResults)
		sessionsGroup.POST("/results/reminders", staff, notificationHandler.SendReminders)
		sessionsGroup.POST("/deadline-sweep", staff, membershipHandler.SweepDeadlines)
		// the comparison exposes the whole roster's names and weeks, so it
		// stays behind the staff guard; participants submit their own week
		// with the PUT below
		sessionsGroup.GET("/availability/compare", staff, availabilityHandler.Compare)
		sessionsGroup.PUT("/availability", availabilityHandler.Upsert)
		sessionsGroup.GET("/waitlist", staff, waitlistHandler.List)
		sessionsGroup.POST("/waitlist/promote", staff, waitlistHandler.Promote)

		// ownership is enforced in the service layer, the route only
		// requires authentication
		api.POST("/memberships/:id/decision", membershipHandler.Decide)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
