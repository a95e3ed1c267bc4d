package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/melnyresults/booking-api/api/swagger"
	"github.com/melnyresults/booking-api/internal/gcal"
	"github.com/melnyresults/booking-api/internal/handler"
	"github.com/melnyresults/booking-api/internal/middleware"
	"github.com/melnyresults/booking-api/internal/repository"
	"github.com/melnyresults/booking-api/internal/service"
	"github.com/melnyresults/booking-api/pkg/cache"
	"github.com/melnyresults/booking-api/pkg/config"
	"github.com/melnyresults/booking-api/pkg/database"
	"github.com/melnyresults/booking-api/pkg/jobs"
	"github.com/melnyresults/booking-api/pkg/lock"
	"github.com/melnyresults/booking-api/pkg/logger"
	corsmiddleware "github.com/melnyresults/booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/melnyresults/booking-api/pkg/middleware/requestid"
)

// @title Booking API
// @version 0.1.0
// @description Availability resolution, slot generation and conflict-safe booking
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var locker lock.HostLocker = lock.NewLocalLocker()
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient, cfg.Booking.CommitLockTTL, cfg.Booking.CommitLockWait)
	}

	hosts := repository.NewHostRepository(db)
	schedules := repository.NewScheduleRepository(db)
	overrides := repository.NewOverrideRepository(db)
	eventTypes := repository.NewEventTypeRepository(db)
	bookings := repository.NewBookingRepository(db)
	connections := repository.NewCalendarConnectionRepository(db)

	metrics := service.NewMetricsService()
	calendar := gcal.NewProvider(cfg.Google, cfg.Booking.ExternalCalendarTimeout, connections, logr)

	availabilitySvc := service.NewAvailabilityService(schedules, overrides, logr)
	eventTypeSvc := service.NewEventTypeService(hosts, eventTypes, logr)

	// A nil *gcal.Provider must stay a nil interface inside the services.
	slotSvc := service.NewSlotService(availabilitySvc, bookings, nil, metrics, logr)
	bookingSvc := service.NewBookingService(hosts, eventTypes, bookings, slotSvc, locker, nil, metrics, nil, logr)
	if calendar != nil {
		slotSvc = service.NewSlotService(availabilitySvc, bookings, calendar, metrics, logr)
		bookingSvc = service.NewBookingService(hosts, eventTypes, bookings, slotSvc, locker, calendar, metrics, nil, logr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var syncQueue *jobs.SyncQueue
	if calendar != nil {
		syncQueue = jobs.NewSyncQueue(bookingSvc.SyncToCalendar, jobs.SyncQueueConfig{
			Workers:    cfg.Booking.SyncWorkers,
			MaxRetries: cfg.Booking.SyncRetries,
			Logger:     logr,
		})
		syncQueue.Start(ctx)
		defer syncQueue.Stop()
		bookingSvc.SetSyncQueue(syncQueue)
	}

	eventTypeHandler := handler.NewEventTypeHandler(eventTypeSvc)
	availabilityHandler := handler.NewAvailabilityHandler(eventTypeSvc, availabilitySvc, slotSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		hostRoutes := api.Group("/hosts/:slug")
		hostRoutes.GET("/event-types", eventTypeHandler.List)
		hostRoutes.GET("/event-types/:eventTypeSlug", eventTypeHandler.Get)
		hostRoutes.GET("/event-types/:eventTypeSlug/dates", availabilityHandler.Dates)
		hostRoutes.GET("/event-types/:eventTypeSlug/slots", availabilityHandler.Slots)

		bookingRoutes := api.Group("/bookings")
		bookingRoutes.POST("", bookingHandler.Create)
		bookingRoutes.GET("/:id", bookingHandler.Get)
		bookingRoutes.POST("/:id/confirm", bookingHandler.Confirm)
		bookingRoutes.POST("/:id/cancel", bookingHandler.Cancel)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "calendar", calendar != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
