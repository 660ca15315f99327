package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homezy/config"
	"homezy/cron"
	"homezy/database"
	bookingRepo "homezy/database/repository/booking"
	catalogRepo "homezy/database/repository/catalog"
	offerRepo "homezy/database/repository/offer"
	partnerRepo "homezy/database/repository/partner"
	"homezy/handlers"
	"homezy/middleware"
	"homezy/routes"
	bookingSvc "homezy/services/booking"
	"homezy/services/dispatch"
	"homezy/services/notification"
	"homezy/services/settings"
	"homezy/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitSettingsCache()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(cors.Default())

	// repositories.
	bookings := bookingRepo.NewMongoBookingRepo()
	ledger := offerRepo.NewMongoOfferLedger()
	directory := partnerRepo.NewMongoPartnerDirectory()
	catalog := catalogRepo.NewMongoServiceCatalog()

	// services.
	settingsService := settings.NewDefaultSettingsService(utils.GetSettingsCacheClient(), logger)
	notificationService := notification.NewDefaultNotificationService(directory, logger)

	var strategy dispatch.RankStrategy
	if config.AppConfig.DispatchRankingMode == "fullpool" {
		strategy = &dispatch.FullPoolStrategy{Directory: directory}
	} else {
		strategy = &dispatch.SmartStrategy{Directory: directory, Bookings: bookings}
	}

	clock := dispatch.SystemClock{}
	dispatchEngine := &dispatch.DefaultEngine{
		Bookings: bookings,
		Ledger:   ledger,
		Ranker:   &dispatch.Ranker{Catalog: catalog, Strategy: strategy},
		Dispatcher: &dispatch.BatchDispatcher{
			Ledger:   ledger,
			Bookings: bookings,
			Sink:     notificationService,
			Clock:    clock,
			Logger:   logger,
		},
		Sink:     notificationService,
		Settings: settingsService,
		Defaults: dispatch.Defaults{
			BatchSize:    config.AppConfig.DispatchBatchSize,
			OfferTTLSecs: config.AppConfig.DispatchOfferTTLSecs,
			MaxBatches:   config.AppConfig.DispatchMaxBatches,
		},
		Logger: logger,
	}

	enqueuer := cron.NewEnqueuer()
	bookingService := &bookingSvc.DefaultBookingService{
		Bookings:  bookings,
		Ledger:    ledger,
		Catalog:   catalog,
		Directory: directory,
		Notifier:  notificationService,
		Enqueuer:  enqueuer,
		Clock:     clock,
		Logger:    logger,
	}

	// Background worker: dispatch triggers + periodic expiry sweep.
	cron.InitDispatchWorker(dispatchEngine)

	// Assemble the handler bundle.
	bundle := &routes.HandlerBundle{
		Booking:       handlers.NewBookingHandler(bookingService, logger),
		Jobs:          handlers.NewJobsHandler(bookingService, logger),
		Services:      handlers.NewServicesHandler(catalog),
		Dispatch:      handlers.NewDispatchHandler(dispatchEngine, enqueuer, logger),
		Notifications: handlers.NewNotificationsHandler(notificationService),
	}
	routes.RegisterRoutes(router, bundle)

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.AppPort,
		Handler: router,
	}

	go func() {
		logger.Sugar().Infof("Server listening on port %s", config.AppConfig.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("Forced shutdown: %v", err)
	}
	logger.Info("Server exited")
}
