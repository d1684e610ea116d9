// File: lokals/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lokals/config"
	"lokals/cron"
	"lokals/database"
	bookingRepoPkg "lokals/database/repository/booking"
	pricingRepoPkg "lokals/database/repository/pricing"
	providerRepoPkg "lokals/database/repository/provider"
	"lokals/handlers"
	"lokals/middleware"
	"lokals/routes"
	"lokals/services/booking"
	"lokals/services/broadcast"
	"lokals/services/notification"
	"lokals/services/pricing"
	"lokals/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitPubSub()
	if config.AppConfig.FirebaseCredentialsFile != "" {
		utils.FirebaseInit()
	} else {
		logger.Warn("no Firebase credentials configured, provider pushes disabled")
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	providerRepo := providerRepoPkg.NewMongoProviderRepo()
	pricingRepo := pricingRepoPkg.NewMongoPricingRepo(utils.GetCacheClient())

	// services.
	broadcaster := broadcast.NewRedisBroadcaster()

	notificationService := &notification.DefaultNotificationService{
		Providers: providerRepo,
		Messenger: utils.FCMClient,
		Logger:    logger,
	}

	pricingService := &pricing.DefaultPricingService{
		Repo:            pricingRepo,
		FreshnessWindow: time.Duration(config.AppConfig.DynamicPriceFreshnessHours) * time.Hour,
		Logger:          logger,
	}

	matchingService := &booking.DefaultMatchingService{
		Bookings:      bookingRepo,
		Providers:     providerRepo,
		Notifier:      notificationService,
		Ranker:        &booking.DistanceRanker{RadiusKm: config.AppConfig.MatchRadiusKm},
		RadiusKm:      config.AppConfig.MatchRadiusKm,
		MaxCandidates: config.AppConfig.MatchMaxCandidates,
		Logger:        logger,
	}

	lifecycleService := &booking.DefaultLifecycleService{
		Repo:        bookingRepo,
		Broadcaster: broadcaster,
		Logger:      logger,
	}

	arbiterService := &booking.DefaultArbiterService{
		Repo:        bookingRepo,
		Broadcaster: broadcaster,
		Logger:      logger,
	}

	bookingService := &booking.DefaultBookingService{
		Bookings:  bookingRepo,
		Providers: providerRepo,
		Pricing:   pricingService,
		PriceRepo: pricingRepo,
		Matching:  matchingService,
		Logger:    logger,
	}

	// handlers.
	bookingHandler := handlers.NewBookingHandler(bookingService, lifecycleService, arbiterService, logger)
	pricingHandler := handlers.NewPricingHandler(pricingService)
	streamHandler := handlers.NewStreamHandler(broadcaster, logger)

	routes.SetupRoutes(router, bookingHandler, pricingHandler, streamHandler)

	// Background expiry sweep for stale PENDING bookings.
	cron.InitExpiryWorker(bookingRepo, broadcaster)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
