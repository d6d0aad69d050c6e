// File: schedly/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schedly/config"
	"schedly/cron"
	"schedly/database"
	accountRepoPkg "schedly/database/repository/account"
	bookingRepoPkg "schedly/database/repository/booking"
	eventtypeRepoPkg "schedly/database/repository/eventtype"
	hostRepoPkg "schedly/database/repository/host"
	"schedly/handlers"
	"schedly/routes"
	"schedly/services/availability"
	"schedly/services/booking"
	"schedly/services/calendar"
	"schedly/services/notification"
	"schedly/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"golang.org/x/oauth2"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitStateCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// repositories.
	hostRepo := hostRepoPkg.NewMongoHostRepo()
	eventTypeRepo := eventtypeRepoPkg.NewMongoEventTypeRepo()
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	accountRepo := accountRepoPkg.NewMongoAccountRepo()

	for name, ensure := range map[string]func() error{
		"hosts":       hostRepo.EnsureIndexes,
		"event_types": eventTypeRepo.EnsureIndexes,
		"bookings":    bookingRepo.EnsureIndexes,
		"accounts":    accountRepo.EnsureIndexes,
	} {
		if err := ensure(); err != nil {
			logger.Sugar().Fatalf("main: failed to ensure %s indexes: %v", name, err)
		}
	}

	// Token vault and OAuth application.
	vault, err := utils.NewAESVaultFromBase64Key(config.AppConfig.TokenVaultKey)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize token vault: %v", err)
	}
	oauthCfg := &oauth2.Config{
		ClientID:     config.AppConfig.OAuthClientID,
		ClientSecret: config.AppConfig.OAuthClientSecret,
		RedirectURL:  config.AppConfig.OAuthRedirectURL,
		Scopes:       []string{"calendar.readonly", "calendar.events"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  config.AppConfig.OAuthAuthURL,
			TokenURL: config.AppConfig.OAuthTokenURL,
		},
	}

	// Calendar plumbing.
	calClient := calendar.NewClient(config.AppConfig.CalendarAPIBaseURL)
	tokenManager := calendar.NewTokenManager(accountRepo, vault, oauthCfg, logger)
	busyProvider := calendar.NewBusyProvider(accountRepo, tokenManager, calClient, logger)
	eventWriter := calendar.NewEventWriter(accountRepo, tokenManager, calClient, logger)
	reconciler := calendar.NewReconciler(accountRepo, tokenManager, calClient, logger)

	// Core services.
	engine := availability.NewEngine(eventTypeRepo, hostRepo, busyProvider, bookingRepo, nil, logger)

	mailer, err := notification.NewSMTPMailer(notification.SMTPConfig{
		Host:     config.AppConfig.SMTPHost,
		Port:     config.AppConfig.SMTPPort,
		Username: config.AppConfig.SMTPUsername,
		Password: config.AppConfig.SMTPPassword,
		From:     config.AppConfig.SMTPFrom,
	})
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize mailer: %v", err)
	}
	notifSvc, err := notification.NewDefaultNotificationService(mailer, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize notification service: %v", err)
	}

	reminderClient := cron.NewReminderClient(logger)
	defer reminderClient.Close()
	cron.InitReminderWorker(bookingRepo, eventTypeRepo, hostRepo, notifSvc, logger)

	bookingService := booking.NewService(
		bookingRepo,
		eventTypeRepo,
		hostRepo,
		engine,
		eventWriter,
		notifSvc,
		reminderClient,
		nil,
		logger,
	)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		Availability: &handlers.AvailabilityHandler{Engine: engine},
		Booking:      &handlers.BookingHandler{Service: bookingService},
		EventTypes:   &handlers.EventTypeHandler{EventTypes: eventTypeRepo},
		Calendars:    &handlers.CalendarHandler{Accounts: accountRepo},
		OAuth: &handlers.OAuthHandler{
			Accounts:   accountRepo,
			OAuth:      oauthCfg,
			Vault:      vault,
			Client:     calClient,
			Reconciler: reconciler,
			State:      utils.GetStateClient(),
			Logger:     logger,
		},
		Hosts:    &handlers.HostHandler{Hosts: hostRepo},
		HostRepo: hostRepo,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	utils.StartHealthMonitor([]*redis.Client{utils.GetStateClient()}, database.MongoClient)

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
