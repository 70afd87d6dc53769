// Package main initializes and starts the pushdeck server, setting up
// configuration, logging, the database connection, repositories,
// services, and HTTP handlers.
package main

import (
	"cmp"
	"context"
	"fmt"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/avdushin/pushdeck/internal/config"
	"github.com/avdushin/pushdeck/internal/db"
	"github.com/avdushin/pushdeck/internal/logger"
	"github.com/avdushin/pushdeck/internal/repository"
	"github.com/avdushin/pushdeck/internal/server/handler/http"
	"github.com/avdushin/pushdeck/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()
	addr := options.Port
	dbName := options.DatabaseDSN

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Info"); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Load the VAPID key pair generated by tools/vapidgen.
	keys, err := config.LoadVAPIDKeys(options.VAPIDKeyFile)
	if err != nil {
		zapLogger.Fatal("cannot load VAPID keys, run tools/vapidgen first", zap.Error(err))
	}

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(dbName)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Prune registrations whose endpoints have not re-registered.
	db.StartStaleSubscriptionCleaner(context.Background(), postgresDB,
		time.Hour,       // interval
		90*24*time.Hour, // retention: 90 days
		zapLogger,
	)

	// Initialize the subscription repository.
	subRepo := repository.NewPostgresSubscriptionRepository(postgresDB)

	// Initialize business-logic services.
	subService := service.NewSubscriptionService(subRepo, zapLogger)
	pushService := service.NewPushService(subRepo, &service.WebPushSender{
		Subscriber: options.Contact,
		PublicKey:  keys.PublicKey,
		PrivateKey: keys.PrivateKey,
		TTL:        60,
	}, zapLogger)

	// Create HTTP handlers for the subscription and push endpoints.
	subHandler := &http.SubscriptionHandler{Registry: subService, VAPIDPublicKey: keys.PublicKey}
	pushHandler := &http.PushHandler{Broadcaster: pushService}

	// Build the router with middleware and routes.
	router := http.NewRouter(subHandler, pushHandler, options.AdminToken, zapLogger)

	// Create and start the HTTP server.
	server := &nethttp.Server{
		Addr:    addr,
		Handler: router,
	}

	zapLogger.Info("starting HTTP server", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
