package main

import (
	"database/sql"
	"flag"
	"log"
	"net/http"
	"time"

	httpapi "peerrent-backend/internal/api/http"
	"peerrent-backend/internal/config"
	"peerrent-backend/internal/deadline"
	"peerrent-backend/internal/logger"
	"peerrent-backend/internal/repository/postgres"
	"peerrent-backend/internal/security"
	"peerrent-backend/internal/service"
	"peerrent-backend/internal/storage"

	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting PeerRent Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenTTL())

	// Initialize Media Storage
	var media storage.MediaStorage
	if cfg.Storage.Type == "" || cfg.Storage.Type == "mock" {
		logger.Info("Using mock storage (local filesystem)", "upload_dir", cfg.Storage.UploadDir)
		media, err = storage.NewMockMediaStorage(cfg.Storage.BaseURL, cfg.Storage.UploadDir)
		if err != nil {
			logger.Error("Failed to initialize mock storage", "error", err)
			log.Fatalf("Failed to initialize mock storage: %v", err)
		}
	} else {
		logger.Error("Unsupported storage type", "type", cfg.Storage.Type)
		log.Fatalf("Storage type '%s' not yet implemented", cfg.Storage.Type)
	}

	// Deadline policy and clock
	policy := deadline.NewPolicy(deadline.Durations{
		OtpValidity:         time.Duration(cfg.Deadlines.OtpValidityMinutes) * time.Minute,
		OwnerConfirmation:   time.Duration(cfg.Deadlines.OwnerConfirmationHours) * time.Hour,
		ReceiptUpload:       time.Duration(cfg.Deadlines.ReceiptUploadHours) * time.Hour,
		ReceiptConfirmation: time.Duration(cfg.Deadlines.ReceiptConfirmationHours) * time.Hour,
		DisputeResponse:     time.Duration(cfg.Deadlines.DisputeResponseHours) * time.Hour,
		DisputeNegotiation:  time.Duration(cfg.Deadlines.DisputeNegotiationDays) * 24 * time.Hour,
	})
	clock := deadline.SystemClock{}

	// Initialize Services
	emailSvc := service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	emitter := service.NewEventEmitter(store.EventRepository, store.NotificationRepository, store.UserRepository, emailSvc)
	gateway := service.NewMockPaymentGateway(cfg.Storage.BaseURL)
	orderSvc := service.NewOrderService(store.OrderRepository, store.ContractRepository, store.DisputeRepository, store.LedgerRepository, gateway, emitter, policy, clock)
	contractSvc := service.NewContractService(store.ContractRepository, store.UserRepository, orderSvc, emailSvc, policy, clock)
	disputeSvc := service.NewDisputeService(store.DisputeRepository, store.OrderRepository, store.LedgerRepository, store.UserRepository, emitter, policy, clock)
	extensionSvc := service.NewExtensionService(store.ExtensionRepository, store.OrderRepository, store.LedgerRepository, emitter)
	ledgerSvc := service.NewLedgerService(store.LedgerRepository)
	noteSvc := service.NewNotificationService(store.NotificationRepository)

	// HTTP API
	router := httpapi.NewRouter(httpapi.RouterDeps{
		Orders:        orderSvc,
		Contracts:     contractSvc,
		Disputes:      disputeSvc,
		Extensions:    extensionSvc,
		Ledger:        ledgerSvc,
		Notifications: noteSvc,
		Media:         media,
		Tokens:        tokenManager,
	})

	addr := cfg.GetServerAddress()
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logger.Info("HTTP server listening", "address", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Failed to serve HTTP", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
}
