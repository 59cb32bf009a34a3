package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"peerrent-backend/internal/config"
	"peerrent-backend/internal/deadline"
	"peerrent-backend/internal/jobs"
	"peerrent-backend/internal/logger"
	"peerrent-backend/internal/repository/postgres"
	"peerrent-backend/internal/scheduler"
	"peerrent-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'escalate-expired-disputes', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting PeerRent Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
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
	disputeSvc := service.NewDisputeService(store.DisputeRepository, store.OrderRepository, store.LedgerRepository, store.UserRepository, emitter, policy, clock)

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(disputeSvc, store.ContractRepository, clock, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "escalate-expired-disputes":
		jobRunner.EscalateExpiredDisputes()
	case "cleanup-expired-otp":
		jobRunner.CleanupExpiredOtpChallenges()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - escalate-expired-disputes\n")
		fmt.Printf("  - cleanup-expired-otp\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
