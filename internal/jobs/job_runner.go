package jobs

import (
	"peerrent-backend/internal/config"
	"peerrent-backend/internal/deadline"
	"peerrent-backend/internal/logger"
	"peerrent-backend/internal/repository"
	"peerrent-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	disputes  service.DisputeService
	contracts repository.ContractRepository
	clock     deadline.Clock
	config    *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(disputes service.DisputeService, contracts repository.ContractRepository, clock deadline.Clock, cfg *config.Config) *JobRunner {
	return &JobRunner{
		disputes:  disputes,
		contracts: contracts,
		clock:     clock,
		config:    cfg,
	}
}

// Config exposes the loaded configuration to the scheduler.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution from the cronjob binary).
func (jr *JobRunner) RunAll() {
	jr.EscalateExpiredDisputes()
	jr.CleanupExpiredOtpChallenges()
}
