package jobs

import (
	"context"

	"peerrent-backend/internal/logger"
)

// EscalateExpiredDisputes fires the deadline-driven forced transitions:
// no-return disputes whose 48-hour response window or 7-day negotiation
// window passed without resolution escalate to the law-enforcement
// terminal state with maximal penalty.
func (jr *JobRunner) EscalateExpiredDisputes() {
	jr.runWithRecovery("EscalateExpiredDisputes", func() {
		count, err := jr.disputes.EscalateExpired(context.Background())
		if err != nil {
			logger.Error("Dispute escalation sweep failed", "error", err)
			return
		}
		if count > 0 {
			logger.Info("Escalated expired disputes", "count", count)
		}
	})
}

// CleanupExpiredOtpChallenges drops OTP challenge rows whose expiry passed.
// Expired challenges are already rejected at verification time; this keeps
// the table from growing unbounded.
func (jr *JobRunner) CleanupExpiredOtpChallenges() {
	jr.runWithRecovery("CleanupExpiredOtpChallenges", func() {
		deleted, err := jr.contracts.DeleteExpiredChallenges(context.Background(), jr.clock.Now())
		if err != nil {
			logger.Error("OTP cleanup failed", "error", err)
			return
		}
		if deleted > 0 {
			logger.Info("Deleted expired OTP challenges", "count", deleted)
		}
	})
}
