package repository

import (
	"context"
	"time"

	"peerrent-backend/internal/domain"
)

type OrderRepository interface {
	CreateMaster(ctx context.Context, order *domain.MasterOrder) error
	GetMaster(ctx context.Context, id string) (*domain.MasterOrder, error)
	GetMasterBySubOrder(ctx context.Context, subOrderID string) (*domain.MasterOrder, error)
	// UpdateMaster performs an optimistic-locking write: it fails with no
	// rows affected when order.Version is stale, and bumps the version on
	// success. Sub-order rows are not touched.
	UpdateMaster(ctx context.Context, order *domain.MasterOrder) error
	GetSubOrder(ctx context.Context, id string) (*domain.SubOrder, error)
	// UpdateSubOrder is optimistic like UpdateMaster and rewrites line item
	// statuses as part of the same transaction.
	UpdateSubOrder(ctx context.Context, sub *domain.SubOrder) error
	ListByRenter(ctx context.Context, renterID string, status string, page, pageSize int32) ([]domain.MasterOrder, int32, error)
	ListSubOrdersByOwner(ctx context.Context, ownerID string, status string, page, pageSize int32) ([]domain.SubOrder, int32, error)
}

type ContractRepository interface {
	Create(ctx context.Context, c *domain.Contract) error
	GetByID(ctx context.Context, id string) (*domain.Contract, error)
	GetBySubOrder(ctx context.Context, subOrderID string) (*domain.Contract, error)
	Update(ctx context.Context, c *domain.Contract) error

	// OTP challenge state, one row per (contract, actor).
	UpsertChallenge(ctx context.Context, ch *domain.OtpChallenge) error
	GetChallenge(ctx context.Context, contractID, actorID string) (*domain.OtpChallenge, error)
	DeleteExpiredChallenges(ctx context.Context, before time.Time) (int64, error)
}

type ExtensionRepository interface {
	Create(ctx context.Context, req *domain.ExtensionRequest) error
	GetByID(ctx context.Context, id string) (*domain.ExtensionRequest, error)
	Update(ctx context.Context, req *domain.ExtensionRequest) error
	GetPendingBySubOrder(ctx context.Context, subOrderID string) (*domain.ExtensionRequest, error)
}

type DisputeRepository interface {
	Create(ctx context.Context, d *domain.Dispute) error
	GetByID(ctx context.Context, id string) (*domain.Dispute, error)
	Update(ctx context.Context, d *domain.Dispute) error
	// GetOpenByLineItem enforces the one-active-dispute-per-line-item
	// invariant; returns nil, nil when none is open.
	GetOpenByLineItem(ctx context.Context, subOrderID string, productIndex int32) (*domain.Dispute, error)
	HasOpenBySubOrder(ctx context.Context, subOrderID string) (bool, error)
	ListBySubOrder(ctx context.Context, subOrderID string) ([]domain.Dispute, error)
	// Sweep queries for the timer-driven forced transitions.
	ListExpiredResponse(ctx context.Context, now time.Time) ([]domain.Dispute, error)
	ListExpiredNegotiation(ctx context.Context, now time.Time) ([]domain.Dispute, error)
}

// LedgerRepository is the wallet boundary. Debits and credits are atomic
// row-locked SQL; the orchestration layer never reads a balance and writes
// it back.
type LedgerRepository interface {
	// Debit fails with domain.InsufficientFundsError when the available
	// balance does not cover the amount. A repeated idempotency key is a
	// success no-op.
	Debit(ctx context.Context, tx *domain.LedgerTransaction) error
	Credit(ctx context.Context, tx *domain.LedgerTransaction) error
	GetAvailableBalance(ctx context.Context, accountID string) (int64, error)
	ListTransactions(ctx context.Context, accountID string, page, pageSize int32) ([]domain.LedgerTransaction, int32, error)
}

type EventRepository interface {
	Create(ctx context.Context, ev *domain.LifecycleEvent) error
	ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.LifecycleEvent, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID string) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	SetBlacklisted(ctx context.Context, id string, blacklisted bool, reason string) error
	AdjustCreditScore(ctx context.Context, id string, delta int32) error
}
