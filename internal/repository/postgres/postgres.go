package postgres

import (
	"database/sql"

	"peerrent-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.OrderRepository
	repository.ContractRepository
	repository.ExtensionRepository
	repository.DisputeRepository
	repository.LedgerRepository
	repository.EventRepository
	repository.NotificationRepository
	repository.UserRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		OrderRepository:        NewOrderRepository(db),
		ContractRepository:     NewContractRepository(db),
		ExtensionRepository:    NewExtensionRepository(db),
		DisputeRepository:      NewDisputeRepository(db),
		LedgerRepository:       NewLedgerRepository(db),
		EventRepository:        NewEventRepository(db),
		NotificationRepository: NewNotificationRepository(db),
		UserRepository:         NewUserRepository(db),
	}
}
