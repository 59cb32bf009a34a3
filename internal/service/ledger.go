package service

import (
	"context"

	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/repository"
)

type ledgerService struct {
	ledgerRepo repository.LedgerRepository
}

func NewLedgerService(ledgerRepo repository.LedgerRepository) LedgerService {
	return &ledgerService{ledgerRepo: ledgerRepo}
}

func (s *ledgerService) GetAvailableBalance(ctx context.Context, actor domain.Actor, accountID string) (int64, error) {
	if actor.ID != accountID && !actor.IsAdmin() {
		return 0, domain.AuthorizationError("cannot read another party's balance")
	}
	return s.ledgerRepo.GetAvailableBalance(ctx, accountID)
}

func (s *ledgerService) ListTransactions(ctx context.Context, actor domain.Actor, accountID string, page, pageSize int32) ([]domain.LedgerTransaction, int32, error) {
	if actor.ID != accountID && !actor.IsAdmin() {
		return nil, 0, domain.AuthorizationError("cannot read another party's transactions")
	}
	return s.ledgerRepo.ListTransactions(ctx, accountID, page, pageSize)
}
