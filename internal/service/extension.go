package service

import (
	"context"
	"fmt"
	"time"

	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/logger"
	"peerrent-backend/internal/repository"

	"github.com/google/uuid"
)

type extensionService struct {
	extRepo    repository.ExtensionRepository
	orderRepo  repository.OrderRepository
	ledgerRepo repository.LedgerRepository
	emitter    EventEmitter
}

func NewExtensionService(
	extRepo repository.ExtensionRepository,
	orderRepo repository.OrderRepository,
	ledgerRepo repository.LedgerRepository,
	emitter EventEmitter,
) ExtensionService {
	return &extensionService{
		extRepo:    extRepo,
		orderRepo:  orderRepo,
		ledgerRepo: ledgerRepo,
		emitter:    emitter,
	}
}

func (s *extensionService) RequestExtension(ctx context.Context, actor domain.Actor, subOrderID string, newEndDate time.Time, fee int64, method domain.PaymentMethod, notes string) (*domain.ExtensionRequest, error) {
	if fee < 0 {
		return nil, domain.ValidationError("extension fee cannot be negative")
	}

	so, err := s.orderRepo.GetSubOrder(ctx, subOrderID)
	if err != nil {
		return nil, err
	}
	if so.Status != domain.SubOrderStatusActive {
		return nil, domain.InvalidStateError("sub-order is %s, extensions require ACTIVE", so.Status)
	}
	m, err := s.orderRepo.GetMaster(ctx, so.MasterOrderID)
	if err != nil {
		return nil, err
	}
	if m.RenterID != actor.ID {
		return nil, domain.AuthorizationError("only the renter may request an extension")
	}
	if !newEndDate.After(so.Period.EndDate) {
		return nil, domain.ValidationError("new end date must be after the current end date")
	}

	// One pending extension per sub-order at a time.
	pending, err := s.extRepo.GetPendingBySubOrder(ctx, subOrderID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, domain.InvalidStateError("an extension request is already pending for this sub-order")
	}

	req := &domain.ExtensionRequest{
		ID:            uuid.NewString(),
		SubOrderID:    subOrderID,
		RenterID:      m.RenterID,
		OwnerID:       so.OwnerID,
		NewEndDate:    newEndDate,
		Fee:           fee,
		PaymentMethod: method,
		Notes:         notes,
		Status:        domain.ExtensionStatusPending,
	}
	if err := s.extRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.emitExtension(ctx, req, "", actor.Role)
	return req, nil
}

func (s *extensionService) ApproveExtension(ctx context.Context, actor domain.Actor, requestID string) (*domain.ExtensionRequest, error) {
	var out *domain.ExtensionRequest
	err := withConflictRetry(ctx, func(ctx context.Context) error {
		req, err := s.extRepo.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req.OwnerID != actor.ID {
			return domain.AuthorizationError("only the owner may approve this extension")
		}
		if req.Status != domain.ExtensionStatusPending {
			return domain.InvalidStateError("extension request is %s, expected PENDING", req.Status)
		}

		so, err := s.orderRepo.GetSubOrder(ctx, req.SubOrderID)
		if err != nil {
			return err
		}
		if so.Status != domain.SubOrderStatusActive {
			return domain.InvalidStateError("sub-order is %s, extensions require ACTIVE", so.Status)
		}

		// Extend the period first, charge second. A failed charge reverts
		// the period, so an approval is all-or-nothing, and because the fee
		// key is only consumed by a successful debit a retried approval
		// still collects the fee.
		previousEnd := so.Period.EndDate
		so.Period.EndDate = req.NewEndDate
		if err := s.orderRepo.UpdateSubOrder(ctx, so); err != nil {
			return err
		}

		if req.Fee > 0 {
			if err := s.ledgerRepo.Debit(ctx, &domain.LedgerTransaction{
				ID:              uuid.NewString(),
				AccountID:       req.RenterID,
				Amount:          req.Fee,
				Type:            domain.TransactionTypeExtensionDebit,
				IdempotencyKey:  "extension-fee-" + req.ID,
				RelatedEntityID: req.SubOrderID,
				Description:     fmt.Sprintf("Extension fee for sub-order %s", req.SubOrderID),
			}); err != nil {
				so.Period.EndDate = previousEnd
				if rerr := s.orderRepo.UpdateSubOrder(ctx, so); rerr != nil {
					logger.Error("Failed to revert extension period", "request_id", req.ID, "error", rerr)
				}
				return err
			}
		}

		req.Status = domain.ExtensionStatusApproved
		if err := s.extRepo.Update(ctx, req); err != nil {
			return err
		}

		s.emitExtension(ctx, req, string(domain.ExtensionStatusPending), actor.Role)
		out = req
		return nil
	})
	return out, err
}

func (s *extensionService) RejectExtension(ctx context.Context, actor domain.Actor, requestID string, reason string) (*domain.ExtensionRequest, error) {
	if reason == "" {
		return nil, domain.ValidationError("rejection requires a reason")
	}
	var out *domain.ExtensionRequest
	err := withConflictRetry(ctx, func(ctx context.Context) error {
		req, err := s.extRepo.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req.OwnerID != actor.ID {
			return domain.AuthorizationError("only the owner may reject this extension")
		}
		if req.Status != domain.ExtensionStatusPending {
			return domain.InvalidStateError("extension request is %s, expected PENDING", req.Status)
		}
		req.Status = domain.ExtensionStatusRejected
		req.RejectionReason = reason
		if err := s.extRepo.Update(ctx, req); err != nil {
			return err
		}
		s.emitExtension(ctx, req, string(domain.ExtensionStatusPending), actor.Role)
		out = req
		return nil
	})
	return out, err
}

func (s *extensionService) CancelExtension(ctx context.Context, actor domain.Actor, requestID string) (*domain.ExtensionRequest, error) {
	var out *domain.ExtensionRequest
	err := withConflictRetry(ctx, func(ctx context.Context) error {
		req, err := s.extRepo.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req.RenterID != actor.ID {
			return domain.AuthorizationError("only the requesting renter may cancel this extension")
		}
		if req.Status != domain.ExtensionStatusPending {
			return domain.InvalidStateError("extension request is %s, expected PENDING", req.Status)
		}
		req.Status = domain.ExtensionStatusCancelled
		if err := s.extRepo.Update(ctx, req); err != nil {
			return err
		}
		s.emitExtension(ctx, req, string(domain.ExtensionStatusPending), actor.Role)
		out = req
		return nil
	})
	return out, err
}

func (s *extensionService) GetExtension(ctx context.Context, actor domain.Actor, requestID string) (*domain.ExtensionRequest, error) {
	req, err := s.extRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.RenterID != actor.ID && req.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, domain.AuthorizationError("not a party to this extension request")
	}
	return req, nil
}

func (s *extensionService) emitExtension(ctx context.Context, req *domain.ExtensionRequest, from string, role domain.Role) {
	s.emitter.Emit(ctx, &domain.LifecycleEvent{
		EntityType: domain.EntityTypeExtension,
		EntityID:   req.ID,
		FromState:  from,
		ToState:    string(req.Status),
		ActorRole:  role,
		Payload:    map[string]string{"sub_order_id": req.SubOrderID},
	}, req.OwnerID, req.RenterID)
}
