package service

import (
	"context"
	"fmt"

	"peerrent-backend/internal/deadline"
	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/repository"
	"peerrent-backend/internal/utils"

	"github.com/google/uuid"
)

type orderService struct {
	orderRepo    repository.OrderRepository
	contractRepo repository.ContractRepository
	disputeRepo  repository.DisputeRepository
	ledgerRepo   repository.LedgerRepository
	gateway      PaymentGateway
	emitter      EventEmitter
	policy       *deadline.Policy
	clock        deadline.Clock
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	contractRepo repository.ContractRepository,
	disputeRepo repository.DisputeRepository,
	ledgerRepo repository.LedgerRepository,
	gateway PaymentGateway,
	emitter EventEmitter,
	policy *deadline.Policy,
	clock deadline.Clock,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		contractRepo: contractRepo,
		disputeRepo:  disputeRepo,
		ledgerRepo:   ledgerRepo,
		gateway:      gateway,
		emitter:      emitter,
		policy:       policy,
		clock:        clock,
	}
}

func (s *orderService) CreateDraft(ctx context.Context, cart domain.Cart) (*domain.MasterOrder, error) {
	if cart.RenterID == "" {
		return nil, domain.ValidationError("cart has no renter")
	}
	if len(cart.Items) == 0 {
		return nil, domain.ValidationError("cart is empty")
	}
	if !cart.Period.EndDate.After(cart.Period.StartDate) && !cart.Period.EndDate.Equal(cart.Period.StartDate) {
		return nil, domain.ValidationError("rental period end date is before its start date")
	}
	for _, item := range cart.Items {
		if item.OwnerID == "" || item.ProductID == "" {
			return nil, domain.ValidationError("cart item is missing owner or product reference")
		}
	}

	now := s.clock.Now()

	m := &domain.MasterOrder{
		ID:            uuid.NewString(),
		RenterID:      cart.RenterID,
		Period:        cart.Period,
		Status:        domain.OrderStatusDraft,
		PaymentStatus: domain.PaymentStatusUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Partition the cart by owner: one sub-order per distinct owner.
	byOwner := make(map[string]*domain.SubOrder)
	var order []string
	for _, item := range cart.Items {
		so, ok := byOwner[item.OwnerID]
		if !ok {
			so = &domain.SubOrder{
				ID:            uuid.NewString(),
				MasterOrderID: m.ID,
				OwnerID:       item.OwnerID,
				Period:        cart.Period,
				Status:        domain.SubOrderStatusAwaitingPayment,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			byOwner[item.OwnerID] = so
			order = append(order, item.OwnerID)
		}

		quote, err := utils.QuoteLineItem(item, cart.Period)
		if err != nil {
			return nil, domain.ValidationError("cart item %s: %v", item.ProductID, err)
		}
		so.Items = append(so.Items, domain.ProductLineItem{
			ID:            uuid.NewString(),
			SubOrderID:    so.ID,
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			DailyRate:     item.DailyRate,
			DepositRate:   item.DepositRate,
			ProductValue:  item.ProductValue,
			RentalAmount:  quote.RentalAmount,
			DepositAmount: quote.DepositAmount,
			Status:        domain.ProductStatusRenting,
		})
		so.RentalAmount += quote.RentalAmount
		so.DepositAmount += quote.DepositAmount
		so.ShippingFee += item.ShippingFee
	}
	for _, ownerID := range order {
		so := byOwner[ownerID]
		m.SubOrders = append(m.SubOrders, *so)
		m.RentalTotal += so.RentalAmount
		m.DepositTotal += so.DepositAmount
		m.ShippingTotal += so.ShippingFee
	}

	if err := s.orderRepo.CreateMaster(ctx, m); err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, &domain.LifecycleEvent{
		EntityType: domain.EntityTypeMasterOrder,
		EntityID:   m.ID,
		FromState:  "",
		ToState:    string(domain.OrderStatusDraft),
		ActorRole:  domain.RoleRenter,
		Payload:    map[string]string{"grand_total": fmt.Sprintf("%d", m.GrandTotal())},
	}, m.RenterID)

	return m, nil
}

func (s *orderService) ConfirmOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.MasterOrder, error) {
	var out *domain.MasterOrder
	err := withConflictRetry(ctx, func(ctx context.Context) error {
		m, err := s.orderRepo.GetMaster(ctx, orderID)
		if err != nil {
			return err
		}
		if m.RenterID != actor.ID {
			return domain.AuthorizationError("only the renter may confirm this order")
		}
		if m.Status != domain.OrderStatusDraft {
			return domain.InvalidStateError("order is %s, expected DRAFT", m.Status)
		}
		m.Status = domain.OrderStatusPendingPayment
		if err := s.orderRepo.UpdateMaster(ctx, m); err != nil {
			return err
		}
		s.emitOrder(ctx, m, string(domain.OrderStatusDraft), actor.Role, nil)
		out = m
		return nil
	})
	return out, err
}

func (s *orderService) ProcessPayment(ctx context.Context, actor domain.Actor, orderID string, method domain.PaymentMethod, amount int64, txnRef string) (*domain.MasterOrder, error) {
	if txnRef == "" {
		return nil, domain.ValidationError("payment requires a transaction reference")
	}
	var out *domain.MasterOrder
	err := withConflictRetry(ctx, func(ctx context.Context) error {
		m, err := s.orderRepo.GetMaster(ctx, orderID)
		if err != nil {
			return err
		}
		if m.RenterID != actor.ID {
			return domain.AuthorizationError("only the renter may pay for this order")
		}

		// Idempotent retry: the same transaction ref on an already paid
		// order is a success no-op.
		if m.PaymentStatus == domain.PaymentStatusPaid && m.PaymentTxnRef == txnRef {
			out = m
			return nil
		}
		if m.Status != domain.OrderStatusPendingPayment {
			return domain.InvalidStateError("order is %s, expected PENDING_PAYMENT", m.Status)
		}
		if amount != m.GrandTotal() {
			return domain.PaymentError("amount %d does not match order total %d", amount, m.GrandTotal())
		}

		switch method {
		case domain.PaymentMethodWallet:
			if err := s.ledgerRepo.Debit(ctx, &domain.LedgerTransaction{
				ID:              uuid.NewString(),
				AccountID:       m.RenterID,
				Amount:          amount,
				Type:            domain.TransactionTypeRentalDebit,
				IdempotencyKey:  txnRef,
				RelatedEntityID: m.ID,
				Description:     fmt.Sprintf("Payment for order %s", m.ID),
			}); err != nil {
				if domain.IsKind(err, domain.KindInsufficientFunds) {
					return err
				}
				return domain.PaymentError("wallet debit failed: %v", err)
			}
		case domain.PaymentMethodGateway:
			p, err := s.gateway.Verify(ctx, txnRef)
			if err != nil {
				return domain.PaymentError("gateway verification failed: %v", err)
			}
			if p.Status != GatewayStatusPaid {
				return domain.PaymentError("gateway transaction %s is %s", txnRef, p.Status)
			}
			if p.Amount != amount {
				return domain.PaymentError("gateway amount %d does not match order total %d", p.Amount, amount)
			}
		default:
			return domain.ValidationError("unsupported payment method %q", method)
		}

		m.Status = domain.OrderStatusPaymentCompleted
		m.PaymentStatus = domain.PaymentStatusPaid
		m.PaymentMethod = method
		m.PaymentTxnRef = txnRef
		if err := s.orderRepo.UpdateMaster(ctx, m); err != nil {
			return err
		}
		s.emitOrder(ctx, m, string(domain.OrderStatusPendingPayment), actor.Role,
			map[string]string{"txn_ref": txnRef, "amount": fmt.Sprintf("%d", amount)})

		// Fan sub-orders out into owner review immediately after payment.
		confirmBy := s.policy.Expiry(domain.EntityTypeSubOrder, deadline.StepOwnerConfirmation, s.clock.Now())
		for i := range m.SubOrders {
			so := &m.SubOrders[i]
			so.Status = domain.SubOrderStatusOwnerReview
			so.ConfirmationDeadline = &confirmBy
			if err := s.orderRepo.UpdateSubOrder(ctx, so); err != nil {
				return err
			}
			s.emitSubOrder(ctx, so, string(domain.SubOrderStatusAwaitingPayment), actor.Role, m.RenterID)
		}

		from := m.Status
		m.Status = domain.OrderStatusPendingConfirmation
		if err := s.orderRepo.UpdateMaster(ctx, m); err != nil {
			return err
		}
		s.emitOrder(ctx, m, string(from), actor.Role, nil)
		out = m
		return nil
	})
	return out, err
}

func (s *orderService) OwnerConfirm(ctx context.Context, actor domain.Actor, subOrderID string, decision domain.ConfirmDecision, reason string) (*domain.SubOrder, error) {
	var out *domain.SubOrder
	err := withConflictRetry(ctx, func(ctx context.Context) error {
		so, err := s.orderRepo.GetSubOrder(ctx, subOrderID)
		if err != nil {
			return err
		}
		if so.OwnerID != actor.ID {
			return domain.AuthorizationError("only the owner may confirm this sub-order")
		}
		if so.Status != domain.SubOrderStatusOwnerReview {
			return domain.InvalidStateError("sub-order is %s, expected %s", so.Status, domain.SubOrderStatusOwnerReview)
		}

		from := so.Status
		switch decision {
		case domain.ConfirmDecisionConfirmed:
			so.Status = domain.SubOrderStatusOwnerConfirmed
		case domain.ConfirmDecisionRejected:
			if reason == "" {
				return domain.ValidationError("rejection requires a reason")
			}
			so.Status = domain.SubOrderStatusOwnerRejected
			so.RejectionReason = reason
		default:
			return domain.ValidationError("unknown confirmation decision %q", decision)
		}

		if err := s.orderRepo.UpdateSubOrder(ctx, so); err != nil {
			return err
		}

		m, err := s.orderRepo.GetMaster(ctx, so.MasterOrderID)
		if err != nil {
			return err
		}
		s.emitSubOrder(ctx, so, string(from), actor.Role, m.RenterID)

		if err := s.onAllOwnersDecided(ctx, m, actor.Role); err != nil {
			return err
		}
		out = so
		return nil
	})
	return out, err
}

// onAllOwnersDecided re-derives the parent status once every sub-order
// reached a terminal confirmation state: contracts are generated for the
// confirmed ones; a fully rejected order is cancelled and refunded.
func (s *orderService) onAllOwnersDecided(ctx context.Context, m *domain.MasterOrder, actorRole domain.Role) error {
	confirmed := 0
	for i := range m.SubOrders {
		so := &m.SubOrders[i]
		if !so.ConfirmationTerminal() {
			return nil
		}
		if so.Status == domain.SubOrderStatusOwnerConfirmed {
			confirmed++
		}
	}

	from := m.Status
	if confirmed == 0 {
		m.Status = domain.OrderStatusCancelled
		m.CancelReason = "all sub-orders were rejected by their owners"
		if err := s.refundPayment(ctx, m); err != nil {
			return err
		}
		if err := s.orderRepo.UpdateMaster(ctx, m); err != nil {
			return err
		}
		s.emitOrder(ctx, m, string(from), actorRole, nil)
		return nil
	}

	now := s.clock.Now()
	for i := range m.SubOrders {
		so := &m.SubOrders[i]
		if so.Status != domain.SubOrderStatusOwnerConfirmed {
			continue
		}
		c := &domain.Contract{
			ID:         uuid.NewString(),
			SubOrderID: so.ID,
			OwnerID:    so.OwnerID,
			RenterID:   m.RenterID,
			Platform: domain.SignatureSlot{
				Signed:    true,
				Signature: "platform-auto-signature",
				SignedAt:  &now,
			},
			Status: domain.ContractStatusAwaitingSignatures,
		}
		if err := s.contractRepo.Create(ctx, c); err != nil {
			return err
		}
		s.emitter.Emit(ctx, &domain.LifecycleEvent{
			EntityType: domain.EntityTypeContract,
			EntityID:   c.ID,
			ToState:    string(domain.ContractStatusAwaitingSignatures),
			ActorRole:  actorRole,
			Payload:    map[string]string{"sub_order_id": so.ID},
		}, so.OwnerID, m.RenterID)
	}

	m.Status = domain.OrderStatusReadyForContract
	if err := s.orderRepo.UpdateMaster(ctx, m); err != nil {
		return err
	}
	s.emitOrder(ctx, m, string(from), actorRole, nil)
	return nil
}

func (s *orderService) AdvanceOnContractComplete(ctx context.Context, subOrderID string) error {
	return withConflictRetry(ctx, func(ctx context.Context) error {
		so, err := s.orderRepo.GetSubOrder(ctx, subOrderID)
		if err != nil {
			return err
		}
		if so.Status != domain.SubOrderStatusOwnerConfirmed {
			return domain.InvalidStateError("sub-order is %s, expected %s", so.Status, domain.SubOrderStatusOwnerConfirmed)
		}
		from := so.Status
		so.Status = domain.SubOrderStatusContractSigned
		if err := s.orderRepo.UpdateSubOrder(ctx, so); err != nil {
			return err
		}

		m, err := s.orderRepo.GetMaster(ctx, so.MasterOrderID)
		if err != nil {
			return err
		}
		s.emitSubOrder(ctx, so, string(from), domain.RoleRenter, m.RenterID)

		for i := range m.SubOrders {
			switch m.SubOrders[i].Status {
			case domain.SubOrderStatusContractSigned, domain.SubOrderStatusOwnerRejected:
			default:
				return nil // some contract still unsigned
			}
		}

		// All signed: the whole order goes live.
		orderFrom := m.Status
		m.Status = domain.OrderStatusContractSigned
		if err := s.orderRepo.UpdateMaster(ctx, m); err != nil {
			return err
		}
		s.emitOrder(ctx, m, string(orderFrom), domain.RoleRenter, nil)

		for i := range m.SubOrders {
			sub := &m.SubOrders[i]
			if sub.Status != domain.SubOrderStatusContractSigned {
				continue
			}
			subFrom := sub.Status
			sub.Status = domain.SubOrderStatusActive
			if err := s.orderRepo.UpdateSubOrder(ctx, sub); err != nil {
				return err
			}
			s.emitSubOrder(ctx, sub, string(subFrom), domain.RoleRenter, m.RenterID)
		}

		m.Status = domain.OrderStatusActive
		if err := s.orderRepo.UpdateMaster(ctx, m); err != nil {
			return err
		}
		s.emitOrder(ctx, m, string(domain.OrderStatusContractSigned), domain.RoleRenter, nil)
		return nil
	})
}

func (s *orderService) CancelOrder(ctx context.Context, actor domain.Actor, orderID string, reason string) (*domain.MasterOrder, error) {
	var out *domain.MasterOrder
	err := withConflictRetry(ctx, func(ctx context.Context) error {
		m, err := s.orderRepo.GetMaster(ctx, orderID)
		if err != nil {
			return err
		}
		if m.RenterID != actor.ID && !actor.IsAdmin() {
			return domain.AuthorizationError("only the renter or an admin may cancel this order")
		}
		if !m.Status.CanAdvanceTo(domain.OrderStatusCancelled) {
			return domain.InvalidStateError("order is %s and can no longer be cancelled", m.Status)
		}

		from := m.Status
		m.Status = domain.OrderStatusCancelled
		m.CancelReason = reason
		if err := s.refundPayment(ctx, m); err != nil {
			return err
		}
		if err := s.orderRepo.UpdateMaster(ctx, m); err != nil {
			return err
		}

		for i := range m.SubOrders {
			so := &m.SubOrders[i]
			if so.Status == domain.SubOrderStatusOwnerRejected {
				continue
			}
			soFrom := so.Status
			so.Status = domain.SubOrderStatusCancelled
			if err := s.orderRepo.UpdateSubOrder(ctx, so); err != nil {
				return err
			}
			s.emitSubOrder(ctx, so, string(soFrom), actor.Role, m.RenterID)
		}

		s.emitOrder(ctx, m, string(from), actor.Role, map[string]string{"reason": reason})
		out = m
		return nil
	})
	return out, err
}

// refundPayment releases a held payment back to the renter's wallet.
// Idempotent: keyed on the order id.
func (s *orderService) refundPayment(ctx context.Context, m *domain.MasterOrder) error {
	if m.PaymentStatus != domain.PaymentStatusPaid {
		return nil
	}
	if err := s.ledgerRepo.Credit(ctx, &domain.LedgerTransaction{
		ID:              uuid.NewString(),
		AccountID:       m.RenterID,
		Amount:          m.GrandTotal(),
		Type:            domain.TransactionTypeRefund,
		IdempotencyKey:  "order-refund-" + m.ID,
		RelatedEntityID: m.ID,
		Description:     fmt.Sprintf("Refund for cancelled order %s", m.ID),
	}); err != nil {
		return domain.PaymentError("refund failed: %v", err)
	}
	m.PaymentStatus = domain.PaymentStatusRefunded
	return nil
}

func (s *orderService) MarkLineItemReturn(ctx context.Context, actor domain.Actor, subOrderID string, productIndex int32, status domain.ProductStatus) (*domain.SubOrder, error) {
	var out *domain.SubOrder
	err := withConflictRetry(ctx, func(ctx context.Context) error {
		so, err := s.orderRepo.GetSubOrder(ctx, subOrderID)
		if err != nil {
			return err
		}
		if so.Status != domain.SubOrderStatusActive {
			return domain.InvalidStateError("sub-order is %s, expected ACTIVE", so.Status)
		}
		if int(productIndex) < 0 || int(productIndex) >= len(so.Items) {
			return domain.ValidationError("product index %d out of range", productIndex)
		}

		m, err := s.orderRepo.GetMaster(ctx, so.MasterOrderID)
		if err != nil {
			return err
		}

		item := &so.Items[productIndex]
		switch status {
		case domain.ProductStatusReturnPending:
			if actor.ID != m.RenterID {
				return domain.AuthorizationError("only the renter may start a return")
			}
			if item.Status != domain.ProductStatusRenting {
				return domain.InvalidStateError("line item is %s, expected RENTING", item.Status)
			}
		case domain.ProductStatusReturned, domain.ProductStatusNotReturned:
			if actor.ID != so.OwnerID {
				return domain.AuthorizationError("only the owner may close a return")
			}
			if item.Status != domain.ProductStatusReturnPending && item.Status != domain.ProductStatusRenting {
				return domain.InvalidStateError("line item is already %s", item.Status)
			}
		default:
			return domain.ValidationError("unsupported product status %q", status)
		}
		item.Status = status

		if err := s.orderRepo.UpdateSubOrder(ctx, so); err != nil {
			return err
		}
		s.emitter.Emit(ctx, &domain.LifecycleEvent{
			EntityType: domain.EntityTypeSubOrder,
			EntityID:   so.ID,
			FromState:  string(domain.SubOrderStatusActive),
			ToState:    string(domain.SubOrderStatusActive),
			ActorRole:  actor.Role,
			Payload: map[string]string{
				"product_index":  fmt.Sprintf("%d", productIndex),
				"product_status": string(status),
			},
		}, so.OwnerID, m.RenterID)

		if err := s.completeIfReturned(ctx, so, m, actor.Role); err != nil {
			return err
		}
		out = so
		return nil
	})
	return out, err
}

// completeIfReturned closes the sub-order once every line item came back
// and no dispute is open, then re-derives the parent order status.
func (s *orderService) completeIfReturned(ctx context.Context, so *domain.SubOrder, m *domain.MasterOrder, role domain.Role) error {
	for _, it := range so.Items {
		if it.Status != domain.ProductStatusReturned {
			return nil
		}
	}
	open, err := s.disputeRepo.HasOpenBySubOrder(ctx, so.ID)
	if err != nil {
		return err
	}
	if open {
		return nil
	}

	from := so.Status
	so.Status = domain.SubOrderStatusCompleted
	if err := s.orderRepo.UpdateSubOrder(ctx, so); err != nil {
		return err
	}
	s.emitSubOrder(ctx, so, string(from), role, m.RenterID)

	fresh, err := s.orderRepo.GetMaster(ctx, m.ID)
	if err != nil {
		return err
	}
	for i := range fresh.SubOrders {
		switch fresh.SubOrders[i].Status {
		case domain.SubOrderStatusCompleted, domain.SubOrderStatusOwnerRejected, domain.SubOrderStatusCancelled:
		default:
			return nil
		}
	}

	orderFrom := fresh.Status
	fresh.Status = domain.OrderStatusCompleted
	if err := s.orderRepo.UpdateMaster(ctx, fresh); err != nil {
		return err
	}
	s.emitOrder(ctx, fresh, string(orderFrom), role, nil)
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.MasterOrder, error) {
	m, err := s.orderRepo.GetMaster(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if m.RenterID != actor.ID && !actor.IsAdmin() && !s.isOwnerOnOrder(m, actor.ID) {
		return nil, domain.AuthorizationError("not a party to this order")
	}
	return m, nil
}

func (s *orderService) isOwnerOnOrder(m *domain.MasterOrder, actorID string) bool {
	for i := range m.SubOrders {
		if m.SubOrders[i].OwnerID == actorID {
			return true
		}
	}
	return false
}

func (s *orderService) ListOrders(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.MasterOrder, int32, error) {
	return s.orderRepo.ListByRenter(ctx, actor.ID, status, page, pageSize)
}

func (s *orderService) ListLendings(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.SubOrder, int32, error) {
	return s.orderRepo.ListSubOrdersByOwner(ctx, actor.ID, status, page, pageSize)
}

func (s *orderService) emitOrder(ctx context.Context, m *domain.MasterOrder, from string, role domain.Role, payload map[string]string) {
	s.emitter.Emit(ctx, &domain.LifecycleEvent{
		EntityType: domain.EntityTypeMasterOrder,
		EntityID:   m.ID,
		FromState:  from,
		ToState:    string(m.Status),
		ActorRole:  role,
		Payload:    payload,
	}, m.RenterID)
}

func (s *orderService) emitSubOrder(ctx context.Context, so *domain.SubOrder, from string, role domain.Role, renterID string) {
	s.emitter.Emit(ctx, &domain.LifecycleEvent{
		EntityType: domain.EntityTypeSubOrder,
		EntityID:   so.ID,
		FromState:  from,
		ToState:    string(so.Status),
		ActorRole:  role,
	}, so.OwnerID, renterID)
}
