package service

import (
	"context"
	"fmt"
	"time"

	"peerrent-backend/internal/deadline"
	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/logger"
	"peerrent-backend/internal/repository"

	"github.com/google/uuid"
)

// maxReceiptRejections bounds the external-payment reject/re-upload loop.
// One more rejection past the cap forces the dispute into admin review.
const maxReceiptRejections = 3

// noReturnCreditPenalty and noReturnReschedulePenalty are the credit-score
// deltas applied to the renter in the RENTER_NO_RETURN flow.
const (
	noReturnCreditPenalty       = -100
	noReturnReschedulePenalty   = -10
	reschedulePenaltyPercent    = 10
	systemActorID               = "SYSTEM"
)

type disputeService struct {
	disputeRepo repository.DisputeRepository
	orderRepo   repository.OrderRepository
	ledgerRepo  repository.LedgerRepository
	userRepo    repository.UserRepository
	emitter     EventEmitter
	policy      *deadline.Policy
	clock       deadline.Clock
}

func NewDisputeService(
	disputeRepo repository.DisputeRepository,
	orderRepo repository.OrderRepository,
	ledgerRepo repository.LedgerRepository,
	userRepo repository.UserRepository,
	emitter EventEmitter,
	policy *deadline.Policy,
	clock deadline.Clock,
) DisputeService {
	return &disputeService{
		disputeRepo: disputeRepo,
		orderRepo:   orderRepo,
		ledgerRepo:  ledgerRepo,
		userRepo:    userRepo,
		emitter:     emitter,
		policy:      policy,
		clock:       clock,
	}
}

func (s *disputeService) CreateDispute(ctx context.Context, actor domain.Actor, in CreateDisputeInput) (*domain.Dispute, error) {
	if in.Description == "" {
		return nil, domain.ValidationError("dispute description is required")
	}

	so, err := s.orderRepo.GetSubOrder(ctx, in.SubOrderID)
	if err != nil {
		return nil, err
	}
	if so.Status != domain.SubOrderStatusActive {
		return nil, domain.InvalidStateError("sub-order is %s, disputes require ACTIVE", so.Status)
	}
	if int(in.ProductIndex) < 0 || int(in.ProductIndex) >= len(so.Items) {
		return nil, domain.ValidationError("product index %d out of range", in.ProductIndex)
	}
	m, err := s.orderRepo.GetMaster(ctx, so.MasterOrderID)
	if err != nil {
		return nil, err
	}

	var complainantRole, respondentRole domain.Role
	var respondentID string
	switch actor.ID {
	case m.RenterID:
		complainantRole, respondentRole = domain.RoleRenter, domain.RoleOwner
		respondentID = so.OwnerID
	case so.OwnerID:
		complainantRole, respondentRole = domain.RoleOwner, domain.RoleRenter
		respondentID = m.RenterID
	default:
		return nil, domain.AuthorizationError("not a party to this sub-order")
	}
	if in.Type == domain.DisputeTypeRenterNoReturn && complainantRole != domain.RoleOwner {
		return nil, domain.AuthorizationError("only the owner may open a no-return dispute")
	}

	open, err := s.disputeRepo.GetOpenByLineItem(ctx, in.SubOrderID, in.ProductIndex)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, domain.InvalidStateError("an open dispute already exists for this line item")
	}

	now := s.clock.Now()
	item := so.Items[in.ProductIndex]
	d := &domain.Dispute{
		ID:              uuid.NewString(),
		SubOrderID:      in.SubOrderID,
		ProductIndex:    in.ProductIndex,
		Type:            in.Type,
		ComplainantID:   actor.ID,
		ComplainantRole: complainantRole,
		RespondentID:    respondentID,
		RespondentRole:  respondentRole,
		Status:          domain.DisputeStatusOpen,
		Description:     in.Description,
		// Penalty math is pinned to these snapshots for the dispute's
		// entire lifetime.
		DepositSnapshot:      item.DepositAmount,
		ProductValueSnapshot: item.ProductValue * item.Quantity,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if len(in.Photos) > 0 || len(in.Videos) > 0 {
		d.Evidence = append(d.Evidence, domain.Evidence{
			Party:      domain.EvidencePartyComplainant,
			Photos:     in.Photos,
			Videos:     in.Videos,
			Note:       in.Description,
			UploadedAt: now,
		})
	}
	if in.Type == domain.DisputeTypeRenterNoReturn {
		response := s.policy.Expiry(domain.EntityTypeDispute, deadline.StepDisputeResponse, now)
		negotiation := s.policy.Expiry(domain.EntityTypeDispute, deadline.StepDisputeNegotiation, now)
		d.ResponseDeadline = &response
		d.NegotiationDeadline = &negotiation
	}

	if err := s.disputeRepo.Create(ctx, d); err != nil {
		return nil, err
	}
	s.emitDispute(ctx, d, "", actor.Role)
	return d, nil
}

func (s *disputeService) Respond(ctx context.Context, actor domain.Actor, disputeID string, decision domain.RespondDecision, reason string, photos, videos []string) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if actor.ID != d.RespondentID {
			return domain.AuthorizationError("only the respondent may respond to this dispute")
		}
		if d.Status != domain.DisputeStatusOpen {
			return domain.InvalidStateError("dispute is %s, expected OPEN", d.Status)
		}
		if err := s.checkResponseDeadline(d); err != nil {
			return err
		}

		s.appendEvidence(d, actor.ID, photos, videos, reason)
		d.ResponseReason = reason
		switch decision {
		case domain.RespondDecisionAccepted:
			d.Status = domain.DisputeStatusAccepted
		case domain.RespondDecisionRejected:
			if reason == "" {
				return domain.ValidationError("rejecting a dispute requires a reason")
			}
			d.Status = domain.DisputeStatusEscalated
		default:
			return domain.ValidationError("unknown response decision %q", decision)
		}
		return nil
	}, actor.Role)
}

func (s *disputeService) ProposeReschedule(ctx context.Context, actor domain.Actor, disputeID string, newReturnDate time.Time, note string, photos []string) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if actor.ID != d.RespondentID {
			return domain.AuthorizationError("only the renter may propose a reschedule")
		}
		if d.Type != domain.DisputeTypeRenterNoReturn {
			return domain.ValidationError("reschedule applies to no-return disputes only")
		}
		if d.Status != domain.DisputeStatusOpen {
			return domain.InvalidStateError("dispute is %s, expected OPEN", d.Status)
		}
		if err := s.checkResponseDeadline(d); err != nil {
			return err
		}
		now := s.clock.Now()
		if !newReturnDate.After(now) {
			return domain.ValidationError("proposed return date must be in the future")
		}

		s.appendEvidence(d, actor.ID, photos, nil, note)
		d.Reschedule = &domain.Reschedule{
			ProposedReturnDate: newReturnDate,
			Note:               note,
			ProposedAt:         now,
		}
		d.Status = domain.DisputeStatusResponded
		return nil
	}, actor.Role)
}

func (s *disputeService) AcceptReschedule(ctx context.Context, actor domain.Actor, disputeID string) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if actor.ID != d.ComplainantID {
			return domain.AuthorizationError("only the owner may accept a reschedule")
		}
		if d.Status != domain.DisputeStatusResponded || d.Reschedule == nil {
			return domain.InvalidStateError("no reschedule proposal to accept")
		}

		// Accepting costs the renter 10% of the deposit recorded at
		// creation, plus a credit-score hit.
		penalty := d.DepositSnapshot * reschedulePenaltyPercent / 100
		if penalty > 0 {
			if err := s.ledgerRepo.Debit(ctx, &domain.LedgerTransaction{
				ID:              uuid.NewString(),
				AccountID:       d.RespondentID,
				Amount:          penalty,
				Type:            domain.TransactionTypePenaltyDebit,
				IdempotencyKey:  "reschedule-penalty-" + d.ID,
				RelatedEntityID: d.ID,
				Description:     fmt.Sprintf("Late-return penalty for dispute %s", d.ID),
			}); err != nil {
				return err
			}
			if err := s.ledgerRepo.Credit(ctx, &domain.LedgerTransaction{
				ID:              uuid.NewString(),
				AccountID:       d.ComplainantID,
				Amount:          penalty,
				Type:            domain.TransactionTypeCompensation,
				IdempotencyKey:  "reschedule-compensation-" + d.ID,
				RelatedEntityID: d.ID,
				Description:     fmt.Sprintf("Late-return compensation for dispute %s", d.ID),
			}); err != nil {
				return err
			}
		}
		if err := s.userRepo.AdjustCreditScore(ctx, d.RespondentID, noReturnReschedulePenalty); err != nil {
			logger.Error("Failed to adjust credit score", "user_id", d.RespondentID, "error", err)
		}

		now := s.clock.Now()
		d.Decision = &domain.DisputeDecision{
			Outcome:            domain.DecisionComplainantRight,
			CompensationAmount: penalty,
			Reasoning:          "Reschedule accepted by owner",
			DecidedBy:          actor.ID,
			DecidedAt:          now,
		}
		d.SettlementPaid = true
		d.Status = domain.DisputeStatusResolved
		d.ResolvedAt = &now
		return nil
	}, actor.Role)
}

func (s *disputeService) RejectReschedule(ctx context.Context, actor domain.Actor, disputeID string, reason string) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if actor.ID != d.ComplainantID {
			return domain.AuthorizationError("only the owner may reject a reschedule")
		}
		if d.Status != domain.DisputeStatusResponded || d.Reschedule == nil {
			return domain.InvalidStateError("no reschedule proposal to reject")
		}
		if reason == "" {
			return domain.ValidationError("rejecting a reschedule requires a reason")
		}
		s.appendEvidence(d, actor.ID, nil, nil, reason)
		d.Status = domain.DisputeStatusNegotiation
		return nil
	}, actor.Role)
}

func (s *disputeService) StartNegotiation(ctx context.Context, actor domain.Actor, disputeID string) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if !d.IsParty(actor.ID) {
			return domain.AuthorizationError("not a party to this dispute")
		}
		if d.Status != domain.DisputeStatusEscalated {
			return domain.InvalidStateError("dispute is %s, expected ESCALATED", d.Status)
		}
		if d.NegotiationDeadline == nil {
			deadlineAt := s.policy.Expiry(domain.EntityTypeDispute, deadline.StepDisputeNegotiation, s.clock.Now())
			d.NegotiationDeadline = &deadlineAt
		}
		d.Status = domain.DisputeStatusNegotiation
		return nil
	}, actor.Role)
}

func (s *disputeService) AgreeNegotiation(ctx context.Context, actor domain.Actor, disputeID string, agreedAmount int64) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if !d.IsParty(actor.ID) {
			return domain.AuthorizationError("not a party to this dispute")
		}
		if d.Status != domain.DisputeStatusNegotiation {
			return domain.InvalidStateError("dispute is %s, expected NEGOTIATION", d.Status)
		}
		if agreedAmount < 0 {
			return domain.ValidationError("agreed amount cannot be negative")
		}
		if d.NegotiationDeadline != nil && s.clock.Now().After(*d.NegotiationDeadline) {
			return domain.DeadlineExceededError("negotiation window has closed")
		}
		// Admin ratification via the final-decision operation moves funds.
		d.RepairCost = agreedAmount
		d.Status = domain.DisputeStatusNegotiationAgreed
		return nil
	}, actor.Role)
}

func (s *disputeService) EscalateThirdParty(ctx context.Context, actor domain.Actor, disputeID string) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if !d.IsParty(actor.ID) && !actor.IsAdmin() {
			return domain.AuthorizationError("not a party to this dispute")
		}
		switch d.Status {
		case domain.DisputeStatusEscalated, domain.DisputeStatusNegotiation:
		default:
			return domain.InvalidStateError("dispute is %s, expected ESCALATED or NEGOTIATION", d.Status)
		}
		d.Status = domain.DisputeStatusThirdParty
		return nil
	}, actor.Role)
}

func (s *disputeService) SubmitThirdPartyEvidence(ctx context.Context, actor domain.Actor, disputeID, officialDecision string, photos, videos []string) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if !d.IsParty(actor.ID) {
			return domain.AuthorizationError("not a party to this dispute")
		}
		if d.Status != domain.DisputeStatusThirdParty {
			return domain.InvalidStateError("dispute is %s, expected THIRD_PARTY_ESCALATED", d.Status)
		}
		// One-shot and irrevocable.
		if d.ThirdParty != nil {
			return domain.InvalidStateError("a third-party decision has already been submitted")
		}
		if officialDecision == "" {
			return domain.ValidationError("official decision text is required")
		}
		d.ThirdParty = &domain.ThirdPartyResolution{
			OfficialDecision: officialDecision,
			Photos:           photos,
			Videos:           videos,
			SubmittedBy:      actor.ID,
			SubmittedAt:      s.clock.Now(),
		}
		return nil
	}, actor.Role)
}

func (s *disputeService) InitiateExternalPayment(ctx context.Context, actor domain.Actor, disputeID string, repairCost int64) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if actor.ID != d.ComplainantID && !actor.IsAdmin() {
			return domain.AuthorizationError("only the complainant or an admin may initiate an external payment")
		}
		switch d.Status {
		case domain.DisputeStatusAccepted, domain.DisputeStatusEscalated, domain.DisputeStatusNegotiationAgreed:
		default:
			return domain.InvalidStateError("dispute is %s, external payment requires an accepted or escalated dispute", d.Status)
		}
		if repairCost <= 0 {
			return domain.ValidationError("repair cost must be positive")
		}

		depositUsed := d.DepositSnapshot
		if depositUsed > repairCost {
			depositUsed = repairCost
		}
		uploadBy := s.policy.Expiry(domain.EntityTypeDispute, deadline.StepReceiptUpload, s.clock.Now())
		d.RepairCost = repairCost
		d.ExternalPayment = &domain.ExternalPayment{
			DepositUsed:           depositUsed,
			Amount:                repairCost - depositUsed,
			ReceiptUploadDeadline: &uploadBy,
		}
		d.Status = domain.DisputeStatusPendingReceipt
		return nil
	}, actor.Role)
}

func (s *disputeService) ProposeExternalPaymentReceipt(ctx context.Context, actor domain.Actor, disputeID string, images []string) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if actor.ID != d.RespondentID {
			return domain.AuthorizationError("only the paying party may upload a receipt")
		}
		if d.Status != domain.DisputeStatusPendingReceipt || d.ExternalPayment == nil {
			return domain.InvalidStateError("dispute is %s, expected PENDING_RECEIPT", d.Status)
		}
		if len(images) == 0 {
			return domain.ValidationError("at least one receipt image is required")
		}
		now := s.clock.Now()
		if d.ExternalPayment.ReceiptUploadDeadline != nil && now.After(*d.ExternalPayment.ReceiptUploadDeadline) {
			return domain.DeadlineExceededError("receipt upload window has closed")
		}

		confirmBy := s.policy.Expiry(domain.EntityTypeDispute, deadline.StepReceiptConfirmation, now)
		d.ExternalPayment.ReceiptImages = images
		d.ExternalPayment.ReceiptUploadedAt = &now
		d.ExternalPayment.OwnerConfirmation = nil
		d.ExternalPayment.ConfirmationDeadline = &confirmBy
		d.Status = domain.DisputeStatusPendingConfirmation
		return nil
	}, actor.Role)
}

func (s *disputeService) ConfirmExternalPayment(ctx context.Context, actor domain.Actor, disputeID string, confirmed bool, note string) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if actor.ID != d.ComplainantID {
			return domain.AuthorizationError("only the receiving party may confirm an external payment")
		}
		if d.Status != domain.DisputeStatusPendingConfirmation || d.ExternalPayment == nil {
			return domain.InvalidStateError("dispute is %s, expected PENDING_EXTERNAL_CONFIRMATION", d.Status)
		}

		now := s.clock.Now()
		d.ExternalPayment.OwnerConfirmation = &domain.OwnerConfirmation{
			Confirmed:   confirmed,
			Note:        note,
			ConfirmedAt: &now,
		}
		if confirmed {
			d.SettlementPaid = true
			s.resolve(d, &domain.DisputeDecision{
				Outcome:            domain.DecisionComplainantRight,
				CompensationAmount: d.RepairCost,
				Reasoning:          "External payment confirmed by owner",
				DecidedBy:          actor.ID,
				DecidedAt:          now,
			})
			return nil
		}

		if note == "" {
			return domain.ValidationError("rejecting a receipt requires a note")
		}
		d.ExternalPayment.RejectCount++
		if d.ExternalPayment.RejectCount >= maxReceiptRejections {
			d.Status = domain.DisputeStatusPendingAdminReview
			return nil
		}
		s.reopenReceiptWindow(d, now)
		return nil
	}, actor.Role)
}

func (s *disputeService) AdminReviewExternalPayment(ctx context.Context, actor domain.Actor, disputeID string, approved bool, reasoning string) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if !actor.IsAdmin() {
			return domain.AuthorizationError("admin only")
		}
		switch d.Status {
		case domain.DisputeStatusPendingReceipt, domain.DisputeStatusPendingConfirmation, domain.DisputeStatusPendingAdminReview:
		default:
			return domain.InvalidStateError("dispute is %s, not in the external payment flow", d.Status)
		}
		if reasoning == "" {
			return domain.ValidationError("admin review requires reasoning")
		}

		if approved {
			d.SettlementPaid = true
			s.resolve(d, &domain.DisputeDecision{
				Outcome:            domain.DecisionComplainantRight,
				CompensationAmount: d.RepairCost,
				Reasoning:          reasoning,
				DecidedBy:          actor.ID,
				DecidedAt:          s.clock.Now(),
			})
			return nil
		}
		if d.ExternalPayment == nil {
			return domain.InvalidStateError("no external payment record to reopen")
		}
		d.ExternalPayment.RejectCount = 0
		s.reopenReceiptWindow(d, s.clock.Now())
		return nil
	}, actor.Role)
}

func (s *disputeService) AdminFinalDecision(ctx context.Context, actor domain.Actor, disputeID string, outcome domain.DecisionOutcome, compensationAmount int64, reasoning string) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if !actor.IsAdmin() {
			return domain.AuthorizationError("admin only")
		}
		if d.Status.Terminal() {
			return domain.InvalidStateError("dispute is already %s", d.Status)
		}
		if reasoning == "" {
			return domain.ValidationError("final decision requires reasoning")
		}
		switch outcome {
		case domain.DecisionComplainantRight:
			if compensationAmount <= 0 {
				return domain.ValidationError("a decision for the complainant requires a positive compensation amount")
			}
		case domain.DecisionRespondentRight:
			compensationAmount = 0
		default:
			return domain.ValidationError("unknown decision outcome %q", outcome)
		}

		s.resolve(d, &domain.DisputeDecision{
			Outcome:            outcome,
			CompensationAmount: compensationAmount,
			Reasoning:          reasoning,
			DecidedBy:          actor.ID,
			DecidedAt:          s.clock.Now(),
		})

		if outcome == domain.DecisionRespondentRight {
			d.SettlementPaid = true
			return nil
		}
		d.RepairCost = compensationAmount
		if err := s.settle(ctx, d); err != nil {
			if domain.IsKind(err, domain.KindInsufficientFunds) {
				// The dispute stays resolved-unpaid; admin retries the
				// settlement once the respondent tops up.
				logger.Warn("Settlement deferred, respondent balance too low",
					"dispute_id", d.ID, "amount", compensationAmount)
				return nil
			}
			return err
		}
		return nil
	}, actor.Role)
}

func (s *disputeService) AdminResolveShipperDamage(ctx context.Context, actor domain.Actor, disputeID string, in ShipperDamageInput) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if !actor.IsAdmin() {
			return domain.AuthorizationError("admin only")
		}
		if d.Type != domain.DisputeTypeShipperDamage {
			return domain.ValidationError("dispute type is %s, expected SHIPPER_DAMAGE", d.Type)
		}
		if d.Status.Terminal() {
			return domain.InvalidStateError("dispute is already %s", d.Status)
		}
		if in.Reasoning == "" {
			return domain.ValidationError("shipper damage resolution requires reasoning")
		}

		now := s.clock.Now()
		if len(in.ShipperPhotos) > 0 || len(in.ShipperVideos) > 0 || in.InsuranceClaim != "" {
			d.Evidence = append(d.Evidence, domain.Evidence{
				Party:      domain.EvidencePartyRespondent,
				Photos:     in.ShipperPhotos,
				Videos:     in.ShipperVideos,
				Note:       in.InsuranceClaim,
				UploadedAt: now,
			})
		}

		var compensation int64
		switch in.Solution {
		case domain.ShipperSolutionReplacement:
			// Carrier replaces the item in kind; no wallet movement.
		case domain.ShipperSolutionRefundCancel:
			if in.RefundAmount <= 0 || in.CompensationAmount <= 0 {
				return domain.ValidationError("refund-and-cancel requires both a refund and a compensation amount")
			}
			so, err := s.orderRepo.GetSubOrder(ctx, d.SubOrderID)
			if err != nil {
				return err
			}
			m, err := s.orderRepo.GetMaster(ctx, so.MasterOrderID)
			if err != nil {
				return err
			}
			// Insurance pays out; the platform credits both sides.
			if err := s.ledgerRepo.Credit(ctx, &domain.LedgerTransaction{
				ID:              uuid.NewString(),
				AccountID:       m.RenterID,
				Amount:          in.RefundAmount,
				Type:            domain.TransactionTypeRefund,
				IdempotencyKey:  "shipper-refund-" + d.ID,
				RelatedEntityID: d.ID,
				Description:     fmt.Sprintf("Carrier damage refund for dispute %s", d.ID),
			}); err != nil {
				return err
			}
			if err := s.ledgerRepo.Credit(ctx, &domain.LedgerTransaction{
				ID:              uuid.NewString(),
				AccountID:       so.OwnerID,
				Amount:          in.CompensationAmount,
				Type:            domain.TransactionTypeCompensation,
				IdempotencyKey:  "shipper-compensation-" + d.ID,
				RelatedEntityID: d.ID,
				Description:     fmt.Sprintf("Carrier damage compensation for dispute %s", d.ID),
			}); err != nil {
				return err
			}
			compensation = in.CompensationAmount
		default:
			return domain.ValidationError("unknown shipper damage solution %q", in.Solution)
		}

		d.SettlementPaid = true
		s.resolve(d, &domain.DisputeDecision{
			Outcome:            domain.DecisionComplainantRight,
			CompensationAmount: compensation,
			Reasoning:          in.Reasoning,
			DecidedBy:          actor.ID,
			DecidedAt:          now,
		})
		return nil
	}, actor.Role)
}

func (s *disputeService) AdminProcessPayment(ctx context.Context, actor domain.Actor, disputeID string) (*domain.Dispute, error) {
	return s.transition(ctx, disputeID, func(d *domain.Dispute) error {
		if !actor.IsAdmin() {
			return domain.AuthorizationError("admin only")
		}
		if d.Status != domain.DisputeStatusResolved && d.Status != domain.DisputeStatusLawEnforcement {
			return domain.InvalidStateError("dispute is %s, settlement requires a resolved dispute", d.Status)
		}
		if d.SettlementPaid {
			return nil // retry after success is a no-op
		}
		if d.RepairCost <= 0 {
			return domain.InvalidStateError("dispute carries no monetary obligation")
		}
		return s.settle(ctx, d)
	}, actor.Role)
}

// settle moves the dispute's monetary obligation: the held deposit covers
// the cost first, the respondent's wallet covers the shortfall, and the
// complainant is credited the full amount. InsufficientFundsError leaves
// the dispute unpaid for a later retry; the idempotency keys make that
// retry safe.
func (s *disputeService) settle(ctx context.Context, d *domain.Dispute) error {
	depositUsed := d.DepositSnapshot
	if depositUsed > d.RepairCost {
		depositUsed = d.RepairCost
	}
	shortfall := d.RepairCost - depositUsed

	if shortfall > 0 {
		if err := s.ledgerRepo.Debit(ctx, &domain.LedgerTransaction{
			ID:              uuid.NewString(),
			AccountID:      d.RespondentID,
			Amount:          shortfall,
			Type:            domain.TransactionTypeDisputeSettlement,
			IdempotencyKey:  "dispute-settle-debit-" + d.ID,
			RelatedEntityID: d.ID,
			Description:     fmt.Sprintf("Settlement shortfall for dispute %s", d.ID),
		}); err != nil {
			return err
		}
	}
	if err := s.ledgerRepo.Credit(ctx, &domain.LedgerTransaction{
		ID:              uuid.NewString(),
		AccountID:       d.ComplainantID,
		Amount:          d.RepairCost,
		Type:            domain.TransactionTypeDisputeSettlement,
		IdempotencyKey:  "dispute-settle-credit-" + d.ID,
		RelatedEntityID: d.ID,
		Description:     fmt.Sprintf("Settlement payout for dispute %s", d.ID),
	}); err != nil {
		return err
	}
	d.SettlementPaid = true
	return nil
}

func (s *disputeService) EscalateExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()
	count := 0

	expired, err := s.disputeRepo.ListExpiredResponse(ctx, now)
	if err != nil {
		return count, err
	}
	for i := range expired {
		if err := s.forceNoReturnEscalation(ctx, &expired[i]); err != nil {
			logger.Error("Failed to escalate expired dispute", "dispute_id", expired[i].ID, "error", err)
			continue
		}
		count++
	}

	stalled, err := s.disputeRepo.ListExpiredNegotiation(ctx, now)
	if err != nil {
		return count, err
	}
	for i := range stalled {
		if stalled[i].Type != domain.DisputeTypeRenterNoReturn {
			continue
		}
		if err := s.forceNoReturnEscalation(ctx, &stalled[i]); err != nil {
			logger.Error("Failed to escalate stalled negotiation", "dispute_id", stalled[i].ID, "error", err)
			continue
		}
		count++
	}
	return count, nil
}

// forceNoReturnEscalation applies the maximal penalty: 100% of the deposit
// plus 100% of the product value, a permanent blacklist, and referral to
// law enforcement.
func (s *disputeService) forceNoReturnEscalation(ctx context.Context, d *domain.Dispute) error {
	if d.Status.Terminal() {
		return nil
	}
	from := d.Status
	now := s.clock.Now()

	d.RepairCost = d.DepositSnapshot + d.ProductValueSnapshot
	d.Decision = &domain.DisputeDecision{
		Outcome:            domain.DecisionComplainantRight,
		CompensationAmount: d.RepairCost,
		Reasoning:          "Return deadline passed without resolution",
		DecidedBy:          systemActorID,
		DecidedAt:          now,
	}
	d.Status = domain.DisputeStatusLawEnforcement
	d.ResolvedAt = &now

	if err := s.settle(ctx, d); err != nil {
		if !domain.IsKind(err, domain.KindInsufficientFunds) {
			return err
		}
		logger.Warn("Escalation settlement deferred, balance too low", "dispute_id", d.ID)
	}
	if err := s.userRepo.SetBlacklisted(ctx, d.RespondentID, true, "No-return dispute escalated to law enforcement"); err != nil {
		logger.Error("Failed to blacklist user", "user_id", d.RespondentID, "error", err)
	}
	if err := s.userRepo.AdjustCreditScore(ctx, d.RespondentID, noReturnCreditPenalty); err != nil {
		logger.Error("Failed to adjust credit score", "user_id", d.RespondentID, "error", err)
	}

	if err := s.disputeRepo.Update(ctx, d); err != nil {
		return err
	}
	s.emitter.Emit(ctx, &domain.LifecycleEvent{
		EntityType: domain.EntityTypeDispute,
		EntityID:   d.ID,
		FromState:  string(from),
		ToState:    string(d.Status),
		ActorRole:  domain.RoleAdmin,
		Payload:    map[string]string{"compensation": fmt.Sprintf("%d", d.RepairCost)},
	}, d.ComplainantID, d.RespondentID)
	return nil
}

func (s *disputeService) GetDispute(ctx context.Context, actor domain.Actor, disputeID string) (*domain.Dispute, error) {
	d, err := s.disputeRepo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !d.IsParty(actor.ID) && !actor.IsAdmin() {
		return nil, domain.AuthorizationError("not a party to this dispute")
	}

	// Lazy deadline check so an expired dispute escalates even when the
	// sweep has not run yet.
	if s.noReturnExpired(d) {
		if err := s.forceNoReturnEscalation(ctx, d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (s *disputeService) noReturnExpired(d *domain.Dispute) bool {
	if d.Type != domain.DisputeTypeRenterNoReturn || d.Status.Terminal() {
		return false
	}
	now := s.clock.Now()
	if d.Status == domain.DisputeStatusOpen && d.ResponseDeadline != nil && now.After(*d.ResponseDeadline) {
		return true
	}
	if d.Status == domain.DisputeStatusNegotiation && d.NegotiationDeadline != nil && now.After(*d.NegotiationDeadline) {
		return true
	}
	return false
}

func (s *disputeService) ListBySubOrder(ctx context.Context, actor domain.Actor, subOrderID string) ([]domain.Dispute, error) {
	if !actor.IsAdmin() {
		so, err := s.orderRepo.GetSubOrder(ctx, subOrderID)
		if err != nil {
			return nil, err
		}
		m, err := s.orderRepo.GetMaster(ctx, so.MasterOrderID)
		if err != nil {
			return nil, err
		}
		if actor.ID != so.OwnerID && actor.ID != m.RenterID {
			return nil, domain.AuthorizationError("not a party to this sub-order")
		}
	}
	return s.disputeRepo.ListBySubOrder(ctx, subOrderID)
}

// transition is the shared read-modify-write wrapper for party and admin
// operations: fetch, mutate, persist with optimistic locking, emit.
func (s *disputeService) transition(ctx context.Context, disputeID string, mutate func(d *domain.Dispute) error, role domain.Role) (*domain.Dispute, error) {
	var out *domain.Dispute
	err := withConflictRetry(ctx, func(ctx context.Context) error {
		d, err := s.disputeRepo.GetByID(ctx, disputeID)
		if err != nil {
			return err
		}
		from := d.Status
		if err := mutate(d); err != nil {
			return err
		}
		if err := s.disputeRepo.Update(ctx, d); err != nil {
			return err
		}
		if d.Status != from {
			s.emitDispute(ctx, d, string(from), role)
		}
		out = d
		return nil
	})
	return out, err
}

func (s *disputeService) resolve(d *domain.Dispute, decision *domain.DisputeDecision) {
	now := s.clock.Now()
	d.Decision = decision
	d.Status = domain.DisputeStatusResolved
	d.ResolvedAt = &now
}

// reopenReceiptWindow sends the dispute back to PENDING_RECEIPT with an
// upload deadline strictly later than the previous one.
func (s *disputeService) reopenReceiptWindow(d *domain.Dispute, now time.Time) {
	window := s.policy.Window(domain.EntityTypeDispute, deadline.StepReceiptUpload)
	next := now.Add(window)
	if prev := d.ExternalPayment.ReceiptUploadDeadline; prev != nil && !next.After(*prev) {
		next = prev.Add(window)
	}
	d.ExternalPayment.ReceiptUploadDeadline = &next
	d.ExternalPayment.ConfirmationDeadline = nil
	d.Status = domain.DisputeStatusPendingReceipt
}

func (s *disputeService) checkResponseDeadline(d *domain.Dispute) error {
	if d.ResponseDeadline != nil && s.clock.Now().After(*d.ResponseDeadline) {
		return domain.DeadlineExceededError("response window has closed")
	}
	return nil
}

func (s *disputeService) appendEvidence(d *domain.Dispute, actorID string, photos, videos []string, note string) {
	if len(photos) == 0 && len(videos) == 0 && note == "" {
		return
	}
	party := domain.EvidencePartyRespondent
	if actorID == d.ComplainantID {
		party = domain.EvidencePartyComplainant
	}
	d.Evidence = append(d.Evidence, domain.Evidence{
		Party:      party,
		Photos:     photos,
		Videos:     videos,
		Note:       note,
		UploadedAt: s.clock.Now(),
	})
}

func (s *disputeService) emitDispute(ctx context.Context, d *domain.Dispute, from string, role domain.Role) {
	s.emitter.Emit(ctx, &domain.LifecycleEvent{
		EntityType: domain.EntityTypeDispute,
		EntityID:   d.ID,
		FromState:  from,
		ToState:    string(d.Status),
		ActorRole:  role,
		Payload:    map[string]string{"type": string(d.Type), "sub_order_id": d.SubOrderID},
	}, d.ComplainantID, d.RespondentID)
}
