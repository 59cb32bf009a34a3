package service

import (
	"context"
	"time"

	"peerrent-backend/internal/domain"
)

// OrderService is the master state machine for a rental order: one master
// order per payment, one sub-order per owner.
type OrderService interface {
	CreateDraft(ctx context.Context, cart domain.Cart) (*domain.MasterOrder, error)
	ConfirmOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.MasterOrder, error)
	// ProcessPayment is idempotent under retry: txnRef is the dedup key and
	// a second call with the same ref never double-charges.
	ProcessPayment(ctx context.Context, actor domain.Actor, orderID string, method domain.PaymentMethod, amount int64, txnRef string) (*domain.MasterOrder, error)
	OwnerConfirm(ctx context.Context, actor domain.Actor, subOrderID string, decision domain.ConfirmDecision, reason string) (*domain.SubOrder, error)
	// AdvanceOnContractComplete is invoked by the contract signer when both
	// signatures exist.
	AdvanceOnContractComplete(ctx context.Context, subOrderID string) error
	CancelOrder(ctx context.Context, actor domain.Actor, orderID string, reason string) (*domain.MasterOrder, error)
	MarkLineItemReturn(ctx context.Context, actor domain.Actor, subOrderID string, productIndex int32, status domain.ProductStatus) (*domain.SubOrder, error)
	GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.MasterOrder, error)
	ListOrders(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.MasterOrder, int32, error)
	ListLendings(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.SubOrder, int32, error)
}

// ContractService manages per-contract dual-signature state behind an
// OTP gate.
type ContractService interface {
	RequestOtp(ctx context.Context, actor domain.Actor, contractID string) (time.Time, error)
	VerifyOtp(ctx context.Context, actor domain.Actor, contractID, code string) error
	Sign(ctx context.Context, actor domain.Actor, contractID, signatureBlob string) (*domain.Contract, error)
	GetContract(ctx context.Context, actor domain.Actor, contractID string) (*domain.Contract, error)
	GetBySubOrder(ctx context.Context, actor domain.Actor, subOrderID string) (*domain.Contract, error)
}

type CreateDisputeInput struct {
	SubOrderID   string             `json:"sub_order_id"`
	ProductIndex int32              `json:"product_index"`
	Type         domain.DisputeType `json:"type"`
	Description  string             `json:"description"`
	Photos       []string           `json:"photos,omitempty"`
	Videos       []string           `json:"videos,omitempty"`
}

type ShipperDamageInput struct {
	Solution           domain.ShipperDamageSolution `json:"solution"`
	Reasoning          string                       `json:"reasoning"`
	ShipperPhotos      []string                     `json:"shipper_photos,omitempty"`
	ShipperVideos      []string                     `json:"shipper_videos,omitempty"`
	InsuranceClaim     string                       `json:"insurance_claim,omitempty"`
	RefundAmount       int64                        `json:"refund_amount,omitempty"`
	CompensationAmount int64                        `json:"compensation_amount,omitempty"`
}

// DisputeService coordinates complainant, respondent and admin through the
// dispute state machine and its escalation branches.
type DisputeService interface {
	CreateDispute(ctx context.Context, actor domain.Actor, in CreateDisputeInput) (*domain.Dispute, error)
	Respond(ctx context.Context, actor domain.Actor, disputeID string, decision domain.RespondDecision, reason string, photos, videos []string) (*domain.Dispute, error)

	// RENTER_NO_RETURN deadline-driven sub-flow.
	ProposeReschedule(ctx context.Context, actor domain.Actor, disputeID string, newReturnDate time.Time, note string, photos []string) (*domain.Dispute, error)
	AcceptReschedule(ctx context.Context, actor domain.Actor, disputeID string) (*domain.Dispute, error)
	RejectReschedule(ctx context.Context, actor domain.Actor, disputeID string, reason string) (*domain.Dispute, error)

	// Escalation branches.
	StartNegotiation(ctx context.Context, actor domain.Actor, disputeID string) (*domain.Dispute, error)
	AgreeNegotiation(ctx context.Context, actor domain.Actor, disputeID string, agreedAmount int64) (*domain.Dispute, error)
	EscalateThirdParty(ctx context.Context, actor domain.Actor, disputeID string) (*domain.Dispute, error)
	SubmitThirdPartyEvidence(ctx context.Context, actor domain.Actor, disputeID, officialDecision string, photos, videos []string) (*domain.Dispute, error)

	// External payment reconciliation.
	InitiateExternalPayment(ctx context.Context, actor domain.Actor, disputeID string, repairCost int64) (*domain.Dispute, error)
	ProposeExternalPaymentReceipt(ctx context.Context, actor domain.Actor, disputeID string, images []string) (*domain.Dispute, error)
	ConfirmExternalPayment(ctx context.Context, actor domain.Actor, disputeID string, confirmed bool, note string) (*domain.Dispute, error)
	AdminReviewExternalPayment(ctx context.Context, actor domain.Actor, disputeID string, approved bool, reasoning string) (*domain.Dispute, error)

	// Admin adjudication and settlement.
	AdminFinalDecision(ctx context.Context, actor domain.Actor, disputeID string, outcome domain.DecisionOutcome, compensationAmount int64, reasoning string) (*domain.Dispute, error)
	AdminResolveShipperDamage(ctx context.Context, actor domain.Actor, disputeID string, in ShipperDamageInput) (*domain.Dispute, error)
	AdminProcessPayment(ctx context.Context, actor domain.Actor, disputeID string) (*domain.Dispute, error)

	// EscalateExpired runs the wall-clock sweep for RENTER_NO_RETURN
	// deadlines; GetDispute applies the same check lazily on read.
	EscalateExpired(ctx context.Context) (int, error)
	GetDispute(ctx context.Context, actor domain.Actor, disputeID string) (*domain.Dispute, error)
	ListBySubOrder(ctx context.Context, actor domain.Actor, subOrderID string) ([]domain.Dispute, error)
}

// ExtensionService is the secondary workflow nested under an active
// sub-order.
type ExtensionService interface {
	RequestExtension(ctx context.Context, actor domain.Actor, subOrderID string, newEndDate time.Time, fee int64, method domain.PaymentMethod, notes string) (*domain.ExtensionRequest, error)
	ApproveExtension(ctx context.Context, actor domain.Actor, requestID string) (*domain.ExtensionRequest, error)
	RejectExtension(ctx context.Context, actor domain.Actor, requestID string, reason string) (*domain.ExtensionRequest, error)
	CancelExtension(ctx context.Context, actor domain.Actor, requestID string) (*domain.ExtensionRequest, error)
	GetExtension(ctx context.Context, actor domain.Actor, requestID string) (*domain.ExtensionRequest, error)
}

// LedgerService is the wallet adapter surface exposed to clients.
type LedgerService interface {
	GetAvailableBalance(ctx context.Context, actor domain.Actor, accountID string) (int64, error)
	ListTransactions(ctx context.Context, actor domain.Actor, accountID string, page, pageSize int32) ([]domain.LedgerTransaction, int32, error)
}

// EventEmitter fans a committed state transition out to interested
// parties. Channel failures are logged, never surfaced to the caller.
type EventEmitter interface {
	Emit(ctx context.Context, ev *domain.LifecycleEvent, recipientUserIDs ...string)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) error
}

// EmailService is the outbound email channel behind the emitter.
type EmailService interface {
	SendOtpCode(ctx context.Context, email, name, code string, expiresAt time.Time) error
	SendLifecycleNotification(ctx context.Context, email, name, subject, body string) error
}

// GatewayPayment is the gateway's view of a transaction.
type GatewayPayment struct {
	Status string
	Amount int64
}

// PaymentGateway is the external payment boundary for non-wallet methods.
type PaymentGateway interface {
	CreateSession(ctx context.Context, amount int64, metadata map[string]string) (string, error)
	Verify(ctx context.Context, transactionRef string) (*GatewayPayment, error)
}
