package domain

import "time"

type DisputeType string

const (
	DisputeTypeProductDamaged DisputeType = "PRODUCT_DAMAGED"
	DisputeTypeShipperDamage  DisputeType = "SHIPPER_DAMAGE"
	DisputeTypeRenterNoReturn DisputeType = "RENTER_NO_RETURN"
	DisputeTypeLateReturn     DisputeType = "LATE_RETURN"
	DisputeTypeOther          DisputeType = "OTHER"
)

type DisputeStatus string

const (
	DisputeStatusOpen              DisputeStatus = "OPEN"
	DisputeStatusResponded         DisputeStatus = "RESPONDED"
	DisputeStatusAccepted          DisputeStatus = "ACCEPTED"
	DisputeStatusEscalated         DisputeStatus = "ESCALATED"
	DisputeStatusNegotiation       DisputeStatus = "NEGOTIATION"
	DisputeStatusNegotiationAgreed DisputeStatus = "NEGOTIATION_AGREED"
	DisputeStatusThirdParty        DisputeStatus = "THIRD_PARTY_ESCALATED"
	DisputeStatusPendingReceipt    DisputeStatus = "PENDING_RECEIPT"
	// PendingConfirmation here is the external-payment owner-confirmation
	// step, unrelated to the order-level status of the same name.
	DisputeStatusPendingConfirmation DisputeStatus = "PENDING_EXTERNAL_CONFIRMATION"
	DisputeStatusPendingAdminReview  DisputeStatus = "PENDING_ADMIN_REVIEW"
	DisputeStatusResolved            DisputeStatus = "RESOLVED"
	DisputeStatusLawEnforcement      DisputeStatus = "LAW_ENFORCEMENT_ESCALATED"
)

// Terminal statuses accept no further party-initiated transitions.
func (s DisputeStatus) Terminal() bool {
	return s == DisputeStatusResolved || s == DisputeStatusLawEnforcement
}

// Open statuses block a second dispute on the same (subOrder, productIndex).
func (s DisputeStatus) Open() bool {
	return !s.Terminal()
}

type RespondDecision string

const (
	RespondDecisionAccepted RespondDecision = "ACCEPTED"
	RespondDecisionRejected RespondDecision = "REJECTED"
)

type DecisionOutcome string

const (
	DecisionComplainantRight DecisionOutcome = "COMPLAINANT_RIGHT"
	DecisionRespondentRight  DecisionOutcome = "RESPONDENT_RIGHT"
)

type ShipperDamageSolution string

const (
	ShipperSolutionReplacement  ShipperDamageSolution = "REPLACEMENT"
	ShipperSolutionRefundCancel ShipperDamageSolution = "REFUND_CANCEL"
)

type EvidenceParty string

const (
	EvidencePartyComplainant EvidenceParty = "COMPLAINANT"
	EvidencePartyRespondent  EvidenceParty = "RESPONDENT"
)

// Evidence is one attributable bundle of photos, videos and a note.
type Evidence struct {
	Party      EvidenceParty `json:"party"`
	Photos     []string      `json:"photos,omitempty"`
	Videos     []string      `json:"videos,omitempty"`
	Note       string        `json:"note,omitempty"`
	UploadedAt time.Time     `json:"uploaded_at"`
}

// OwnerConfirmation records the owner's verdict on an external payment
// receipt.
type OwnerConfirmation struct {
	Confirmed   bool       `json:"confirmed"`
	Note        string     `json:"note,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// ExternalPayment tracks a renter-to-owner top-up settled outside the
// platform wallet: receipt evidence plus owner confirmation, both
// deadline-boxed.
type ExternalPayment struct {
	DepositUsed          int64              `json:"deposit_used"`
	Amount               int64              `json:"amount"` // owed out-of-band, VND
	ReceiptImages        []string           `json:"receipt_images,omitempty"`
	ReceiptUploadedAt    *time.Time         `json:"receipt_uploaded_at,omitempty"`
	OwnerConfirmation    *OwnerConfirmation `json:"owner_confirmation,omitempty"`
	ReceiptUploadDeadline *time.Time        `json:"receipt_upload_deadline,omitempty"`
	ConfirmationDeadline  *time.Time        `json:"confirmation_deadline,omitempty"`
	// RejectCount bounds the reject/re-upload loop before the dispute is
	// forced into admin review.
	RejectCount int32 `json:"reject_count"`
}

// ThirdPartyResolution is the one-shot, irrevocable submission of an
// outside authority's official decision.
type ThirdPartyResolution struct {
	OfficialDecision string    `json:"official_decision"`
	Photos           []string  `json:"photos,omitempty"`
	Videos           []string  `json:"videos,omitempty"`
	SubmittedBy      string    `json:"submitted_by"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// Reschedule is the renter's proposed new return date in a
// RENTER_NO_RETURN dispute.
type Reschedule struct {
	ProposedReturnDate time.Time `json:"proposed_return_date"`
	Note               string    `json:"note,omitempty"`
	ProposedAt         time.Time `json:"proposed_at"`
}

// DisputeDecision is the final adjudication, by admin or ratified
// negotiation outcome.
type DisputeDecision struct {
	Outcome            DecisionOutcome `json:"outcome"`
	CompensationAmount int64           `json:"compensation_amount"`
	Reasoning          string          `json:"reasoning"`
	DecidedBy          string          `json:"decided_by"`
	DecidedAt          time.Time       `json:"decided_at"`
}

type Dispute struct {
	ID           string      `json:"id"`
	SubOrderID   string      `json:"sub_order_id"`
	ProductIndex int32       `json:"product_index"`
	Type         DisputeType `json:"type"`

	ComplainantID   string `json:"complainant_id"`
	ComplainantRole Role   `json:"complainant_role"`
	RespondentID    string `json:"respondent_id"`
	RespondentRole  Role   `json:"respondent_role"`

	Status      DisputeStatus `json:"status"`
	Description string        `json:"description"`
	Evidence    []Evidence    `json:"evidence,omitempty"`

	// Snapshots taken at creation time. All percentage penalties are
	// computed against these, never against live amounts.
	DepositSnapshot      int64 `json:"deposit_snapshot"`
	ProductValueSnapshot int64 `json:"product_value_snapshot"`

	// RepairCost is the monetary obligation a resolution settles.
	RepairCost     int64 `json:"repair_cost,omitempty"`
	SettlementPaid bool  `json:"settlement_paid"`

	ResponseReason string `json:"response_reason,omitempty"`

	ExternalPayment *ExternalPayment      `json:"external_payment,omitempty"`
	ThirdParty      *ThirdPartyResolution `json:"third_party_resolution,omitempty"`
	Reschedule      *Reschedule           `json:"reschedule,omitempty"`
	Decision        *DisputeDecision      `json:"decision,omitempty"`

	ResponseDeadline    *time.Time `json:"response_deadline,omitempty"`
	NegotiationDeadline *time.Time `json:"negotiation_deadline,omitempty"`
	ResolvedAt          *time.Time `json:"resolved_at,omitempty"`

	Version   int32     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PartyIDs returns complainant and respondent ids for notification fan-out.
func (d *Dispute) PartyIDs() []string {
	return []string{d.ComplainantID, d.RespondentID}
}

// IsParty reports whether the actor is complainant or respondent.
func (d *Dispute) IsParty(actorID string) bool {
	return actorID == d.ComplainantID || actorID == d.RespondentID
}
