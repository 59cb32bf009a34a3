package domain

import "time"

type ContractStatus string

const (
	ContractStatusAwaitingSignatures ContractStatus = "AWAITING_SIGNATURES"
	ContractStatusFullyExecuted      ContractStatus = "FULLY_EXECUTED"
)

// SignatureSlot holds one party's signature state. Owner and renter may
// sign in either order; the slots are independent booleans, not a sequence.
type SignatureSlot struct {
	Signed    bool       `json:"signed"`
	Signature string     `json:"signature,omitempty"` // opaque blob, base64
	SignedAt  *time.Time `json:"signed_at,omitempty"`
}

type Contract struct {
	ID         string        `json:"id"`
	SubOrderID string        `json:"sub_order_id"`
	OwnerID    string        `json:"owner_id"`
	RenterID   string        `json:"renter_id"`
	Owner      SignatureSlot `json:"owner_signature"`
	Renter     SignatureSlot `json:"renter_signature"`
	// Platform slot is auto-signed at contract creation.
	Platform SignatureSlot  `json:"platform_signature"`
	Status   ContractStatus `json:"status"`
	// OtpSendCount is capped over the contract's lifetime, not per window.
	OtpSendCount int32     `json:"otp_send_count"`
	Version      int32     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BothPartiesSigned is the fully-executed condition: both human slots
// signed, regardless of order.
func (c *Contract) BothPartiesSigned() bool {
	return c.Owner.Signed && c.Renter.Signed
}

// SlotFor returns the signature slot belonging to the actor, or nil when
// the actor is not a party to the contract.
func (c *Contract) SlotFor(actorID string) *SignatureSlot {
	switch actorID {
	case c.OwnerID:
		return &c.Owner
	case c.RenterID:
		return &c.Renter
	}
	return nil
}

// OtpChallenge tracks one actor's OTP session for one contract. A verified
// challenge makes the actor sign-eligible for that contract only.
type OtpChallenge struct {
	ContractID string     `json:"contract_id"`
	ActorID    string     `json:"actor_id"`
	CodeHash   string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Verified   bool       `json:"verified"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
