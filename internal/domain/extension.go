package domain

import "time"

type ExtensionStatus string

const (
	ExtensionStatusPending   ExtensionStatus = "PENDING"
	ExtensionStatusApproved  ExtensionStatus = "APPROVED"
	ExtensionStatusRejected  ExtensionStatus = "REJECTED"
	ExtensionStatusCancelled ExtensionStatus = "CANCELLED"
)

// ExtensionRequest asks the owner for a later end date on an active
// sub-order. Approval charges the fee and mutates the rental period
// atomically; an approved extension never rolls back.
type ExtensionRequest struct {
	ID              string          `json:"id"`
	SubOrderID      string          `json:"sub_order_id"`
	RenterID        string          `json:"renter_id"`
	OwnerID         string          `json:"owner_id"`
	NewEndDate      time.Time       `json:"new_end_date"`
	Fee             int64           `json:"fee"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Notes           string          `json:"notes,omitempty"`
	Status          ExtensionStatus `json:"status"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	Version         int32           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
