package domain

import "time"

type TransactionType string

const (
	TransactionTypeRentalDebit       TransactionType = "RENTAL_DEBIT"
	TransactionTypeDepositHold       TransactionType = "DEPOSIT_HOLD"
	TransactionTypeExtensionDebit    TransactionType = "EXTENSION_DEBIT"
	TransactionTypeDisputeSettlement TransactionType = "DISPUTE_SETTLEMENT"
	TransactionTypePenaltyDebit      TransactionType = "PENALTY_DEBIT"
	TransactionTypeRefund            TransactionType = "REFUND"
	TransactionTypeCompensation      TransactionType = "COMPENSATION"
)

// LedgerTransaction is one atomic wallet mutation. Amount is positive for
// a credit and negative for a debit. IdempotencyKey is unique: a retried
// command with the same key is a success no-op, never a second charge.
type LedgerTransaction struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	Amount          int64           `json:"amount"`
	Type            TransactionType `json:"type"`
	IdempotencyKey  string          `json:"idempotency_key"`
	RelatedEntityID string          `json:"related_entity_id,omitempty"`
	Description     string          `json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
}
