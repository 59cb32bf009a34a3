package domain

import "time"

type OrderStatus string

const (
	OrderStatusDraft               OrderStatus = "DRAFT"
	OrderStatusPendingPayment      OrderStatus = "PENDING_PAYMENT"
	OrderStatusPaymentCompleted    OrderStatus = "PAYMENT_COMPLETED"
	OrderStatusPendingConfirmation OrderStatus = "PENDING_CONFIRMATION"
	OrderStatusReadyForContract    OrderStatus = "READY_FOR_CONTRACT"
	OrderStatusContractSigned      OrderStatus = "CONTRACT_SIGNED"
	OrderStatusActive              OrderStatus = "ACTIVE"
	OrderStatusCompleted           OrderStatus = "COMPLETED"
	OrderStatusCancelled           OrderStatus = "CANCELLED"
)

// orderRank orders the forward-only master order lifecycle. CANCELLED is
// reachable from any pre-ACTIVE state and is not ranked.
var orderRank = map[OrderStatus]int{
	OrderStatusDraft:               0,
	OrderStatusPendingPayment:      1,
	OrderStatusPaymentCompleted:    2,
	OrderStatusPendingConfirmation: 3,
	OrderStatusReadyForContract:    4,
	OrderStatusContractSigned:      5,
	OrderStatusActive:              6,
	OrderStatusCompleted:           7,
}

// CanAdvanceTo reports whether moving from s to next respects the
// forward-only invariant.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	if next == OrderStatusCancelled {
		return orderRank[s] < orderRank[OrderStatusActive]
	}
	from, ok := orderRank[s]
	if !ok {
		return false
	}
	to, ok := orderRank[next]
	if !ok {
		return false
	}
	return to > from
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	PaymentMethodWallet  PaymentMethod = "WALLET"
	PaymentMethodGateway PaymentMethod = "GATEWAY"
)

// SubOrderStatus is the per-owner slice lifecycle. AwaitingPayment covers
// everything before the master order is paid; the owner-review value is a
// distinct enum from the order-level PENDING_CONFIRMATION on purpose.
type SubOrderStatus string

const (
	SubOrderStatusAwaitingPayment SubOrderStatus = "AWAITING_PAYMENT"
	SubOrderStatusOwnerReview     SubOrderStatus = "PENDING_OWNER_REVIEW"
	SubOrderStatusOwnerConfirmed  SubOrderStatus = "OWNER_CONFIRMED"
	SubOrderStatusOwnerRejected   SubOrderStatus = "OWNER_REJECTED"
	SubOrderStatusContractSigned  SubOrderStatus = "CONTRACT_SIGNED"
	SubOrderStatusActive          SubOrderStatus = "ACTIVE"
	SubOrderStatusCompleted       SubOrderStatus = "COMPLETED"
	SubOrderStatusCancelled       SubOrderStatus = "CANCELLED"
)

type ProductStatus string

const (
	ProductStatusRenting       ProductStatus = "RENTING"
	ProductStatusReturnPending ProductStatus = "RETURN_PENDING"
	ProductStatusReturned      ProductStatus = "RETURNED"
	ProductStatusNotReturned   ProductStatus = "NOT_RETURNED"
)

type ConfirmDecision string

const (
	ConfirmDecisionConfirmed ConfirmDecision = "CONFIRMED"
	ConfirmDecisionRejected  ConfirmDecision = "REJECTED"
)

type RentalPeriod struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Days is inclusive of both the start and the end date.
func (p RentalPeriod) Days() int64 {
	d := int64(p.EndDate.Sub(p.StartDate).Hours()/24) + 1
	if d < 1 {
		return 0
	}
	return d
}

type ProductLineItem struct {
	ID            string        `json:"id"`
	SubOrderID    string        `json:"sub_order_id"`
	ProductID     string        `json:"product_id"`
	ProductName   string        `json:"product_name"`
	Quantity      int64         `json:"quantity"`
	DailyRate     int64         `json:"daily_rate"`      // VND per unit per day
	DepositRate   int64         `json:"deposit_rate"`    // VND per unit
	ProductValue  int64         `json:"product_value"`   // replacement value per unit, VND
	RentalAmount  int64         `json:"rental_amount"`   // computed at draft time
	DepositAmount int64         `json:"deposit_amount"`  // computed at draft time
	Status        ProductStatus `json:"product_status"`
}

type SubOrder struct {
	ID              string            `json:"id"`
	MasterOrderID   string            `json:"master_order_id"`
	OwnerID         string            `json:"owner_id"`
	Period          RentalPeriod      `json:"period"`
	Status          SubOrderStatus    `json:"status"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	RentalAmount    int64             `json:"rental_amount"`
	DepositAmount   int64             `json:"deposit_amount"`
	ShippingFee     int64             `json:"shipping_fee"`
	Items           []ProductLineItem `json:"items"`
	// ConfirmationDeadline is the absolute instant by which the owner must
	// confirm or reject. Exposed so a disconnected client can compute
	// remaining time without drift.
	ConfirmationDeadline *time.Time `json:"confirmation_deadline,omitempty"`
	Version              int32      `json:"version"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// ConfirmationTerminal reports whether the owner has finished reviewing.
func (so *SubOrder) ConfirmationTerminal() bool {
	switch so.Status {
	case SubOrderStatusOwnerReview, SubOrderStatusAwaitingPayment:
		return false
	}
	return true
}

// AllItemsReturned is true when every line item reached a terminal return
// state (RETURNED or NOT_RETURNED).
func (so *SubOrder) AllItemsReturned() bool {
	for _, it := range so.Items {
		if it.Status != ProductStatusReturned && it.Status != ProductStatusNotReturned {
			return false
		}
	}
	return len(so.Items) > 0
}

type MasterOrder struct {
	ID            string        `json:"id"`
	RenterID      string        `json:"renter_id"`
	Period        RentalPeriod  `json:"period"`
	RentalTotal   int64         `json:"rental_total"`
	DepositTotal  int64         `json:"deposit_total"`
	ShippingTotal int64         `json:"shipping_total"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	// PaymentTxnRef is the external transaction id used as the payment
	// idempotency key. A retry with the same ref must not double-charge.
	PaymentTxnRef string     `json:"payment_txn_ref,omitempty"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	SubOrders     []SubOrder `json:"sub_orders"`
	Version       int32      `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// GrandTotal is the amount a payment must cover: rental + deposit + shipping.
func (m *MasterOrder) GrandTotal() int64 {
	return m.RentalTotal + m.DepositTotal + m.ShippingTotal
}

// SubOrderByID finds a sub-order within the aggregate.
func (m *MasterOrder) SubOrderByID(id string) *SubOrder {
	for i := range m.SubOrders {
		if m.SubOrders[i].ID == id {
			return &m.SubOrders[i]
		}
	}
	return nil
}

// CartItem is one entry of the renter's cart used to build a draft order.
type CartItem struct {
	OwnerID      string `json:"owner_id"`
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	Quantity     int64  `json:"quantity"`
	DailyRate    int64  `json:"daily_rate"`
	DepositRate  int64  `json:"deposit_rate"`
	ProductValue int64  `json:"product_value"`
	ShippingFee  int64  `json:"shipping_fee"`
}

type Cart struct {
	RenterID string       `json:"renter_id"`
	Period   RentalPeriod `json:"period"`
	Items    []CartItem   `json:"items"`
}
