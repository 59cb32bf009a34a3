package service

import (
	"context"
	"testing"

	"peerrent-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDraftPartitionsCartByOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.orderSvc.CreateDraft(ctx, twoOwnerCart())
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusDraft, order.Status)
	assert.Equal(t, domain.PaymentStatusUnpaid, order.PaymentStatus)
	require.Len(t, order.SubOrders, 2)
	assert.Equal(t, owner1.ID, order.SubOrders[0].OwnerID)
	assert.Equal(t, owner2.ID, order.SubOrders[1].OwnerID)

	// 5 inclusive days: drill 50000*1*5, camera 80000*2*5.
	assert.Equal(t, int64(250000), order.SubOrders[0].RentalAmount)
	assert.Equal(t, int64(500000), order.SubOrders[0].DepositAmount)
	assert.Equal(t, int64(800000), order.SubOrders[1].RentalAmount)
	assert.Equal(t, int64(1600000), order.SubOrders[1].DepositAmount)
	assert.Equal(t, int64(1050000), order.RentalTotal)
	assert.Equal(t, int64(2100000), order.DepositTotal)
	assert.Equal(t, int64(70000), order.ShippingTotal)
	assert.Equal(t, order.RentalTotal+order.DepositTotal+order.ShippingTotal, order.GrandTotal())

	for _, so := range order.SubOrders {
		assert.Equal(t, domain.SubOrderStatusAwaitingPayment, so.Status)
		for _, item := range so.Items {
			assert.Equal(t, domain.ProductStatusRenting, item.Status)
		}
	}
}

func TestCreateDraftRejectsBadInput(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	empty := twoOwnerCart()
	empty.Items = nil
	_, err := f.orderSvc.CreateDraft(ctx, empty)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	inverted := twoOwnerCart()
	inverted.Period.StartDate, inverted.Period.EndDate = inverted.Period.EndDate, inverted.Period.StartDate
	_, err = f.orderSvc.CreateDraft(ctx, inverted)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	badQty := twoOwnerCart()
	badQty.Items[0].Quantity = 0
	_, err = f.orderSvc.CreateDraft(ctx, badQty)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestProcessPaymentWalletIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.orderSvc.CreateDraft(ctx, twoOwnerCart())
	require.NoError(t, err)
	_, err = f.orderSvc.ConfirmOrder(ctx, renter, order.ID)
	require.NoError(t, err)

	total := order.GrandTotal()
	f.fund(renter.ID, total+100000)

	paid, err := f.orderSvc.ProcessPayment(ctx, renter, order.ID, domain.PaymentMethodWallet, total, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPendingConfirmation, paid.Status)
	assert.Equal(t, domain.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, int64(100000), f.balance(renter.ID))
	for _, so := range paid.SubOrders {
		assert.Equal(t, domain.SubOrderStatusOwnerReview, so.Status)
		require.NotNil(t, so.ConfirmationDeadline)
	}

	// Same transaction ref retried: success no-op, no second debit.
	again, err := f.orderSvc.ProcessPayment(ctx, renter, order.ID, domain.PaymentMethodWallet, total, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, again.PaymentStatus)
	assert.Equal(t, int64(100000), f.balance(renter.ID))

	// A different ref against a paid order is rejected, still no debit.
	_, err = f.orderSvc.ProcessPayment(ctx, renter, order.ID, domain.PaymentMethodWallet, total, "txn-2")
	assert.True(t, domain.IsKind(err, domain.KindInvalidState))
	assert.Equal(t, int64(100000), f.balance(renter.ID))
}

func TestProcessPaymentRejectsWrongAmountAndEmptyWallet(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.orderSvc.CreateDraft(ctx, twoOwnerCart())
	require.NoError(t, err)
	_, err = f.orderSvc.ConfirmOrder(ctx, renter, order.ID)
	require.NoError(t, err)

	_, err = f.orderSvc.ProcessPayment(ctx, renter, order.ID, domain.PaymentMethodWallet, order.GrandTotal()-1, "txn-1")
	assert.True(t, domain.IsKind(err, domain.KindPayment))

	_, err = f.orderSvc.ProcessPayment(ctx, renter, order.ID, domain.PaymentMethodWallet, order.GrandTotal(), "txn-1")
	assert.True(t, domain.IsKind(err, domain.KindInsufficientFunds))

	m, err := f.orders.GetMaster(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPendingPayment, m.Status)
	assert.Equal(t, domain.PaymentStatusUnpaid, m.PaymentStatus)
}

func TestProcessPaymentGatewayVerifiesSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.orderSvc.CreateDraft(ctx, twoOwnerCart())
	require.NoError(t, err)
	_, err = f.orderSvc.ConfirmOrder(ctx, renter, order.ID)
	require.NoError(t, err)

	total := order.GrandTotal()
	url, err := f.gateway.CreateSession(ctx, total, nil)
	require.NoError(t, err)
	ref := url[len("http://gateway.test/checkout/"):]

	// Pending session is rejected.
	_, err = f.orderSvc.ProcessPayment(ctx, renter, order.ID, domain.PaymentMethodGateway, total, ref)
	assert.True(t, domain.IsKind(err, domain.KindPayment))

	f.gateway.MarkPaid(ref)
	paid, err := f.orderSvc.ProcessPayment(ctx, renter, order.ID, domain.PaymentMethodGateway, total, ref)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, domain.PaymentMethodGateway, paid.PaymentMethod)
}

func TestOwnerConfirmMixedDecisions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.orderSvc.CreateDraft(ctx, twoOwnerCart())
	require.NoError(t, err)
	_, err = f.orderSvc.ConfirmOrder(ctx, renter, order.ID)
	require.NoError(t, err)
	f.fund(renter.ID, order.GrandTotal())
	_, err = f.orderSvc.ProcessPayment(ctx, renter, order.ID, domain.PaymentMethodWallet, order.GrandTotal(), "txn-1")
	require.NoError(t, err)

	sub1, sub2 := order.SubOrders[0].ID, order.SubOrders[1].ID

	// Only the owning owner may decide, and rejection requires a reason.
	_, err = f.orderSvc.OwnerConfirm(ctx, owner2, sub1, domain.ConfirmDecisionConfirmed, "")
	assert.True(t, domain.IsKind(err, domain.KindAuthorization))
	_, err = f.orderSvc.OwnerConfirm(ctx, owner2, sub2, domain.ConfirmDecisionRejected, "")
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	so, err := f.orderSvc.OwnerConfirm(ctx, owner1, sub1, domain.ConfirmDecisionConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, domain.SubOrderStatusOwnerConfirmed, so.Status)

	// First decision alone does not move the parent.
	m, _ := f.orders.GetMaster(ctx, order.ID)
	assert.Equal(t, domain.OrderStatusPendingConfirmation, m.Status)

	so, err = f.orderSvc.OwnerConfirm(ctx, owner2, sub2, domain.ConfirmDecisionRejected, "camera already booked")
	require.NoError(t, err)
	assert.Equal(t, domain.SubOrderStatusOwnerRejected, so.Status)
	assert.Equal(t, "camera already booked", so.RejectionReason)

	// All decided: contract only for the confirmed slice, parent advances.
	m, _ = f.orders.GetMaster(ctx, order.ID)
	assert.Equal(t, domain.OrderStatusReadyForContract, m.Status)

	c, err := f.contracts.GetBySubOrder(ctx, sub1)
	require.NoError(t, err)
	assert.True(t, c.Platform.Signed)
	assert.Equal(t, domain.ContractStatusAwaitingSignatures, c.Status)
	_, err = f.contracts.GetBySubOrder(ctx, sub2)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestAllOwnersRejectedCancelsAndRefunds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.orderSvc.CreateDraft(ctx, twoOwnerCart())
	require.NoError(t, err)
	_, err = f.orderSvc.ConfirmOrder(ctx, renter, order.ID)
	require.NoError(t, err)
	f.fund(renter.ID, order.GrandTotal())
	_, err = f.orderSvc.ProcessPayment(ctx, renter, order.ID, domain.PaymentMethodWallet, order.GrandTotal(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.balance(renter.ID))

	_, err = f.orderSvc.OwnerConfirm(ctx, owner1, order.SubOrders[0].ID, domain.ConfirmDecisionRejected, "unavailable")
	require.NoError(t, err)
	_, err = f.orderSvc.OwnerConfirm(ctx, owner2, order.SubOrders[1].ID, domain.ConfirmDecisionRejected, "unavailable")
	require.NoError(t, err)

	m, _ := f.orders.GetMaster(ctx, order.ID)
	assert.Equal(t, domain.OrderStatusCancelled, m.Status)
	assert.Equal(t, domain.PaymentStatusRefunded, m.PaymentStatus)
	assert.Equal(t, order.GrandTotal(), f.balance(renter.ID))
}

func TestContractCompletionActivatesOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	m, so := f.activeSubOrder(ctx)
	assert.Equal(t, domain.OrderStatusActive, m.Status)
	assert.Equal(t, domain.SubOrderStatusActive, so.Status)
	for _, sub := range m.SubOrders {
		assert.Equal(t, domain.SubOrderStatusActive, sub.Status)
	}

	c, err := f.contracts.GetBySubOrder(ctx, so.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStatusFullyExecuted, c.Status)
}

func TestCancelOrderBeforeActivation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.orderSvc.CreateDraft(ctx, twoOwnerCart())
	require.NoError(t, err)
	_, err = f.orderSvc.ConfirmOrder(ctx, renter, order.ID)
	require.NoError(t, err)
	f.fund(renter.ID, order.GrandTotal())
	_, err = f.orderSvc.ProcessPayment(ctx, renter, order.ID, domain.PaymentMethodWallet, order.GrandTotal(), "txn-1")
	require.NoError(t, err)

	_, err = f.orderSvc.CancelOrder(ctx, owner1, order.ID, "changed my mind")
	assert.True(t, domain.IsKind(err, domain.KindAuthorization))

	m, err := f.orderSvc.CancelOrder(ctx, renter, order.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, m.Status)
	assert.Equal(t, domain.PaymentStatusRefunded, m.PaymentStatus)
	assert.Equal(t, order.GrandTotal(), f.balance(renter.ID))
	for _, so := range m.SubOrders {
		assert.Equal(t, domain.SubOrderStatusCancelled, so.Status)
	}
}

func TestCancelOrderRejectedOnceActive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	m, _ := f.activeSubOrder(ctx)
	_, err := f.orderSvc.CancelOrder(ctx, renter, m.ID, "too late")
	assert.True(t, domain.IsKind(err, domain.KindInvalidState))
}

func TestReturnFlowCompletesOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	m, _ := f.activeSubOrder(ctx)

	for i := range m.SubOrders {
		so := &m.SubOrders[i]
		ownerActor := domain.Actor{ID: so.OwnerID, Role: domain.RoleOwner}
		for idx := range so.Items {
			// Renter flags the handover, owner acknowledges receipt.
			updated, err := f.orderSvc.MarkLineItemReturn(ctx, renter, so.ID, int32(idx), domain.ProductStatusReturnPending)
			require.NoError(t, err)
			assert.Equal(t, domain.ProductStatusReturnPending, updated.Items[idx].Status)

			// The owner cannot fabricate the renter's half of the handshake.
			_, err = f.orderSvc.MarkLineItemReturn(ctx, ownerActor, so.ID, int32(idx), domain.ProductStatusReturnPending)
			assert.True(t, domain.IsKind(err, domain.KindAuthorization))

			updated, err = f.orderSvc.MarkLineItemReturn(ctx, ownerActor, so.ID, int32(idx), domain.ProductStatusReturned)
			require.NoError(t, err)
			assert.Equal(t, domain.ProductStatusReturned, updated.Items[idx].Status)
		}
	}

	final, err := f.orders.GetMaster(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, final.Status)
	for _, so := range final.SubOrders {
		assert.Equal(t, domain.SubOrderStatusCompleted, so.Status)
	}
}

func TestReturnBlockedByOpenDispute(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, so := f.activeSubOrder(ctx)

	_, err := f.disputeSvc.CreateDispute(ctx, renter, CreateDisputeInput{
		SubOrderID:   so.ID,
		ProductIndex: 0,
		Type:         domain.DisputeTypeProductDamaged,
		Description:  "scratched lens",
	})
	require.NoError(t, err)

	_, err = f.orderSvc.MarkLineItemReturn(ctx, renter, so.ID, 0, domain.ProductStatusReturnPending)
	require.NoError(t, err)
	ownerActor := domain.Actor{ID: so.OwnerID, Role: domain.RoleOwner}
	updated, err := f.orderSvc.MarkLineItemReturn(ctx, ownerActor, so.ID, 0, domain.ProductStatusReturned)
	require.NoError(t, err)

	// Every item returned but the open dispute pins the sub-order active.
	assert.Equal(t, domain.SubOrderStatusActive, updated.Status)
}

func TestGetOrderAuthorization(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.orderSvc.CreateDraft(ctx, twoOwnerCart())
	require.NoError(t, err)

	_, err = f.orderSvc.GetOrder(ctx, renter, order.ID)
	assert.NoError(t, err)
	_, err = f.orderSvc.GetOrder(ctx, owner1, order.ID)
	assert.NoError(t, err)
	_, err = f.orderSvc.GetOrder(ctx, admin, order.ID)
	assert.NoError(t, err)
	_, err = f.orderSvc.GetOrder(ctx, domain.Actor{ID: "stranger", Role: domain.RoleRenter}, order.ID)
	assert.True(t, domain.IsKind(err, domain.KindAuthorization))
}
