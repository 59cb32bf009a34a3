package service

import (
	"context"
	"testing"
	"time"

	"peerrent-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestExtensionValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, so := f.activeSubOrder(ctx)

	newEnd := so.Period.EndDate.Add(48 * time.Hour)

	// Only the renter on the order may ask.
	_, err := f.extensionSvc.RequestExtension(ctx, owner1, so.ID, newEnd, 100000, domain.PaymentMethodWallet, "")
	assert.True(t, domain.IsKind(err, domain.KindAuthorization))

	// The new end date must extend the period.
	_, err = f.extensionSvc.RequestExtension(ctx, renter, so.ID, so.Period.EndDate, 100000, domain.PaymentMethodWallet, "")
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	req, err := f.extensionSvc.RequestExtension(ctx, renter, so.ID, newEnd, 100000, domain.PaymentMethodWallet, "two more days")
	require.NoError(t, err)
	assert.Equal(t, domain.ExtensionStatusPending, req.Status)
	assert.Equal(t, so.OwnerID, req.OwnerID)

	// One pending request per sub-order.
	_, err = f.extensionSvc.RequestExtension(ctx, renter, so.ID, newEnd.Add(24*time.Hour), 150000, domain.PaymentMethodWallet, "")
	assert.True(t, domain.IsKind(err, domain.KindInvalidState))
}

func TestApproveExtensionChargesAndExtends(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, so := f.activeSubOrder(ctx)
	originalEnd := so.Period.EndDate

	newEnd := originalEnd.Add(48 * time.Hour)
	req, err := f.extensionSvc.RequestExtension(ctx, renter, so.ID, newEnd, 100000, domain.PaymentMethodWallet, "")
	require.NoError(t, err)

	// Renter cannot approve their own request.
	_, err = f.extensionSvc.ApproveExtension(ctx, renter, req.ID)
	assert.True(t, domain.IsKind(err, domain.KindAuthorization))

	// Approval with an empty wallet charges nothing and extends nothing.
	_, err = f.extensionSvc.ApproveExtension(ctx, owner1, req.ID)
	assert.True(t, domain.IsKind(err, domain.KindInsufficientFunds))
	fresh, err := f.orders.GetSubOrder(ctx, so.ID)
	require.NoError(t, err)
	assert.Equal(t, originalEnd, fresh.Period.EndDate)
	pending, err := f.extensions.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtensionStatusPending, pending.Status)

	f.fund(renter.ID, 100000)
	out, err := f.extensionSvc.ApproveExtension(ctx, owner1, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtensionStatusApproved, out.Status)
	assert.Equal(t, int64(0), f.balance(renter.ID))

	fresh, err = f.orders.GetSubOrder(ctx, so.ID)
	require.NoError(t, err)
	assert.Equal(t, newEnd, fresh.Period.EndDate)
}

func TestApproveExtensionCompensatesFailedPeriodUpdate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, so := f.activeSubOrder(ctx)
	originalEnd := so.Period.EndDate

	req, err := f.extensionSvc.RequestExtension(ctx, renter, so.ID, originalEnd.Add(48*time.Hour), 100000, domain.PaymentMethodWallet, "")
	require.NoError(t, err)

	f.fund(renter.ID, 100000)
	f.orders.failNextSubUpdate = true
	_, err = f.extensionSvc.ApproveExtension(ctx, owner1, req.ID)
	require.Error(t, err)

	// All or nothing: the charge was reversed and the request stays
	// pending for a retry.
	assert.Equal(t, int64(100000), f.balance(renter.ID))
	fresh, err := f.orders.GetSubOrder(ctx, so.ID)
	require.NoError(t, err)
	assert.Equal(t, originalEnd, fresh.Period.EndDate)
	pending, err := f.extensions.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtensionStatusPending, pending.Status)

	out, err := f.extensionSvc.ApproveExtension(ctx, owner1, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtensionStatusApproved, out.Status)
	assert.Equal(t, int64(0), f.balance(renter.ID))
}

func TestRejectAndCancelExtension(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, so := f.activeSubOrder(ctx)

	req, err := f.extensionSvc.RequestExtension(ctx, renter, so.ID, so.Period.EndDate.Add(24*time.Hour), 50000, domain.PaymentMethodWallet, "")
	require.NoError(t, err)

	_, err = f.extensionSvc.RejectExtension(ctx, owner1, req.ID, "")
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	out, err := f.extensionSvc.RejectExtension(ctx, owner1, req.ID, "item is promised elsewhere")
	require.NoError(t, err)
	assert.Equal(t, domain.ExtensionStatusRejected, out.Status)
	assert.Equal(t, "item is promised elsewhere", out.RejectionReason)

	// A rejected request frees the pending slot.
	req, err = f.extensionSvc.RequestExtension(ctx, renter, so.ID, so.Period.EndDate.Add(24*time.Hour), 50000, domain.PaymentMethodWallet, "")
	require.NoError(t, err)

	_, err = f.extensionSvc.CancelExtension(ctx, owner1, req.ID)
	assert.True(t, domain.IsKind(err, domain.KindAuthorization))

	out, err = f.extensionSvc.CancelExtension(ctx, renter, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtensionStatusCancelled, out.Status)

	_, err = f.extensionSvc.ApproveExtension(ctx, owner1, req.ID)
	assert.True(t, domain.IsKind(err, domain.KindInvalidState))
}

func TestGetExtensionAuthorization(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, so := f.activeSubOrder(ctx)

	req, err := f.extensionSvc.RequestExtension(ctx, renter, so.ID, so.Period.EndDate.Add(24*time.Hour), 50000, domain.PaymentMethodWallet, "")
	require.NoError(t, err)

	_, err = f.extensionSvc.GetExtension(ctx, renter, req.ID)
	assert.NoError(t, err)
	_, err = f.extensionSvc.GetExtension(ctx, owner1, req.ID)
	assert.NoError(t, err)
	_, err = f.extensionSvc.GetExtension(ctx, admin, req.ID)
	assert.NoError(t, err)
	_, err = f.extensionSvc.GetExtension(ctx, owner2, req.ID)
	assert.True(t, domain.IsKind(err, domain.KindAuthorization))
}
