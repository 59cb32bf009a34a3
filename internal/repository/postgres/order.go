package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/repository"
)

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateMaster(ctx context.Context, m *domain.MasterOrder) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO master_orders (id, renter_id, start_date, end_date, rental_total, deposit_total, shipping_total,
		        status, payment_status, payment_method, payment_txn_ref, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		m.ID, m.RenterID, m.Period.StartDate, m.Period.EndDate, m.RentalTotal, m.DepositTotal, m.ShippingTotal,
		m.Status, m.PaymentStatus, m.PaymentMethod, m.PaymentTxnRef, m.Version, now, now)
	if err != nil {
		return err
	}

	for i := range m.SubOrders {
		so := &m.SubOrders[i]
		items, err := json.Marshal(so.Items)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sub_orders (id, master_order_id, owner_id, start_date, end_date, status, rejection_reason,
			        rental_amount, deposit_amount, shipping_fee, items, confirmation_deadline, version, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			so.ID, so.MasterOrderID, so.OwnerID, so.Period.StartDate, so.Period.EndDate, so.Status, so.RejectionReason,
			so.RentalAmount, so.DepositAmount, so.ShippingFee, items, so.ConfirmationDeadline, so.Version, now, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

const masterCols = `id, renter_id, start_date, end_date, rental_total, deposit_total, shipping_total,
	status, payment_status, COALESCE(payment_method, ''), COALESCE(payment_txn_ref, ''),
	COALESCE(cancel_reason, ''), version, created_at, updated_at`

func scanMaster(row interface{ Scan(...any) error }) (*domain.MasterOrder, error) {
	m := &domain.MasterOrder{}
	err := row.Scan(&m.ID, &m.RenterID, &m.Period.StartDate, &m.Period.EndDate,
		&m.RentalTotal, &m.DepositTotal, &m.ShippingTotal,
		&m.Status, &m.PaymentStatus, &m.PaymentMethod, &m.PaymentTxnRef,
		&m.CancelReason, &m.Version, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError("master order not found")
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *orderRepository) GetMaster(ctx context.Context, id string) (*domain.MasterOrder, error) {
	m, err := scanMaster(r.db.QueryRowContext(ctx,
		`SELECT `+masterCols+` FROM master_orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadSubOrders(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *orderRepository) GetMasterBySubOrder(ctx context.Context, subOrderID string) (*domain.MasterOrder, error) {
	m, err := scanMaster(r.db.QueryRowContext(ctx,
		`SELECT `+masterCols+` FROM master_orders
		 WHERE id = (SELECT master_order_id FROM sub_orders WHERE id = $1)`, subOrderID))
	if err != nil {
		return nil, err
	}
	if err := r.loadSubOrders(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

const subOrderCols = `id, master_order_id, owner_id, start_date, end_date, status, COALESCE(rejection_reason, ''),
	rental_amount, deposit_amount, shipping_fee, items, confirmation_deadline, version, created_at, updated_at`

func scanSubOrder(row interface{ Scan(...any) error }) (*domain.SubOrder, error) {
	so := &domain.SubOrder{}
	var items []byte
	err := row.Scan(&so.ID, &so.MasterOrderID, &so.OwnerID, &so.Period.StartDate, &so.Period.EndDate,
		&so.Status, &so.RejectionReason, &so.RentalAmount, &so.DepositAmount, &so.ShippingFee,
		&items, &so.ConfirmationDeadline, &so.Version, &so.CreatedAt, &so.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError("sub-order not found")
	}
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &so.Items); err != nil {
			return nil, fmt.Errorf("decode sub-order items: %w", err)
		}
	}
	return so, nil
}

func (r *orderRepository) loadSubOrders(ctx context.Context, m *domain.MasterOrder) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subOrderCols+` FROM sub_orders WHERE master_order_id = $1 ORDER BY created_at, id`, m.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	m.SubOrders = nil
	for rows.Next() {
		so, err := scanSubOrder(rows)
		if err != nil {
			return err
		}
		m.SubOrders = append(m.SubOrders, *so)
	}
	return rows.Err()
}

func (r *orderRepository) UpdateMaster(ctx context.Context, m *domain.MasterOrder) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE master_orders
		 SET status=$1, payment_status=$2, payment_method=$3, payment_txn_ref=$4, cancel_reason=$5,
		     end_date=$6, version=version+1, updated_at=$7
		 WHERE id=$8 AND version=$9`,
		m.Status, m.PaymentStatus, m.PaymentMethod, m.PaymentTxnRef, m.CancelReason,
		m.Period.EndDate, time.Now(), m.ID, m.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ConcurrentModificationError("master order %s was modified concurrently", m.ID)
	}
	m.Version++
	return nil
}

func (r *orderRepository) GetSubOrder(ctx context.Context, id string) (*domain.SubOrder, error) {
	return scanSubOrder(r.db.QueryRowContext(ctx,
		`SELECT `+subOrderCols+` FROM sub_orders WHERE id = $1`, id))
}

func (r *orderRepository) UpdateSubOrder(ctx context.Context, so *domain.SubOrder) error {
	items, err := json.Marshal(so.Items)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE sub_orders
		 SET status=$1, rejection_reason=$2, end_date=$3, items=$4, confirmation_deadline=$5,
		     version=version+1, updated_at=$6
		 WHERE id=$7 AND version=$8`,
		so.Status, so.RejectionReason, so.Period.EndDate, items, so.ConfirmationDeadline,
		time.Now(), so.ID, so.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ConcurrentModificationError("sub-order %s was modified concurrently", so.ID)
	}
	so.Version++
	return nil
}

func (r *orderRepository) ListByRenter(ctx context.Context, renterID string, status string, page, pageSize int32) ([]domain.MasterOrder, int32, error) {
	offset := (page - 1) * pageSize
	query := `SELECT ` + masterCols + ` FROM master_orders WHERE renter_id = $1`
	args := []any{renterID}
	argIdx := 2
	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	var count int32
	countQuery := "SELECT count(*) FROM (" + query + ") AS sub"
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []domain.MasterOrder
	for rows.Next() {
		m, err := scanMaster(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range orders {
		if err := r.loadSubOrders(ctx, &orders[i]); err != nil {
			return nil, 0, err
		}
	}
	return orders, count, nil
}

func (r *orderRepository) ListSubOrdersByOwner(ctx context.Context, ownerID string, status string, page, pageSize int32) ([]domain.SubOrder, int32, error) {
	offset := (page - 1) * pageSize
	query := `SELECT ` + subOrderCols + ` FROM sub_orders WHERE owner_id = $1`
	args := []any{ownerID}
	argIdx := 2
	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	var count int32
	countQuery := "SELECT count(*) FROM (" + query + ") AS sub"
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var subs []domain.SubOrder
	for rows.Next() {
		so, err := scanSubOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, *so)
	}
	return subs, count, rows.Err()
}
