package postgres

import (
	"context"
	"database/sql"
	"time"

	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/repository"
)

type extensionRepository struct {
	db *sql.DB
}

func NewExtensionRepository(db *sql.DB) repository.ExtensionRepository {
	return &extensionRepository{db: db}
}

func (r *extensionRepository) Create(ctx context.Context, req *domain.ExtensionRequest) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO extension_requests (id, sub_order_id, renter_id, owner_id, new_end_date, fee,
		        payment_method, notes, status, rejection_reason, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		req.ID, req.SubOrderID, req.RenterID, req.OwnerID, req.NewEndDate, req.Fee,
		req.PaymentMethod, req.Notes, req.Status, req.RejectionReason, req.Version, now, now)
	return err
}

const extensionCols = `id, sub_order_id, renter_id, owner_id, new_end_date, fee,
	payment_method, COALESCE(notes, ''), status, COALESCE(rejection_reason, ''), version, created_at, updated_at`

func scanExtension(row interface{ Scan(...any) error }) (*domain.ExtensionRequest, error) {
	req := &domain.ExtensionRequest{}
	err := row.Scan(&req.ID, &req.SubOrderID, &req.RenterID, &req.OwnerID, &req.NewEndDate, &req.Fee,
		&req.PaymentMethod, &req.Notes, &req.Status, &req.RejectionReason, &req.Version, &req.CreatedAt, &req.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError("extension request not found")
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *extensionRepository) GetByID(ctx context.Context, id string) (*domain.ExtensionRequest, error) {
	return scanExtension(r.db.QueryRowContext(ctx,
		`SELECT `+extensionCols+` FROM extension_requests WHERE id = $1`, id))
}

func (r *extensionRepository) Update(ctx context.Context, req *domain.ExtensionRequest) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE extension_requests
		 SET status=$1, rejection_reason=$2, version=version+1, updated_at=$3
		 WHERE id=$4 AND version=$5`,
		req.Status, req.RejectionReason, time.Now(), req.ID, req.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ConcurrentModificationError("extension request %s was modified concurrently", req.ID)
	}
	req.Version++
	return nil
}

func (r *extensionRepository) GetPendingBySubOrder(ctx context.Context, subOrderID string) (*domain.ExtensionRequest, error) {
	req, err := scanExtension(r.db.QueryRowContext(ctx,
		`SELECT `+extensionCols+` FROM extension_requests WHERE sub_order_id = $1 AND status = $2`,
		subOrderID, domain.ExtensionStatusPending))
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return req, nil
}
