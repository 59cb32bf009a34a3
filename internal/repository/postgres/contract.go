package postgres

import (
	"context"
	"database/sql"
	"time"

	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/repository"
)

type contractRepository struct {
	db *sql.DB
}

func NewContractRepository(db *sql.DB) repository.ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Create(ctx context.Context, c *domain.Contract) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contracts (id, sub_order_id, owner_id, renter_id,
		        owner_signed, owner_signature, owner_signed_at,
		        renter_signed, renter_signature, renter_signed_at,
		        platform_signed, platform_signature, platform_signed_at,
		        status, otp_send_count, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		c.ID, c.SubOrderID, c.OwnerID, c.RenterID,
		c.Owner.Signed, c.Owner.Signature, c.Owner.SignedAt,
		c.Renter.Signed, c.Renter.Signature, c.Renter.SignedAt,
		c.Platform.Signed, c.Platform.Signature, c.Platform.SignedAt,
		c.Status, c.OtpSendCount, c.Version, now, now)
	return err
}

const contractCols = `id, sub_order_id, owner_id, renter_id,
	owner_signed, COALESCE(owner_signature, ''), owner_signed_at,
	renter_signed, COALESCE(renter_signature, ''), renter_signed_at,
	platform_signed, COALESCE(platform_signature, ''), platform_signed_at,
	status, otp_send_count, version, created_at, updated_at`

func scanContract(row interface{ Scan(...any) error }) (*domain.Contract, error) {
	c := &domain.Contract{}
	err := row.Scan(&c.ID, &c.SubOrderID, &c.OwnerID, &c.RenterID,
		&c.Owner.Signed, &c.Owner.Signature, &c.Owner.SignedAt,
		&c.Renter.Signed, &c.Renter.Signature, &c.Renter.SignedAt,
		&c.Platform.Signed, &c.Platform.Signature, &c.Platform.SignedAt,
		&c.Status, &c.OtpSendCount, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError("contract not found")
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *contractRepository) GetByID(ctx context.Context, id string) (*domain.Contract, error) {
	return scanContract(r.db.QueryRowContext(ctx,
		`SELECT `+contractCols+` FROM contracts WHERE id = $1`, id))
}

func (r *contractRepository) GetBySubOrder(ctx context.Context, subOrderID string) (*domain.Contract, error) {
	return scanContract(r.db.QueryRowContext(ctx,
		`SELECT `+contractCols+` FROM contracts WHERE sub_order_id = $1`, subOrderID))
}

func (r *contractRepository) Update(ctx context.Context, c *domain.Contract) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contracts
		 SET owner_signed=$1, owner_signature=$2, owner_signed_at=$3,
		     renter_signed=$4, renter_signature=$5, renter_signed_at=$6,
		     status=$7, otp_send_count=$8, version=version+1, updated_at=$9
		 WHERE id=$10 AND version=$11`,
		c.Owner.Signed, c.Owner.Signature, c.Owner.SignedAt,
		c.Renter.Signed, c.Renter.Signature, c.Renter.SignedAt,
		c.Status, c.OtpSendCount, time.Now(), c.ID, c.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ConcurrentModificationError("contract %s was modified concurrently", c.ID)
	}
	c.Version++
	return nil
}

func (r *contractRepository) UpsertChallenge(ctx context.Context, ch *domain.OtpChallenge) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otp_challenges (contract_id, actor_id, code_hash, expires_at, verified, consumed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (contract_id, actor_id)
		 DO UPDATE SET code_hash=$3, expires_at=$4, verified=$5, consumed_at=$6, created_at=$7`,
		ch.ContractID, ch.ActorID, ch.CodeHash, ch.ExpiresAt, ch.Verified, ch.ConsumedAt, time.Now())
	return err
}

func (r *contractRepository) GetChallenge(ctx context.Context, contractID, actorID string) (*domain.OtpChallenge, error) {
	ch := &domain.OtpChallenge{}
	err := r.db.QueryRowContext(ctx,
		`SELECT contract_id, actor_id, code_hash, expires_at, verified, consumed_at, created_at
		 FROM otp_challenges WHERE contract_id = $1 AND actor_id = $2`,
		contractID, actorID).
		Scan(&ch.ContractID, &ch.ActorID, &ch.CodeHash, &ch.ExpiresAt, &ch.Verified, &ch.ConsumedAt, &ch.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (r *contractRepository) DeleteExpiredChallenges(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_challenges WHERE expires_at < $1 AND NOT verified`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
