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

type disputeRepository struct {
	db *sql.DB
}

func NewDisputeRepository(db *sql.DB) repository.DisputeRepository {
	return &disputeRepository{db: db}
}

// The branchy sub-records (evidence, external payment, third-party
// resolution, reschedule, decision) are stored as JSONB columns; only the
// fields the state machine filters on are first-class columns.
func (r *disputeRepository) Create(ctx context.Context, d *domain.Dispute) error {
	evidence, err := json.Marshal(d.Evidence)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO disputes (id, sub_order_id, product_index, type,
		        complainant_id, complainant_role, respondent_id, respondent_role,
		        status, description, evidence, deposit_snapshot, product_value_snapshot,
		        repair_cost, settlement_paid, response_reason,
		        external_payment, third_party, reschedule, decision,
		        response_deadline, negotiation_deadline, resolved_at,
		        version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		         $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`,
		d.ID, d.SubOrderID, d.ProductIndex, d.Type,
		d.ComplainantID, d.ComplainantRole, d.RespondentID, d.RespondentRole,
		d.Status, d.Description, evidence, d.DepositSnapshot, d.ProductValueSnapshot,
		d.RepairCost, d.SettlementPaid, d.ResponseReason,
		mustMarshal(d.ExternalPayment), mustMarshal(d.ThirdParty), mustMarshal(d.Reschedule), mustMarshal(d.Decision),
		d.ResponseDeadline, d.NegotiationDeadline, d.ResolvedAt,
		d.Version, now, now)
	return err
}

// mustMarshal returns nil for nil pointers so the column stays NULL.
func mustMarshal[T any](v *T) []byte {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

const disputeCols = `id, sub_order_id, product_index, type,
	complainant_id, complainant_role, respondent_id, respondent_role,
	status, description, evidence, deposit_snapshot, product_value_snapshot,
	repair_cost, settlement_paid, COALESCE(response_reason, ''),
	external_payment, third_party, reschedule, decision,
	response_deadline, negotiation_deadline, resolved_at,
	version, created_at, updated_at`

func scanDispute(row interface{ Scan(...any) error }) (*domain.Dispute, error) {
	d := &domain.Dispute{}
	var evidence, external, thirdParty, reschedule, decision []byte
	err := row.Scan(&d.ID, &d.SubOrderID, &d.ProductIndex, &d.Type,
		&d.ComplainantID, &d.ComplainantRole, &d.RespondentID, &d.RespondentRole,
		&d.Status, &d.Description, &evidence, &d.DepositSnapshot, &d.ProductValueSnapshot,
		&d.RepairCost, &d.SettlementPaid, &d.ResponseReason,
		&external, &thirdParty, &reschedule, &decision,
		&d.ResponseDeadline, &d.NegotiationDeadline, &d.ResolvedAt,
		&d.Version, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError("dispute not found")
	}
	if err != nil {
		return nil, err
	}
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &d.Evidence); err != nil {
			return nil, fmt.Errorf("decode dispute evidence: %w", err)
		}
	}
	if err := unmarshalInto(external, &d.ExternalPayment); err != nil {
		return nil, err
	}
	if err := unmarshalInto(thirdParty, &d.ThirdParty); err != nil {
		return nil, err
	}
	if err := unmarshalInto(reschedule, &d.Reschedule); err != nil {
		return nil, err
	}
	if err := unmarshalInto(decision, &d.Decision); err != nil {
		return nil, err
	}
	return d, nil
}

func unmarshalInto[T any](raw []byte, dst **T) error {
	if len(raw) == 0 {
		return nil
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode dispute sub-record: %w", err)
	}
	*dst = v
	return nil
}

func (r *disputeRepository) GetByID(ctx context.Context, id string) (*domain.Dispute, error) {
	return scanDispute(r.db.QueryRowContext(ctx,
		`SELECT `+disputeCols+` FROM disputes WHERE id = $1`, id))
}

func (r *disputeRepository) Update(ctx context.Context, d *domain.Dispute) error {
	evidence, err := json.Marshal(d.Evidence)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE disputes
		 SET status=$1, evidence=$2, repair_cost=$3, settlement_paid=$4, response_reason=$5,
		     external_payment=$6, third_party=$7, reschedule=$8, decision=$9,
		     response_deadline=$10, negotiation_deadline=$11, resolved_at=$12,
		     version=version+1, updated_at=$13
		 WHERE id=$14 AND version=$15`,
		d.Status, evidence, d.RepairCost, d.SettlementPaid, d.ResponseReason,
		mustMarshal(d.ExternalPayment), mustMarshal(d.ThirdParty), mustMarshal(d.Reschedule), mustMarshal(d.Decision),
		d.ResponseDeadline, d.NegotiationDeadline, d.ResolvedAt,
		time.Now(), d.ID, d.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ConcurrentModificationError("dispute %s was modified concurrently", d.ID)
	}
	d.Version++
	return nil
}

// terminalStatuses are the states that release the single-active-dispute
// invariant for a line item.
var terminalStatuses = []any{domain.DisputeStatusResolved, domain.DisputeStatusLawEnforcement}

func (r *disputeRepository) GetOpenByLineItem(ctx context.Context, subOrderID string, productIndex int32) (*domain.Dispute, error) {
	d, err := scanDispute(r.db.QueryRowContext(ctx,
		`SELECT `+disputeCols+` FROM disputes
		 WHERE sub_order_id = $1 AND product_index = $2 AND status NOT IN ($3, $4)
		 ORDER BY created_at DESC LIMIT 1`,
		append([]any{subOrderID, productIndex}, terminalStatuses...)...))
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

func (r *disputeRepository) HasOpenBySubOrder(ctx context.Context, subOrderID string) (bool, error) {
	var count int32
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM disputes WHERE sub_order_id = $1 AND status NOT IN ($2, $3)`,
		append([]any{subOrderID}, terminalStatuses...)...).Scan(&count)
	return count > 0, err
}

func (r *disputeRepository) ListBySubOrder(ctx context.Context, subOrderID string) ([]domain.Dispute, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+disputeCols+` FROM disputes WHERE sub_order_id = $1 ORDER BY created_at DESC`, subOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDisputes(rows)
}

func (r *disputeRepository) ListExpiredResponse(ctx context.Context, now time.Time) ([]domain.Dispute, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+disputeCols+` FROM disputes
		 WHERE type = $1 AND status = $2 AND response_deadline < $3`,
		domain.DisputeTypeRenterNoReturn, domain.DisputeStatusOpen, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDisputes(rows)
}

func (r *disputeRepository) ListExpiredNegotiation(ctx context.Context, now time.Time) ([]domain.Dispute, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+disputeCols+` FROM disputes
		 WHERE type = $1 AND status = $2 AND negotiation_deadline < $3`,
		domain.DisputeTypeRenterNoReturn, domain.DisputeStatusNegotiation, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDisputes(rows)
}

func collectDisputes(rows *sql.Rows) ([]domain.Dispute, error) {
	var out []domain.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
