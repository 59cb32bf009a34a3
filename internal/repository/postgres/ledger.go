package postgres

import (
	"context"
	"database/sql"
	"time"

	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/repository"
)

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

// Debit atomically checks the balance and applies the mutation inside one
// transaction with the wallet row locked. The idempotency key has a unique
// constraint: a duplicate key commits nothing and returns success.
func (r *ledgerRepository) Debit(ctx context.Context, lt *domain.LedgerTransaction) error {
	if lt.Amount > 0 {
		lt.Amount = -lt.Amount
	}
	return r.apply(ctx, lt, true)
}

func (r *ledgerRepository) Credit(ctx context.Context, lt *domain.LedgerTransaction) error {
	if lt.Amount < 0 {
		lt.Amount = -lt.Amount
	}
	return r.apply(ctx, lt, false)
}

func (r *ledgerRepository) apply(ctx context.Context, lt *domain.LedgerTransaction, checkBalance bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Dedup on the idempotency key first: a retried command is a no-op.
	var existing int32
	err = tx.QueryRowContext(ctx,
		`SELECT count(*) FROM ledger_transactions WHERE idempotency_key = $1`, lt.IdempotencyKey).
		Scan(&existing)
	if err != nil {
		return err
	}
	if existing > 0 {
		return tx.Commit()
	}

	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance FROM wallets WHERE account_id = $1 FOR UPDATE`, lt.AccountID).
		Scan(&balance)
	if err == sql.ErrNoRows {
		balance = 0
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wallets (account_id, balance) VALUES ($1, 0)`, lt.AccountID); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if checkBalance && balance+lt.Amount < 0 {
		return domain.InsufficientFundsError("account %s balance %d cannot cover %d", lt.AccountID, balance, -lt.Amount)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance + $1 WHERE account_id = $2`, lt.Amount, lt.AccountID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_transactions (id, account_id, amount, type, idempotency_key, related_entity_id, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		lt.ID, lt.AccountID, lt.Amount, lt.Type, lt.IdempotencyKey, lt.RelatedEntityID, lt.Description, time.Now()); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *ledgerRepository) GetAvailableBalance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(balance, 0) FROM wallets WHERE account_id = $1`, accountID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, accountID string, page, pageSize int32) ([]domain.LedgerTransaction, int32, error) {
	offset := (page - 1) * pageSize

	var count int32
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM ledger_transactions WHERE account_id = $1`, accountID).Scan(&count); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, amount, type, idempotency_key, COALESCE(related_entity_id, ''), COALESCE(description, ''), created_at
		 FROM ledger_transactions WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		accountID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var txs []domain.LedgerTransaction
	for rows.Next() {
		var lt domain.LedgerTransaction
		if err := rows.Scan(&lt.ID, &lt.AccountID, &lt.Amount, &lt.Type, &lt.IdempotencyKey,
			&lt.RelatedEntityID, &lt.Description, &lt.CreatedAt); err != nil {
			return nil, 0, err
		}
		txs = append(txs, lt)
	}
	return txs, count, rows.Err()
}
