package postgres

import (
	"context"
	"testing"

	"peerrent-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepository_Debit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewLedgerRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		lt := &domain.LedgerTransaction{
			ID:             "tx-1",
			AccountID:      "renter-1",
			Amount:         50000,
			Type:           domain.TransactionTypeRentalDebit,
			IdempotencyKey: "order-pay-1",
			Description:    "Payment for order o-1",
		}

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT count\(\*\) FROM ledger_transactions WHERE idempotency_key`).
			WithArgs(lt.IdempotencyKey).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT balance FROM wallets WHERE account_id = \$1 FOR UPDATE`).
			WithArgs(lt.AccountID).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(80000))
		mock.ExpectExec(`UPDATE wallets SET balance = balance \+ \$1`).
			WithArgs(int64(-50000), lt.AccountID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO ledger_transactions`).
			WithArgs(lt.ID, lt.AccountID, int64(-50000), lt.Type, lt.IdempotencyKey,
				lt.RelatedEntityID, lt.Description, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Debit(ctx, lt)
		assert.NoError(t, err)
		assert.Equal(t, int64(-50000), lt.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicateKeyIsNoOp", func(t *testing.T) {
		lt := &domain.LedgerTransaction{
			ID:             "tx-2",
			AccountID:      "renter-1",
			Amount:         50000,
			Type:           domain.TransactionTypeRentalDebit,
			IdempotencyKey: "order-pay-1",
		}

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT count\(\*\) FROM ledger_transactions WHERE idempotency_key`).
			WithArgs(lt.IdempotencyKey).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectCommit()

		err := repo.Debit(ctx, lt)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		lt := &domain.LedgerTransaction{
			ID:             "tx-3",
			AccountID:      "renter-1",
			Amount:         500000,
			Type:           domain.TransactionTypeDisputeSettlement,
			IdempotencyKey: "dispute-settle-debit-d1",
		}

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT count\(\*\) FROM ledger_transactions WHERE idempotency_key`).
			WithArgs(lt.IdempotencyKey).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT balance FROM wallets WHERE account_id = \$1 FOR UPDATE`).
			WithArgs(lt.AccountID).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(100000))
		mock.ExpectRollback()

		err := repo.Debit(ctx, lt)
		assert.True(t, domain.IsKind(err, domain.KindInsufficientFunds))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_CreditCreatesWallet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewLedgerRepository(db)
	ctx := context.Background()

	lt := &domain.LedgerTransaction{
		ID:             "tx-4",
		AccountID:      "owner-9",
		Amount:         150000,
		Type:           domain.TransactionTypeCompensation,
		IdempotencyKey: "shipper-compensation-d2",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM ledger_transactions WHERE idempotency_key`).
		WithArgs(lt.IdempotencyKey).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT balance FROM wallets WHERE account_id = \$1 FOR UPDATE`).
		WithArgs(lt.AccountID).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}))
	mock.ExpectExec(`INSERT INTO wallets`).
		WithArgs(lt.AccountID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE wallets SET balance = balance \+ \$1`).
		WithArgs(int64(150000), lt.AccountID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ledger_transactions`).
		WithArgs(lt.ID, lt.AccountID, int64(150000), lt.Type, lt.IdempotencyKey,
			lt.RelatedEntityID, lt.Description, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Credit(ctx, lt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_GetAvailableBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewLedgerRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COALESCE\(balance, 0\) FROM wallets`).
			WithArgs("renter-1").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(250000))

		balance, err := repo.GetAvailableBalance(ctx, "renter-1")
		assert.NoError(t, err)
		assert.Equal(t, int64(250000), balance)
	})

	t.Run("MissingWalletIsZero", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COALESCE\(balance, 0\) FROM wallets`).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))

		balance, err := repo.GetAvailableBalance(ctx, "ghost")
		assert.NoError(t, err)
		assert.Zero(t, balance)
	})
}
