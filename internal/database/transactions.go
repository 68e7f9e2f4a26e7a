package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"go.uber.org/zap"
)

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		tx       models.Transaction
		status   string
		voidedAt sql.NullTime
	)
	err := row.Scan(
		&tx.Id,
		&tx.CustomerId,
		&tx.BranchId,
		&tx.RestaurantId,
		&tx.StaffId,
		&tx.BillAmount,
		&tx.GuaranteedDiscountAmount,
		&tx.VirtualCurrencyRedeemed,
		&tx.IsFirstTransaction,
		&status,
		&tx.CreatedAt,
		&voidedAt,
		&tx.VoidReason,
	)
	if err != nil {
		return nil, err
	}
	tx.Status = models.TransactionStatus(status)
	tx.VoidedAt = nullTime(voidedAt)
	return &tx, nil
}

func (r *Repo) InsertTransaction(ctx context.Context, tx models.Transaction) error {
	_, err := r.q.ExecContext(ctx, queryInsertTransaction,
		tx.Id,
		tx.CustomerId,
		tx.BranchId,
		tx.RestaurantId,
		tx.StaffId,
		tx.BillAmount.String(),
		tx.GuaranteedDiscountAmount.String(),
		tx.VirtualCurrencyRedeemed.String(),
		tx.IsFirstTransaction,
		string(tx.Status),
		tx.CreatedAt.UTC(),
		utcPtr(tx.VoidedAt),
		tx.VoidReason,
	)
	if err != nil {
		zap.L().Error("Failed to insert transaction", zap.String("transaction_id", tx.Id), zap.Error(err))
		return fmt.Errorf("unable to insert transaction: %w", translateError(err))
	}
	return nil
}

func (r *Repo) GetTransactionById(ctx context.Context, transactionId string) (*models.Transaction, error) {
	tx, err := scanTransaction(r.q.QueryRowContext(ctx, queryGetTransactionById, transactionId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrTransactionNotFound, transactionId)
		}
		return nil, fmt.Errorf("unable to query transaction: %w", translateError(err))
	}
	return tx, nil
}

// LockTransaction reads the transaction inside the caller's write transaction.
// SQLite holds the database write lock from BEGIN IMMEDIATE, so no row lock is taken.
func (r *Repo) LockTransaction(ctx context.Context, transactionId string) (*models.Transaction, error) {
	return r.GetTransactionById(ctx, transactionId)
}

func (r *Repo) CountCompletedTransactions(ctx context.Context, customerId, restaurantId string) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, queryCountCompletedTransactions, customerId, restaurantId).Scan(&count); err != nil {
		return 0, fmt.Errorf("unable to count transactions: %w", translateError(err))
	}
	return count, nil
}

// MarkTransactionVoided only moves a completed transaction; a second call
// reports store.ErrAlreadyVoided.
func (r *Repo) MarkTransactionVoided(ctx context.Context, transactionId, reason string, at time.Time) error {
	result, err := r.q.ExecContext(ctx, queryMarkTransactionVoided, at.UTC(), reason, transactionId)
	if err != nil {
		return fmt.Errorf("unable to void transaction: %w", translateError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrAlreadyVoided
	}
	return nil
}

func (r *Repo) ListVoidedTransactionIds(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, queryListVoidedTransactionIds)
	if err != nil {
		return nil, fmt.Errorf("unable to query voided transactions: %w", translateError(err))
	}
	defer closeRows(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("unable to scan transaction id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voided transactions: %w", err)
	}
	return ids, nil
}
