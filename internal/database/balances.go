package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"referral-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetBalance sums the entries of one account that are still active at asOf.
// Amounts are stored as text, so the sum happens here rather than in SQL.
func (r *Repo) GetBalance(ctx context.Context, userId, restaurantId string, asOf time.Time) (decimal.Decimal, error) {
	entries, err := r.GetActiveEntries(ctx, userId, restaurantId, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return models.ActiveBalance(entries, asOf), nil
}

func (r *Repo) GetActiveEntries(ctx context.Context, userId, restaurantId string, asOf time.Time) ([]models.LedgerEntry, error) {
	rows, err := r.q.QueryContext(ctx, queryGetAccountEntries, userId, restaurantId)
	if err != nil {
		zap.L().Error("Failed to query account entries",
			zap.String("user_id", userId),
			zap.String("restaurant_id", restaurantId),
			zap.Error(err))
		return nil, fmt.Errorf("unable to query balance: %w", translateError(err))
	}
	defer closeRows(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			id        string
			entryType string
			amount    decimal.Decimal
			expiresAt sql.NullTime
		)
		if err := rows.Scan(&id, &entryType, &amount, &expiresAt); err != nil {
			return nil, fmt.Errorf("unable to scan balance row: %w", err)
		}
		entry := models.LedgerEntry{
			Id:              id,
			UserId:          userId,
			RestaurantId:    restaurantId,
			TransactionType: models.EntryType(entryType),
			Amount:          amount,
			ExpiresAt:       nullTime(expiresAt),
		}
		if entry.ActiveAt(asOf) {
			entries = append(entries, entry)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}

	return entries, nil
}

func (r *Repo) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := r.q.QueryContext(ctx, queryListAccounts)
	if err != nil {
		return nil, fmt.Errorf("unable to query accounts: %w", translateError(err))
	}
	defer closeRows(rows)
	return scanAccounts(rows)
}

func (r *Repo) GetAccountsByUser(ctx context.Context, userId string) ([]models.Account, error) {
	rows, err := r.q.QueryContext(ctx, queryGetAccountsByUser, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to query accounts for user: %w", translateError(err))
	}
	defer closeRows(rows)
	return scanAccounts(rows)
}

func scanAccounts(rows *sql.Rows) ([]models.Account, error) {
	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(&account.UserId, &account.RestaurantId, &account.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan account row: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}
