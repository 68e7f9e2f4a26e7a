/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"go.uber.org/zap"
)

// Compile-time check: *Repo must satisfy store.Repository.
var _ store.Repository = (*Repo)(nil)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Repo runs every repository query against either the pool or an open transaction.
type Repo struct {
	q querier
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// LockAccount makes sure the (user, restaurant) account row exists. Inside a
// BEGIN IMMEDIATE transaction the database write lock already serialises
// writers, so the insert is all the locking SQLite needs.
func (r *Repo) LockAccount(ctx context.Context, userId, restaurantId string) error {
	if _, err := r.q.ExecContext(ctx, queryLockAccount, userId, restaurantId, time.Now().UTC()); err != nil {
		return fmt.Errorf("unable to lock account: %w", translateError(err))
	}
	return nil
}

func (r *Repo) InsertLedgerEntry(ctx context.Context, entry models.LedgerEntry) error {
	_, err := r.q.ExecContext(ctx, queryInsertLedgerEntry,
		entry.Id,
		entry.UserId,
		entry.RestaurantId,
		string(entry.TransactionType),
		entry.Amount.String(),
		entry.BalanceAfter.String(),
		entry.TransactionId,
		entry.RelatedUserId,
		entry.UplineLevel,
		entry.ReversesEntryId,
		utcPtr(entry.ExpiresAt),
		entry.CreatedAt.UTC(),
		entry.Notes,
	)
	if err != nil {
		zap.L().Error("Failed to insert ledger entry",
			zap.String("user_id", entry.UserId),
			zap.String("restaurant_id", entry.RestaurantId),
			zap.String("type", string(entry.TransactionType)),
			zap.Error(err))
		return fmt.Errorf("unable to insert ledger entry: %w", translateError(err))
	}

	zap.L().Debug("Ledger entry recorded",
		zap.String("entry_id", entry.Id),
		zap.String("user_id", entry.UserId),
		zap.String("type", string(entry.TransactionType)),
		zap.String("amount", entry.Amount.String()),
		zap.String("balance_after", entry.BalanceAfter.String()))
	return nil
}

func (r *Repo) GetLedgerEntries(ctx context.Context, query store.LedgerQuery) ([]models.LedgerEntry, error) {
	rows, err := r.q.QueryContext(ctx, queryGetLedgerEntries, query.UserId, query.RestaurantId, query.Limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("unable to query ledger entries: %w", translateError(err))
	}
	defer closeRows(rows)
	return scanEntries(rows)
}

func (r *Repo) GetLedgerEntriesByTransaction(ctx context.Context, transactionId string) ([]models.LedgerEntry, error) {
	rows, err := r.q.QueryContext(ctx, queryGetLedgerEntriesByTransaction, transactionId)
	if err != nil {
		return nil, fmt.Errorf("unable to query transaction entries: %w", translateError(err))
	}
	defer closeRows(rows)
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			entry     models.LedgerEntry
			entryType string
			expiresAt sql.NullTime
		)
		err := rows.Scan(
			&entry.Id,
			&entry.UserId,
			&entry.RestaurantId,
			&entryType,
			&entry.Amount,
			&entry.BalanceAfter,
			&entry.TransactionId,
			&entry.RelatedUserId,
			&entry.UplineLevel,
			&entry.ReversesEntryId,
			&expiresAt,
			&entry.CreatedAt,
			&entry.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("unable to scan ledger entry: %w", err)
		}
		entry.TransactionType = models.EntryType(entryType)
		entry.ExpiresAt = nullTime(expiresAt)
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}
