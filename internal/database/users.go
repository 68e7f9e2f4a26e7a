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
	"errors"
	"fmt"

	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"go.uber.org/zap"
)

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user      models.User
		role      string
		deletedAt sql.NullTime
	)
	err := row.Scan(&user.Id, &user.Email, &user.FullName, &role, &user.ReferralCode,
		&user.IsDeleted, &deletedAt, &user.DeletionReason, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	user.DeletedAt = nullTime(deletedAt)
	return &user, nil
}

func (r *Repo) InsertUser(ctx context.Context, user models.User) error {
	zap.L().Info("Creating user", zap.String("id", user.Id), zap.String("role", string(user.Role)))

	_, err := r.q.ExecContext(ctx, queryInsertUser,
		user.Id, user.Email, user.FullName, string(user.Role), user.ReferralCode,
		user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if err != nil {
		zap.L().Error("Failed to insert user", zap.String("id", user.Id), zap.Error(err))
		return fmt.Errorf("unable to insert user: %w", translateError(err))
	}
	return nil
}

func (r *Repo) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying users")

	rows, err := r.q.QueryContext(ctx, queryGetUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", translateError(err))
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Debug("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

// GetUserById returns the user whether or not it has been anonymized.
func (r *Repo) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	user, err := scanUser(r.q.QueryRowContext(ctx, queryGetUserById, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
		}
		zap.L().Error("Failed to query user by ID", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by ID: %w", translateError(err))
	}
	return user, nil
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(r.q.QueryRowContext(ctx, queryGetUserByEmail, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, email)
		}
		zap.L().Error("Failed to query user by email", zap.Error(err))
		return nil, fmt.Errorf("unable to query user by email: %w", translateError(err))
	}
	return user, nil
}

// GetActiveUserByReferralCode never resolves an anonymized user.
func (r *Repo) GetActiveUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	user, err := scanUser(r.q.QueryRowContext(ctx, queryGetActiveUserByReferralCode, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrInvalidReferralCode
		}
		return nil, fmt.Errorf("unable to query user by referral code: %w", translateError(err))
	}
	return user, nil
}

func (r *Repo) AnonymizeUser(ctx context.Context, params store.AnonymizeParams) error {
	at := params.At.UTC()
	result, err := r.q.ExecContext(ctx, queryAnonymizeUser,
		params.Email, params.FullName, at, params.Reason, at, params.UserId)
	if err != nil {
		return fmt.Errorf("unable to anonymize user: %w", translateError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrAlreadyAnonymized
	}
	return nil
}

func (r *Repo) InsertAuditEntry(ctx context.Context, entry models.AuditEntry) error {
	_, err := r.q.ExecContext(ctx, queryInsertAuditEntry,
		entry.Id, entry.ActorId, entry.Action, entry.TargetUserId, entry.Details, entry.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("unable to insert audit entry: %w", translateError(err))
	}
	return nil
}
