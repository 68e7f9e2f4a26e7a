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

package api

import (
	"context"
	"fmt"

	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetUserBalance returns the current VC balance for a user at one restaurant
func (s *LedgerService) GetUserBalance(ctx context.Context, userId, restaurantId string) (decimal.Decimal, error) {
	if userId == "" || restaurantId == "" {
		return decimal.Zero, fmt.Errorf("%w: user_id and restaurant_id are required", store.ErrInvalidInput)
	}

	balance, err := s.engine.GetBalance(ctx, userId, restaurantId)
	if err != nil {
		zap.L().Error("Failed to get user balance",
			zap.String("user_id", userId),
			zap.String("restaurant_id", restaurantId),
			zap.Error(err))
		return decimal.Zero, err
	}

	zap.L().Debug("Retrieved user balance",
		zap.String("user_id", userId),
		zap.String("restaurant_id", restaurantId),
		zap.String("balance", balance.String()))

	return balance, nil
}

// GetUserBalances returns every non-zero VC balance a user holds
func (s *LedgerService) GetUserBalances(ctx context.Context, userId string) ([]models.RestaurantBalance, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user_id is required", store.ErrInvalidInput)
	}

	balances, err := s.engine.GetAllBalances(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get user balances",
			zap.String("user_id", userId),
			zap.Error(err))
		return nil, err
	}

	result := make([]models.RestaurantBalance, 0, len(balances))
	for _, b := range balances {
		result = append(result, models.RestaurantBalance{
			RestaurantId: b.RestaurantId,
			Balance:      b.Balance,
		})
	}

	zap.L().Debug("Retrieved user balances",
		zap.String("user_id", userId),
		zap.Int("restaurant_count", len(result)))

	return result, nil
}

// GetLedgerHistory returns ledger entries for a user at one restaurant, newest first
func (s *LedgerService) GetLedgerHistory(ctx context.Context, userId, restaurantId string, limit, offset int) ([]models.LedgerRecord, error) {
	if userId == "" || restaurantId == "" {
		return nil, fmt.Errorf("%w: user_id and restaurant_id are required", store.ErrInvalidInput)
	}
	entries, err := s.engine.ListLedgerEntries(ctx, userId, restaurantId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get ledger history",
			zap.String("user_id", userId),
			zap.String("restaurant_id", restaurantId),
			zap.Error(err))
		return nil, err
	}

	records := make([]models.LedgerRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, models.NewLedgerRecord(e))
	}

	zap.L().Debug("Retrieved ledger history",
		zap.String("user_id", userId),
		zap.String("restaurant_id", restaurantId),
		zap.Int("count", len(records)))

	return records, nil
}
