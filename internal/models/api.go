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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RestaurantBalance represents a user's VC balance at one restaurant
type RestaurantBalance struct {
	RestaurantId string          `json:"restaurant_id"`
	Balance      decimal.Decimal `json:"balance"`
}

// LedgerRecord represents a ledger entry in the user's history
type LedgerRecord struct {
	Id            string          `json:"id"`
	Type          EntryType       `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	TransactionId string          `json:"transaction_id,omitempty"`
	RelatedUserId string          `json:"related_user_id,omitempty"`
	UplineLevel   int             `json:"upline_level,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Notes         string          `json:"notes,omitempty"`
}

func NewLedgerRecord(e LedgerEntry) LedgerRecord {
	return LedgerRecord{
		Id:            e.Id,
		Type:          e.TransactionType,
		Amount:        e.Amount,
		BalanceAfter:  e.BalanceAfter,
		TransactionId: e.TransactionId,
		RelatedUserId: e.RelatedUserId,
		UplineLevel:   e.UplineLevel,
		ExpiresAt:     e.ExpiresAt,
		CreatedAt:     e.CreatedAt,
		Notes:         e.Notes,
	}
}
