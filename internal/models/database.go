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

type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
)

// User is an account that can refer, be referred, and hold VC at restaurants.
// Deleted users keep their row so referral edges and ledger history stay intact.
type User struct {
	Id             string     `db:"id"`
	Email          string     `db:"email"`
	FullName       string     `db:"full_name"`
	Role           Role       `db:"role"`
	ReferralCode   string     `db:"referral_code"`
	IsDeleted      bool       `db:"is_deleted"`
	DeletedAt      *time.Time `db:"deleted_at"`
	DeletionReason string     `db:"deletion_reason"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// Restaurant owns its reward configuration. Percentages are stored as
// percent values (1.5 means 1.5%).
type Restaurant struct {
	Id                        string          `db:"id"`
	Name                      string          `db:"name"`
	GuaranteedDiscountPercent decimal.Decimal `db:"guaranteed_discount_percent"`
	UplineRewardPercent       decimal.Decimal `db:"upline_reward_percent"`
	MaxRedemptionPercent      decimal.Decimal `db:"max_redemption_percent"`
	VirtualCurrencyExpiryDays int             `db:"virtual_currency_expiry_days"`
	CreatedAt                 time.Time       `db:"created_at"`
}

// Branch is a physical location of a restaurant where checkouts happen.
type Branch struct {
	Id           string    `db:"id"`
	RestaurantId string    `db:"restaurant_id"`
	Name         string    `db:"name"`
	CreatedAt    time.Time `db:"created_at"`
}

// ReferralEdge links a downline to one of its ancestors at a restaurant.
// Level 1 is the direct referrer; levels 2 and 3 are derived by chaining.
type ReferralEdge struct {
	Id           string    `db:"id"`
	DownlineId   string    `db:"downline_id"`
	UplineId     string    `db:"upline_id"`
	UplineLevel  int       `db:"upline_level"`
	RestaurantId string    `db:"restaurant_id"`
	CreatedAt    time.Time `db:"created_at"`
}

const MaxUplineLevel = 3

type EntryType string

const (
	EntryEarn    EntryType = "earn"
	EntryRedeem  EntryType = "redeem"
	EntryExpire  EntryType = "expire"
	EntryReverse EntryType = "reverse"
)

// LedgerEntry is an append-only balance movement for a (user, restaurant) pair.
// Amount is signed. UplineLevel is zero when the entry is not a referral reward.
type LedgerEntry struct {
	Id              string          `db:"id"`
	UserId          string          `db:"user_id"`
	RestaurantId    string          `db:"restaurant_id"`
	TransactionType EntryType       `db:"transaction_type"`
	Amount          decimal.Decimal `db:"amount"`
	BalanceAfter    decimal.Decimal `db:"balance_after"`
	TransactionId   string          `db:"transaction_id"`
	RelatedUserId   string          `db:"related_user_id"`
	UplineLevel     int             `db:"upline_level"`
	ReversesEntryId string          `db:"reverses_entry_id"`
	ExpiresAt       *time.Time      `db:"expires_at"`
	CreatedAt       time.Time       `db:"created_at"`
	Notes           string          `db:"notes"`
}

// ActiveAt reports whether the entry counts towards a balance evaluated at t.
func (e LedgerEntry) ActiveAt(t time.Time) bool {
	if e.TransactionType == EntryExpire {
		return false
	}
	return e.ExpiresAt == nil || e.ExpiresAt.After(t)
}

type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "completed"
	StatusVoided    TransactionStatus = "voided"
)

// Transaction is a settled checkout. Financial fields never change after
// settlement; only the status moves from completed to voided.
type Transaction struct {
	Id                       string            `db:"id"`
	CustomerId               string            `db:"customer_id"`
	BranchId                 string            `db:"branch_id"`
	RestaurantId             string            `db:"restaurant_id"`
	StaffId                  string            `db:"staff_id"`
	BillAmount               decimal.Decimal   `db:"bill_amount"`
	GuaranteedDiscountAmount decimal.Decimal   `db:"guaranteed_discount_amount"`
	VirtualCurrencyRedeemed  decimal.Decimal   `db:"virtual_currency_redeemed"`
	IsFirstTransaction       bool              `db:"is_first_transaction"`
	Status                   TransactionStatus `db:"status"`
	CreatedAt                time.Time         `db:"created_at"`
	VoidedAt                 *time.Time        `db:"voided_at"`
	VoidReason               string            `db:"void_reason"`
}

// Account is a (user, restaurant) pair that has held VC. The row doubles as
// the lock target for settlement and void.
type Account struct {
	UserId       string    `db:"user_id"`
	RestaurantId string    `db:"restaurant_id"`
	CreatedAt    time.Time `db:"created_at"`
}

// AccountBalance is the derived VC balance of one (user, restaurant) pair.
type AccountBalance struct {
	UserId       string          `db:"user_id"`
	RestaurantId string          `db:"restaurant_id"`
	Balance      decimal.Decimal `db:"balance"`
}

// AuditEntry records an administrative action against a user.
type AuditEntry struct {
	Id           string    `db:"id"`
	ActorId      string    `db:"actor_id"`
	Action       string    `db:"action"`
	TargetUserId string    `db:"target_user_id"`
	Details      string    `db:"details"`
	CreatedAt    time.Time `db:"created_at"`
}

const AuditActionAnonymize = "user_anonymized"

// ActiveBalance sums the entries that have not expired at asOf. Explicit
// expire entries never count; expiry is derived from expires_at alone.
func ActiveBalance(entries []LedgerEntry, asOf time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.ActiveAt(asOf) {
			total = total.Add(e.Amount)
		}
	}
	return total
}
