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

const (
	// User queries
	userColumns = `id, email, full_name, role, referral_code, is_deleted, deleted_at, deletion_reason, created_at, updated_at`

	queryInsertUser = `
		INSERT INTO users (id, email, full_name, role, referral_code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetUsers = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at`

	queryGetUserById = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ?`

	queryGetUserByEmail = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = ?`

	queryGetActiveUserByReferralCode = `
		SELECT ` + userColumns + `
		FROM users
		WHERE referral_code = ? AND is_deleted = 0`

	queryAnonymizeUser = `
		UPDATE users
		SET email = ?, full_name = ?, is_deleted = 1, deleted_at = ?, deletion_reason = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0`

	// Restaurant queries
	restaurantColumns = `id, name, guaranteed_discount_percent, upline_reward_percent, max_redemption_percent, virtual_currency_expiry_days, created_at`

	queryInsertRestaurant = `
		INSERT INTO restaurants (` + restaurantColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetRestaurantById = `
		SELECT ` + restaurantColumns + `
		FROM restaurants
		WHERE id = ?`

	queryGetRestaurants = `
		SELECT ` + restaurantColumns + `
		FROM restaurants
		ORDER BY name`

	queryInsertBranch = `
		INSERT INTO branches (id, restaurant_id, name, created_at)
		VALUES (?, ?, ?, ?)`

	queryGetBranchById = `
		SELECT id, restaurant_id, name, created_at
		FROM branches
		WHERE id = ?`

	// Referral queries
	queryInsertReferralEdge = `
		INSERT INTO referrals (id, downline_id, upline_id, upline_level, restaurant_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetReferralEdges = `
		SELECT id, downline_id, upline_id, upline_level, restaurant_id, created_at
		FROM referrals
		WHERE downline_id = ? AND restaurant_id = ?
		ORDER BY upline_level`

	// Ledger queries
	queryLockAccount = `
		INSERT OR IGNORE INTO ledger_accounts (user_id, restaurant_id, created_at)
		VALUES (?, ?, ?)`

	queryListAccounts = `
		SELECT user_id, restaurant_id, created_at
		FROM ledger_accounts
		ORDER BY restaurant_id, user_id`

	queryGetAccountsByUser = `
		SELECT user_id, restaurant_id, created_at
		FROM ledger_accounts
		WHERE user_id = ?
		ORDER BY restaurant_id`

	entryColumns = `id, user_id, restaurant_id, transaction_type, amount, balance_after, transaction_id,
		related_user_id, upline_level, reverses_entry_id, expires_at, created_at, notes`

	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetAccountEntries = `
		SELECT id, transaction_type, amount, expires_at
		FROM ledger_entries
		WHERE user_id = ? AND restaurant_id = ?
		ORDER BY created_at ASC, rowid ASC`

	queryGetLedgerEntries = `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE user_id = ? AND restaurant_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryGetLedgerEntriesByTransaction = `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE transaction_id = ?
		ORDER BY rowid`

	// Transaction queries
	transactionColumns = `id, customer_id, branch_id, restaurant_id, staff_id, bill_amount, guaranteed_discount_amount,
		virtual_currency_redeemed, is_first_transaction, status, created_at, voided_at, void_reason`

	queryInsertTransaction = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTransactionById = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = ?`

	queryCountCompletedTransactions = `
		SELECT COUNT(*)
		FROM transactions
		WHERE customer_id = ? AND restaurant_id = ? AND status = 'completed'`

	queryMarkTransactionVoided = `
		UPDATE transactions
		SET status = 'voided', voided_at = ?, void_reason = ?
		WHERE id = ? AND status = 'completed'`

	queryListVoidedTransactionIds = `
		SELECT id
		FROM transactions
		WHERE status = 'voided'
		ORDER BY created_at`

	// Audit queries
	queryInsertAuditEntry = `
		INSERT INTO audit_log (id, actor_id, action, target_user_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
)
