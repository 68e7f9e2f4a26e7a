package postgres

// Numeric columns travel as text in both directions so decimal.Decimal
// round-trips without going through float.
const (
	userColumns = `id, email, full_name, role, referral_code, is_deleted, deleted_at, deletion_reason, created_at, updated_at`

	queryInsertUser = `
		INSERT INTO users (id, email, full_name, role, referral_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	queryGetUsers = `SELECT ` + userColumns + ` FROM users ORDER BY created_at`

	queryGetUserById = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	queryGetUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	queryGetActiveUserByReferralCode = `
		SELECT ` + userColumns + `
		FROM users
		WHERE referral_code = $1 AND NOT is_deleted`

	queryAnonymizeUser = `
		UPDATE users
		SET email = $1, full_name = $2, is_deleted = TRUE, deleted_at = $3, deletion_reason = $4, updated_at = $3
		WHERE id = $5 AND NOT is_deleted`

	restaurantSelect = `
		SELECT id, name, guaranteed_discount_percent::text, upline_reward_percent::text,
		       max_redemption_percent::text, virtual_currency_expiry_days, created_at
		FROM restaurants`

	queryInsertRestaurant = `
		INSERT INTO restaurants (id, name, guaranteed_discount_percent, upline_reward_percent,
		                         max_redemption_percent, virtual_currency_expiry_days, created_at)
		VALUES ($1, $2, $3::text::numeric, $4::text::numeric, $5::text::numeric, $6, $7)`

	queryGetRestaurantById = restaurantSelect + ` WHERE id = $1`

	queryGetRestaurants = restaurantSelect + ` ORDER BY name`

	queryInsertBranch = `
		INSERT INTO branches (id, restaurant_id, name, created_at)
		VALUES ($1, $2, $3, $4)`

	queryGetBranchById = `SELECT id, restaurant_id, name, created_at FROM branches WHERE id = $1`

	queryInsertReferralEdge = `
		INSERT INTO referrals (id, downline_id, upline_id, upline_level, restaurant_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	queryGetReferralEdges = `
		SELECT id, downline_id, upline_id, upline_level, restaurant_id, created_at
		FROM referrals
		WHERE downline_id = $1 AND restaurant_id = $2
		ORDER BY upline_level`

	queryEnsureAccount = `
		INSERT INTO ledger_accounts (user_id, restaurant_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, restaurant_id) DO NOTHING`

	queryLockAccount = `
		SELECT 1 FROM ledger_accounts
		WHERE user_id = $1 AND restaurant_id = $2
		FOR UPDATE`

	queryListAccounts = `
		SELECT user_id, restaurant_id, created_at
		FROM ledger_accounts
		ORDER BY restaurant_id, user_id`

	queryGetAccountsByUser = `
		SELECT user_id, restaurant_id, created_at
		FROM ledger_accounts
		WHERE user_id = $1
		ORDER BY restaurant_id`

	queryGetBalance = `
		SELECT COALESCE(SUM(amount), 0)::text
		FROM ledger_entries
		WHERE user_id = $1 AND restaurant_id = $2
		  AND transaction_type <> 'expire'
		  AND (expires_at IS NULL OR expires_at > $3)`

	queryGetActiveEntries = `
		SELECT id, transaction_type, amount::text, expires_at
		FROM ledger_entries
		WHERE user_id = $1 AND restaurant_id = $2
		  AND transaction_type <> 'expire'
		  AND (expires_at IS NULL OR expires_at > $3)
		ORDER BY seq`

	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (id, user_id, restaurant_id, transaction_type, amount, balance_after,
		                            transaction_id, related_user_id, upline_level, reverses_entry_id,
		                            expires_at, created_at, notes)
		VALUES ($1, $2, $3, $4, $5::text::numeric, $6::text::numeric, $7, $8, $9, $10, $11, $12, $13)`

	entrySelect = `
		SELECT id, user_id, restaurant_id, transaction_type, amount::text, balance_after::text,
		       transaction_id, related_user_id, upline_level, reverses_entry_id, expires_at, created_at, notes
		FROM ledger_entries`

	queryGetLedgerEntries = entrySelect + `
		WHERE user_id = $1 AND restaurant_id = $2
		ORDER BY created_at DESC, seq DESC
		LIMIT $3 OFFSET $4`

	queryGetLedgerEntriesByTransaction = entrySelect + `
		WHERE transaction_id = $1
		ORDER BY seq`

	transactionSelect = `
		SELECT id, customer_id, branch_id, restaurant_id, staff_id, bill_amount::text,
		       guaranteed_discount_amount::text, virtual_currency_redeemed::text,
		       is_first_transaction, status, created_at, voided_at, void_reason
		FROM transactions`

	queryInsertTransaction = `
		INSERT INTO transactions (id, customer_id, branch_id, restaurant_id, staff_id, bill_amount,
		                          guaranteed_discount_amount, virtual_currency_redeemed,
		                          is_first_transaction, status, created_at, voided_at, void_reason)
		VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7::text::numeric, $8::text::numeric, $9, $10, $11, $12, $13)`

	queryGetTransactionById = transactionSelect + ` WHERE id = $1`

	queryLockTransaction = transactionSelect + ` WHERE id = $1 FOR UPDATE`

	queryCountCompletedTransactions = `
		SELECT COUNT(*)
		FROM transactions
		WHERE customer_id = $1 AND restaurant_id = $2 AND status = 'completed'`

	queryMarkTransactionVoided = `
		UPDATE transactions
		SET status = 'voided', voided_at = $1, void_reason = $2
		WHERE id = $3 AND status = 'completed'`

	queryListVoidedTransactionIds = `
		SELECT id FROM transactions WHERE status = 'voided' ORDER BY created_at`

	queryInsertAuditEntry = `
		INSERT INTO audit_log (id, actor_id, action, target_user_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
)
