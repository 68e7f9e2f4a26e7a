package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Repo must satisfy store.Repository.
var _ store.Repository = (*Repo)(nil)

// Repo runs every repository query against either the pool or an open pgx.Tx.
type Repo struct {
	q querier
}

type decimalText struct {
	dst *decimal.Decimal
	raw string
}

func (d *decimalText) parse() error {
	v, err := decimal.NewFromString(d.raw)
	if err != nil {
		return fmt.Errorf("invalid numeric %q: %w", d.raw, err)
	}
	*d.dst = v
	return nil
}

func parseDecimals(fields ...*decimalText) error {
	for _, f := range fields {
		if err := f.parse(); err != nil {
			return err
		}
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// --- Users ---

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		user models.User
		role string
	)
	err := row.Scan(&user.Id, &user.Email, &user.FullName, &role, &user.ReferralCode,
		&user.IsDeleted, &user.DeletedAt, &user.DeletionReason, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	return &user, nil
}

func (r *Repo) InsertUser(ctx context.Context, user models.User) error {
	zap.L().Info("Creating user", zap.String("id", user.Id), zap.String("role", string(user.Role)))

	_, err := r.q.Exec(ctx, queryInsertUser, user.Id, user.Email, user.FullName, string(user.Role),
		user.ReferralCode, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("unable to insert user: %w", translateError(err))
	}
	return nil
}

func (r *Repo) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.q.Query(ctx, queryGetUsers)
	if err != nil {
		return nil, fmt.Errorf("unable to query users: %w", translateError(err))
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

func (r *Repo) getUser(ctx context.Context, query, key string, notFound error) (*models.User, error) {
	user, err := scanUser(r.q.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("unable to query user: %w", translateError(err))
	}
	return user, nil
}

func (r *Repo) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	return r.getUser(ctx, queryGetUserById, userId, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId))
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, queryGetUserByEmail, email, fmt.Errorf("%w: %s", store.ErrUserNotFound, email))
}

func (r *Repo) GetActiveUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return r.getUser(ctx, queryGetActiveUserByReferralCode, code, store.ErrInvalidReferralCode)
}

func (r *Repo) AnonymizeUser(ctx context.Context, params store.AnonymizeParams) error {
	tag, err := r.q.Exec(ctx, queryAnonymizeUser, params.Email, params.FullName, params.At.UTC(), params.Reason, params.UserId)
	if err != nil {
		return fmt.Errorf("unable to anonymize user: %w", translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAlreadyAnonymized
	}
	return nil
}

func (r *Repo) InsertAuditEntry(ctx context.Context, entry models.AuditEntry) error {
	_, err := r.q.Exec(ctx, queryInsertAuditEntry, entry.Id, entry.ActorId, entry.Action,
		entry.TargetUserId, entry.Details, entry.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("unable to insert audit entry: %w", translateError(err))
	}
	return nil
}

// --- Restaurants ---

func scanRestaurant(row pgx.Row) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	discount := decimalText{dst: &restaurant.GuaranteedDiscountPercent}
	reward := decimalText{dst: &restaurant.UplineRewardPercent}
	maxRedeem := decimalText{dst: &restaurant.MaxRedemptionPercent}
	err := row.Scan(&restaurant.Id, &restaurant.Name, &discount.raw, &reward.raw, &maxRedeem.raw,
		&restaurant.VirtualCurrencyExpiryDays, &restaurant.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := parseDecimals(&discount, &reward, &maxRedeem); err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *Repo) InsertRestaurant(ctx context.Context, restaurant models.Restaurant) error {
	_, err := r.q.Exec(ctx, queryInsertRestaurant,
		restaurant.Id,
		restaurant.Name,
		restaurant.GuaranteedDiscountPercent.String(),
		restaurant.UplineRewardPercent.String(),
		restaurant.MaxRedemptionPercent.String(),
		restaurant.VirtualCurrencyExpiryDays,
		restaurant.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("unable to insert restaurant: %w", translateError(err))
	}
	return nil
}

func (r *Repo) GetRestaurantById(ctx context.Context, restaurantId string) (*models.Restaurant, error) {
	restaurant, err := scanRestaurant(r.q.QueryRow(ctx, queryGetRestaurantById, restaurantId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrRestaurantNotFound, restaurantId)
		}
		return nil, fmt.Errorf("unable to query restaurant: %w", translateError(err))
	}
	return restaurant, nil
}

func (r *Repo) GetRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	rows, err := r.q.Query(ctx, queryGetRestaurants)
	if err != nil {
		return nil, fmt.Errorf("unable to query restaurants: %w", translateError(err))
	}
	defer rows.Close()

	var restaurants []models.Restaurant
	for rows.Next() {
		restaurant, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan restaurant row: %w", err)
		}
		restaurants = append(restaurants, *restaurant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating restaurant rows: %w", err)
	}
	return restaurants, nil
}

func (r *Repo) InsertBranch(ctx context.Context, branch models.Branch) error {
	if _, err := r.q.Exec(ctx, queryInsertBranch, branch.Id, branch.RestaurantId, branch.Name, branch.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("unable to insert branch: %w", translateError(err))
	}
	return nil
}

func (r *Repo) GetBranchById(ctx context.Context, branchId string) (*models.Branch, error) {
	var branch models.Branch
	err := r.q.QueryRow(ctx, queryGetBranchById, branchId).Scan(&branch.Id, &branch.RestaurantId, &branch.Name, &branch.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrBranchNotFound, branchId)
		}
		return nil, fmt.Errorf("unable to query branch: %w", translateError(err))
	}
	return &branch, nil
}

// --- Referrals ---

func (r *Repo) InsertReferralEdge(ctx context.Context, edge models.ReferralEdge) error {
	_, err := r.q.Exec(ctx, queryInsertReferralEdge, edge.Id, edge.DownlineId, edge.UplineId,
		edge.UplineLevel, edge.RestaurantId, edge.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("unable to insert referral edge: %w", translateError(err))
	}
	return nil
}

func (r *Repo) GetReferralEdges(ctx context.Context, downlineId, restaurantId string) ([]models.ReferralEdge, error) {
	rows, err := r.q.Query(ctx, queryGetReferralEdges, downlineId, restaurantId)
	if err != nil {
		return nil, fmt.Errorf("unable to query referral edges: %w", translateError(err))
	}
	defer rows.Close()

	var edges []models.ReferralEdge
	for rows.Next() {
		var edge models.ReferralEdge
		if err := rows.Scan(&edge.Id, &edge.DownlineId, &edge.UplineId, &edge.UplineLevel, &edge.RestaurantId, &edge.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan referral edge: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referral edges: %w", err)
	}
	return edges, nil
}

// --- Ledger ---

// LockAccount creates the account row if needed and holds FOR UPDATE on it
// until the surrounding transaction ends.
func (r *Repo) LockAccount(ctx context.Context, userId, restaurantId string) error {
	if _, err := r.q.Exec(ctx, queryEnsureAccount, userId, restaurantId); err != nil {
		return fmt.Errorf("unable to create account: %w", translateError(err))
	}
	var one int
	if err := r.q.QueryRow(ctx, queryLockAccount, userId, restaurantId).Scan(&one); err != nil {
		return fmt.Errorf("unable to lock account: %w", translateError(err))
	}
	return nil
}

func (r *Repo) GetBalance(ctx context.Context, userId, restaurantId string, asOf time.Time) (decimal.Decimal, error) {
	var raw string
	if err := r.q.QueryRow(ctx, queryGetBalance, userId, restaurantId, asOf.UTC()).Scan(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("unable to query balance: %w", translateError(err))
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid balance %q: %w", raw, err)
	}
	return balance, nil
}

func (r *Repo) GetActiveEntries(ctx context.Context, userId, restaurantId string, asOf time.Time) ([]models.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, queryGetActiveEntries, userId, restaurantId, asOf.UTC())
	if err != nil {
		return nil, fmt.Errorf("unable to query account entries: %w", translateError(err))
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			entry     models.LedgerEntry
			entryType string
			amount    string
		)
		if err := rows.Scan(&entry.Id, &entryType, &amount, &entry.ExpiresAt); err != nil {
			return nil, fmt.Errorf("unable to scan account entry: %w", err)
		}
		if entry.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
		}
		entry.UserId = userId
		entry.RestaurantId = restaurantId
		entry.TransactionType = models.EntryType(entryType)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account entries: %w", translateError(err))
	}
	return entries, nil
}

func (r *Repo) InsertLedgerEntry(ctx context.Context, entry models.LedgerEntry) error {
	_, err := r.q.Exec(ctx, queryInsertLedgerEntry,
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
			zap.String("type", string(entry.TransactionType)),
			zap.Error(err))
		return fmt.Errorf("unable to insert ledger entry: %w", translateError(err))
	}
	return nil
}

func (r *Repo) GetLedgerEntries(ctx context.Context, query store.LedgerQuery) ([]models.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, queryGetLedgerEntries, query.UserId, query.RestaurantId, query.Limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("unable to query ledger entries: %w", translateError(err))
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *Repo) GetLedgerEntriesByTransaction(ctx context.Context, transactionId string) ([]models.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, queryGetLedgerEntriesByTransaction, transactionId)
	if err != nil {
		return nil, fmt.Errorf("unable to query transaction entries: %w", translateError(err))
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			entry     models.LedgerEntry
			entryType string
		)
		amount := decimalText{dst: &entry.Amount}
		balanceAfter := decimalText{dst: &entry.BalanceAfter}
		err := rows.Scan(&entry.Id, &entry.UserId, &entry.RestaurantId, &entryType, &amount.raw, &balanceAfter.raw,
			&entry.TransactionId, &entry.RelatedUserId, &entry.UplineLevel, &entry.ReversesEntryId,
			&entry.ExpiresAt, &entry.CreatedAt, &entry.Notes)
		if err != nil {
			return nil, fmt.Errorf("unable to scan ledger entry: %w", err)
		}
		if err := parseDecimals(&amount, &balanceAfter); err != nil {
			return nil, err
		}
		entry.TransactionType = models.EntryType(entryType)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

func (r *Repo) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return r.queryAccounts(ctx, queryListAccounts)
}

func (r *Repo) GetAccountsByUser(ctx context.Context, userId string) ([]models.Account, error) {
	return r.queryAccounts(ctx, queryGetAccountsByUser, userId)
}

func (r *Repo) queryAccounts(ctx context.Context, query string, args ...any) ([]models.Account, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query accounts: %w", translateError(err))
	}
	defer rows.Close()

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

// --- Transactions ---

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		tx     models.Transaction
		status string
	)
	bill := decimalText{dst: &tx.BillAmount}
	discount := decimalText{dst: &tx.GuaranteedDiscountAmount}
	redeemed := decimalText{dst: &tx.VirtualCurrencyRedeemed}
	err := row.Scan(&tx.Id, &tx.CustomerId, &tx.BranchId, &tx.RestaurantId, &tx.StaffId,
		&bill.raw, &discount.raw, &redeemed.raw, &tx.IsFirstTransaction, &status,
		&tx.CreatedAt, &tx.VoidedAt, &tx.VoidReason)
	if err != nil {
		return nil, err
	}
	if err := parseDecimals(&bill, &discount, &redeemed); err != nil {
		return nil, err
	}
	tx.Status = models.TransactionStatus(status)
	return &tx, nil
}

func (r *Repo) InsertTransaction(ctx context.Context, tx models.Transaction) error {
	_, err := r.q.Exec(ctx, queryInsertTransaction,
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
		return fmt.Errorf("unable to insert transaction: %w", translateError(err))
	}
	return nil
}

func (r *Repo) getTransaction(ctx context.Context, query, transactionId string) (*models.Transaction, error) {
	tx, err := scanTransaction(r.q.QueryRow(ctx, query, transactionId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrTransactionNotFound, transactionId)
		}
		return nil, fmt.Errorf("unable to query transaction: %w", translateError(err))
	}
	return tx, nil
}

func (r *Repo) GetTransactionById(ctx context.Context, transactionId string) (*models.Transaction, error) {
	return r.getTransaction(ctx, queryGetTransactionById, transactionId)
}

func (r *Repo) LockTransaction(ctx context.Context, transactionId string) (*models.Transaction, error) {
	return r.getTransaction(ctx, queryLockTransaction, transactionId)
}

func (r *Repo) CountCompletedTransactions(ctx context.Context, customerId, restaurantId string) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, queryCountCompletedTransactions, customerId, restaurantId).Scan(&count); err != nil {
		return 0, fmt.Errorf("unable to count transactions: %w", translateError(err))
	}
	return count, nil
}

func (r *Repo) MarkTransactionVoided(ctx context.Context, transactionId, reason string, at time.Time) error {
	tag, err := r.q.Exec(ctx, queryMarkTransactionVoided, at.UTC(), reason, transactionId)
	if err != nil {
		return fmt.Errorf("unable to void transaction: %w", translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAlreadyVoided
	}
	return nil
}

func (r *Repo) ListVoidedTransactionIds(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, queryListVoidedTransactionIds)
	if err != nil {
		return nil, fmt.Errorf("unable to query voided transactions: %w", translateError(err))
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("unable to collect voided transactions: %w", err)
	}
	return ids, nil
}
