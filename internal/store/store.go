package store

import (
	"context"
	"time"

	"referral-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// AnonymizeParams carries the replacement PII written over a user row.
type AnonymizeParams struct {
	UserId   string
	Email    string
	FullName string
	Reason   string
	At       time.Time
}

// LedgerQuery selects entries for one (user, restaurant) pair, newest first.
type LedgerQuery struct {
	UserId       string
	RestaurantId string
	Limit        int
	Offset       int
}

// Repository is the set of persistence operations the engine needs. Every
// backend implements it once over a querier so the same methods run either
// directly on the pool or inside a transaction.
type Repository interface {
	// --- Users ---
	InsertUser(ctx context.Context, user models.User) error
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetActiveUserByReferralCode(ctx context.Context, code string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	AnonymizeUser(ctx context.Context, params AnonymizeParams) error

	// --- Restaurants ---
	InsertRestaurant(ctx context.Context, restaurant models.Restaurant) error
	GetRestaurantById(ctx context.Context, restaurantId string) (*models.Restaurant, error)
	GetRestaurants(ctx context.Context) ([]models.Restaurant, error)
	InsertBranch(ctx context.Context, branch models.Branch) error
	GetBranchById(ctx context.Context, branchId string) (*models.Branch, error)

	// --- Referrals ---
	InsertReferralEdge(ctx context.Context, edge models.ReferralEdge) error
	GetReferralEdges(ctx context.Context, downlineId, restaurantId string) ([]models.ReferralEdge, error)

	// --- Ledger ---
	LockAccount(ctx context.Context, userId, restaurantId string) error
	GetBalance(ctx context.Context, userId, restaurantId string, asOf time.Time) (decimal.Decimal, error)
	// GetActiveEntries returns the entries of one account that count towards
	// its balance at asOf, oldest first.
	GetActiveEntries(ctx context.Context, userId, restaurantId string, asOf time.Time) ([]models.LedgerEntry, error)
	InsertLedgerEntry(ctx context.Context, entry models.LedgerEntry) error
	GetLedgerEntries(ctx context.Context, query LedgerQuery) ([]models.LedgerEntry, error)
	GetLedgerEntriesByTransaction(ctx context.Context, transactionId string) ([]models.LedgerEntry, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	GetAccountsByUser(ctx context.Context, userId string) ([]models.Account, error)

	// --- Transactions ---
	InsertTransaction(ctx context.Context, tx models.Transaction) error
	GetTransactionById(ctx context.Context, transactionId string) (*models.Transaction, error)
	LockTransaction(ctx context.Context, transactionId string) (*models.Transaction, error)
	CountCompletedTransactions(ctx context.Context, customerId, restaurantId string) (int, error)
	MarkTransactionVoided(ctx context.Context, transactionId, reason string, at time.Time) error
	ListVoidedTransactionIds(ctx context.Context) ([]string, error)

	// --- Audit ---
	InsertAuditEntry(ctx context.Context, entry models.AuditEntry) error
}

// Store is a Repository that can also open transactions.
type Store interface {
	Repository

	// WithTx runs fn inside a single database transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
	Ping(ctx context.Context) error
	Close()
}
