package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"referral-ledger-go/internal/database"
	"referral-ledger-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc        *Service
	db         *database.Service
	restaurant *models.Restaurant
	branch     *models.Branch
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewService(ctx, models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns:    8,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     time.Second,
		BusyTimeout:     5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	svc := NewService(db, opts...)
	restaurant, err := svc.CreateRestaurant(ctx, CreateRestaurantParams{
		Name:                      "Somtum House",
		GuaranteedDiscountPercent: decimal.NewFromInt(5),
		UplineRewardPercent:       decimal.NewFromInt(1),
		MaxRedemptionPercent:      decimal.NewFromInt(20),
		VirtualCurrencyExpiryDays: 90,
	})
	require.NoError(t, err)

	branch, err := svc.CreateBranch(ctx, restaurant.Id, "Silom")
	require.NoError(t, err)

	return &fixture{svc: svc, db: db, restaurant: restaurant, branch: branch}
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	user, err := f.svc.CreateUser(context.Background(), CreateUserParams{
		Email:    name + "@example.com",
		FullName: name,
	})
	require.NoError(t, err)
	return user
}

// chain creates users linked top-down: names[0] refers names[1], and so on.
func (f *fixture) chain(t *testing.T, names ...string) []*models.User {
	t.Helper()
	users := make([]*models.User, len(names))
	for i, name := range names {
		users[i] = f.user(t, name)
		if i > 0 {
			_, err := f.svc.CreateReferralChain(context.Background(), users[i].Id, users[i-1].ReferralCode, f.restaurant.Id)
			require.NoError(t, err)
		}
	}
	return users
}

// credit posts a non-expiring earn directly so tests can start from a known balance.
func (f *fixture) credit(t *testing.T, userId string, amount string) {
	t.Helper()
	ctx := context.Background()
	balance, err := f.db.GetBalance(ctx, userId, f.restaurant.Id, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.db.LockAccount(ctx, userId, f.restaurant.Id))

	amt := decimal.RequireFromString(amount)
	require.NoError(t, f.db.InsertLedgerEntry(ctx, models.LedgerEntry{
		Id:              uuid.New().String(),
		UserId:          userId,
		RestaurantId:    f.restaurant.Id,
		TransactionType: models.EntryEarn,
		Amount:          amt,
		BalanceAfter:    balance.Add(amt),
		TransactionId:   "seed-" + uuid.New().String(),
		UplineLevel:     1,
		CreatedAt:       time.Now().UTC(),
		Notes:           "test credit",
	}))
}

func (f *fixture) balance(t *testing.T, userId string) decimal.Decimal {
	t.Helper()
	balance, err := f.svc.GetBalance(context.Background(), userId, f.restaurant.Id)
	require.NoError(t, err)
	return balance
}

func (f *fixture) settle(bill, redeem string, customerId string) (*SettlementResult, error) {
	return f.svc.SettleTransaction(context.Background(), SettleRequest{
		CustomerId:   customerId,
		BranchId:     f.branch.Id,
		StaffId:      "staff-1",
		BillAmount:   decimal.RequireFromString(bill),
		RedeemAmount: decimal.RequireFromString(redeem),
	})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
