package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDb(t *testing.T) *Service {
	t.Helper()

	svc, err := NewService(context.Background(), models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     time.Second,
		BusyTimeout:     time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func seedUser(t *testing.T, svc *Service, email, code string) models.User {
	t.Helper()
	now := time.Now().UTC()
	user := models.User{
		Id:           uuid.New().String(),
		Email:        email,
		FullName:     "Test " + code,
		Role:         models.RoleCustomer,
		ReferralCode: code,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, svc.InsertUser(context.Background(), user))
	return user
}

func seedRestaurant(t *testing.T, svc *Service) models.Restaurant {
	t.Helper()
	restaurant := models.Restaurant{
		Id:                        uuid.New().String(),
		Name:                      "Noodle Bar",
		GuaranteedDiscountPercent: decimal.NewFromInt(5),
		UplineRewardPercent:       decimal.RequireFromString("1.5"),
		MaxRedemptionPercent:      decimal.NewFromInt(20),
		VirtualCurrencyExpiryDays: 90,
		CreatedAt:                 time.Now().UTC(),
	}
	require.NoError(t, svc.InsertRestaurant(context.Background(), restaurant))
	return restaurant
}

func TestNewService_ValidatesConfig(t *testing.T) {
	_, err := NewService(context.Background(), models.DatabaseConfig{})
	assert.Error(t, err)

	_, err = NewService(context.Background(), models.DatabaseConfig{Path: "x.db", MaxOpenConns: 1, PingTimeout: 0})
	assert.Error(t, err)
}

func TestUsers_DuplicateEmailAndCode(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	seedUser(t, svc, "a@example.com", "AAAA1111")

	dupEmail := models.User{Id: uuid.New().String(), Email: "a@example.com", FullName: "B", Role: models.RoleCustomer,
		ReferralCode: "BBBB2222", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	assert.ErrorIs(t, svc.InsertUser(ctx, dupEmail), store.ErrDuplicateEmail)

	dupCode := dupEmail
	dupCode.Email = "b@example.com"
	dupCode.ReferralCode = "AAAA1111"
	assert.ErrorIs(t, svc.InsertUser(ctx, dupCode), store.ErrDuplicateReferralCode)

	_, err := svc.GetUserById(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestAnonymizeUser(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	user := seedUser(t, svc, "c@example.com", "CCCC3333")

	found, err := svc.GetActiveUserByReferralCode(ctx, "CCCC3333")
	require.NoError(t, err)
	assert.Equal(t, user.Id, found.Id)

	at := time.Now().UTC()
	params := store.AnonymizeParams{
		UserId:   user.Id,
		Email:    "deleted_" + user.Id + "@deleted.local",
		FullName: "Deleted User",
		Reason:   "user request",
		At:       at,
	}
	require.NoError(t, svc.AnonymizeUser(ctx, params))
	assert.ErrorIs(t, svc.AnonymizeUser(ctx, params), store.ErrAlreadyAnonymized)

	got, err := svc.GetUserById(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.Equal(t, "Deleted User", got.FullName)
	assert.Equal(t, "user request", got.DeletionReason)
	require.NotNil(t, got.DeletedAt)
	assert.WithinDuration(t, at, *got.DeletedAt, time.Second)

	_, err = svc.GetActiveUserByReferralCode(ctx, "CCCC3333")
	assert.ErrorIs(t, err, store.ErrInvalidReferralCode)
}

func TestReferralEdges_UniquePerLevel(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	restaurant := seedRestaurant(t, svc)
	a := seedUser(t, svc, "a@example.com", "AAAA1111")
	b := seedUser(t, svc, "b@example.com", "BBBB2222")
	c := seedUser(t, svc, "c@example.com", "CCCC3333")

	edge := models.ReferralEdge{Id: uuid.New().String(), DownlineId: b.Id, UplineId: a.Id, UplineLevel: 1,
		RestaurantId: restaurant.Id, CreatedAt: time.Now()}
	require.NoError(t, svc.InsertReferralEdge(ctx, edge))

	edge.Id = uuid.New().String()
	edge.UplineId = c.Id
	assert.ErrorIs(t, svc.InsertReferralEdge(ctx, edge), store.ErrDuplicateChain)

	edges, err := svc.GetReferralEdges(ctx, b.Id, restaurant.Id)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, a.Id, edges[0].UplineId)
}

func TestGetBalance_ExpiryAtReadTime(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	restaurant := seedRestaurant(t, svc)
	user := seedUser(t, svc, "a@example.com", "AAAA1111")
	now := time.Now().UTC()
	expires := now.Add(24 * time.Hour)

	entries := []models.LedgerEntry{
		{TransactionType: models.EntryEarn, Amount: decimal.RequireFromString("3.00"), ExpiresAt: &expires, TransactionId: "tx1", UplineLevel: 1},
		{TransactionType: models.EntryEarn, Amount: decimal.RequireFromString("2.00"), TransactionId: "tx2", UplineLevel: 1},
		{TransactionType: models.EntryRedeem, Amount: decimal.RequireFromString("-1.50"), TransactionId: "tx3"},
	}
	for _, e := range entries {
		e.Id = uuid.New().String()
		e.UserId = user.Id
		e.RestaurantId = restaurant.Id
		e.CreatedAt = now
		require.NoError(t, svc.InsertLedgerEntry(ctx, e))
	}

	balance, err := svc.GetBalance(ctx, user.Id, restaurant.Id, now)
	require.NoError(t, err)
	assert.Equal(t, "3.5", balance.String())

	later, err := svc.GetBalance(ctx, user.Id, restaurant.Id, expires.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "0.5", later.String())

	history, err := svc.GetLedgerEntries(ctx, store.LedgerQuery{UserId: user.Id, RestaurantId: restaurant.Id, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestInsertLedgerEntry_DuplicateEarn(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	restaurant := seedRestaurant(t, svc)
	user := seedUser(t, svc, "a@example.com", "AAAA1111")

	earn := models.LedgerEntry{Id: uuid.New().String(), UserId: user.Id, RestaurantId: restaurant.Id,
		TransactionType: models.EntryEarn, Amount: decimal.NewFromInt(1), BalanceAfter: decimal.NewFromInt(1),
		TransactionId: "tx1", UplineLevel: 1, CreatedAt: time.Now()}
	require.NoError(t, svc.InsertLedgerEntry(ctx, earn))

	earn.Id = uuid.New().String()
	assert.ErrorIs(t, svc.InsertLedgerEntry(ctx, earn), store.ErrDuplicateEntry)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	restaurant := seedRestaurant(t, svc)
	user := seedUser(t, svc, "a@example.com", "AAAA1111")
	boom := errors.New("boom")

	err := svc.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		require.NoError(t, repo.LockAccount(ctx, user.Id, restaurant.Id))
		require.NoError(t, repo.InsertLedgerEntry(ctx, models.LedgerEntry{Id: uuid.New().String(), UserId: user.Id,
			RestaurantId: restaurant.Id, TransactionType: models.EntryEarn, Amount: decimal.NewFromInt(5),
			BalanceAfter: decimal.NewFromInt(5), TransactionId: "tx1", UplineLevel: 1, CreatedAt: time.Now()}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	balance, err := svc.GetBalance(ctx, user.Id, restaurant.Id, time.Now())
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	accounts, err := svc.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestTransactions_VoidOnce(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	restaurant := seedRestaurant(t, svc)
	user := seedUser(t, svc, "a@example.com", "AAAA1111")
	branch := models.Branch{Id: uuid.New().String(), RestaurantId: restaurant.Id, Name: "Main", CreatedAt: time.Now()}
	require.NoError(t, svc.InsertBranch(ctx, branch))

	tx := models.Transaction{
		Id:                       uuid.New().String(),
		CustomerId:               user.Id,
		BranchId:                 branch.Id,
		RestaurantId:             restaurant.Id,
		BillAmount:               decimal.RequireFromString("100.00"),
		GuaranteedDiscountAmount: decimal.RequireFromString("5.00"),
		VirtualCurrencyRedeemed:  decimal.Zero,
		IsFirstTransaction:       true,
		Status:                   models.StatusCompleted,
		CreatedAt:                time.Now(),
	}
	require.NoError(t, svc.InsertTransaction(ctx, tx))

	count, err := svc.CountCompletedTransactions(ctx, user.Id, restaurant.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, svc.MarkTransactionVoided(ctx, tx.Id, "wrong table", time.Now()))
	assert.ErrorIs(t, svc.MarkTransactionVoided(ctx, tx.Id, "again", time.Now()), store.ErrAlreadyVoided)

	got, err := svc.GetTransactionById(ctx, tx.Id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVoided, got.Status)
	assert.Equal(t, "wrong table", got.VoidReason)
	assert.NotNil(t, got.VoidedAt)
	assert.Equal(t, "100", got.BillAmount.String())

	count, err = svc.CountCompletedTransactions(ctx, user.Id, restaurant.Id)
	require.NoError(t, err)
	assert.Zero(t, count)

	ids, err := svc.ListVoidedTransactionIds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{tx.Id}, ids)

	_, err = svc.GetTransactionById(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrTransactionNotFound)
}
