package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"referral-ledger-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSettle_FirstTransactionExample(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := f.chain(t, "u2", "u1", "customer")
	u2, u1, customer := users[0], users[1], users[2]

	result, err := f.settle("100", "0", customer.Id)
	require.NoError(t, err)

	assert.Equal(t, StateCommitted, result.State)
	assert.True(t, result.Transaction.IsFirstTransaction)
	assert.True(t, result.GuaranteedDiscount.Equal(dec("5.00")), result.GuaranteedDiscount.String())
	assert.True(t, result.NetPayable.Equal(dec("95.00")))
	require.Len(t, result.Rewards, 2)

	assert.True(t, f.balance(t, u1.Id).Equal(dec("1.00")))
	assert.True(t, f.balance(t, u2.Id).Equal(dec("1.00")))
	assert.True(t, f.balance(t, customer.Id).IsZero())

	entries, err := f.svc.ListLedgerEntries(ctx, customer.Id, f.restaurant.Id, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Second visit gets no discount
	second, err := f.settle("100", "0", customer.Id)
	require.NoError(t, err)
	assert.False(t, second.Transaction.IsFirstTransaction)
	assert.True(t, second.GuaranteedDiscount.IsZero())
}

func TestSettle_RewardFanOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := f.chain(t, "a3", "a2", "a1", "customer")

	result, err := f.settle("100", "0", users[3].Id)
	require.NoError(t, err)
	require.Len(t, result.Rewards, 3)

	levels := map[int]bool{}
	for i, ancestor := range users[:3] {
		entries, err := f.svc.ListLedgerEntries(ctx, ancestor.Id, f.restaurant.Id, 10, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, entries[0].Amount.Equal(dec("1.00")))
		assert.Equal(t, 3-i, entries[0].UplineLevel)
		assert.Equal(t, users[3].Id, entries[0].RelatedUserId)
		assert.Equal(t, result.Transaction.Id, entries[0].TransactionId)
		require.NotNil(t, entries[0].ExpiresAt)
		levels[entries[0].UplineLevel] = true
	}
	assert.Len(t, levels, 3)
}

func TestSettle_RewardRounding(t *testing.T) {
	f := newFixture(t)
	users := f.chain(t, "upline", "customer")

	result, err := f.settle("33.33", "0", users[1].Id)
	require.NoError(t, err)
	require.Len(t, result.Rewards, 1)
	assert.Equal(t, "0.33", result.Rewards[0].Amount.StringFixed(2))
	assert.Equal(t, "1.67", result.GuaranteedDiscount.StringFixed(2))
}

func TestSettle_InsufficientBalancePostsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.user(t, "customer")
	f.credit(t, customer.Id, "10")

	_, err := f.settle("100", "15", customer.Id)
	require.ErrorIs(t, err, store.ErrInsufficientBalance)

	var balErr *store.InsufficientBalanceError
	require.True(t, errors.As(err, &balErr))
	assert.True(t, balErr.Available.Equal(dec("10")))

	entries, err := f.svc.ListLedgerEntries(ctx, customer.Id, f.restaurant.Id, 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	count, err := f.db.CountCompletedTransactions(ctx, customer.Id, f.restaurant.Id)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSettle_RedemptionCap(t *testing.T) {
	f := newFixture(t)
	customer := f.user(t, "customer")
	f.credit(t, customer.Id, "50")

	_, err := f.settle("100", "25", customer.Id)
	require.ErrorIs(t, err, store.ErrRedemptionCapExceeded)
	assert.True(t, f.balance(t, customer.Id).Equal(dec("50")))

	result, err := f.settle("100", "20", customer.Id)
	require.NoError(t, err)
	assert.True(t, result.Redeemed.Equal(dec("20")))
	assert.True(t, result.NetPayable.Equal(dec("75")))
	assert.True(t, f.balance(t, customer.Id).Equal(dec("30")))
}

func TestSettle_InvalidInput(t *testing.T) {
	f := newFixture(t)
	customer := f.user(t, "customer")

	_, err := f.settle("0", "0", customer.Id)
	assert.ErrorIs(t, err, store.ErrInvalidAmount)

	_, err = f.settle("10", "-1", customer.Id)
	assert.ErrorIs(t, err, store.ErrInvalidAmount)

	_, err = f.settle("10.001", "0", customer.Id)
	assert.ErrorIs(t, err, store.ErrInvalidAmount)

	_, err = f.settle("10", "0", "missing-user")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	_, err = f.svc.SettleTransaction(context.Background(), SettleRequest{
		CustomerId: customer.Id, BranchId: "missing", BillAmount: dec("10"),
	})
	assert.ErrorIs(t, err, store.ErrBranchNotFound)

	require.NoError(t, f.svc.AnonymizeUser(context.Background(), customer.Id, "closed"))
	_, err = f.settle("10", "0", customer.Id)
	assert.ErrorIs(t, err, store.ErrUserDeleted)
}

func TestSettle_ConcurrentRedemptions(t *testing.T) {
	f := newFixture(t)
	customer := f.user(t, "customer")
	f.credit(t, customer.Id, "100")

	const workers = 2
	var wg sync.WaitGroup
	errs := make([]error, workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.settle("300", "60", customer.Id)
		}(i)
	}
	close(start)
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)
	assert.True(t, f.balance(t, customer.Id).Equal(dec("40")))
}

func TestSettle_SkipsAnonymizedAncestor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := f.chain(t, "grand", "parent", "customer")
	require.NoError(t, f.svc.AnonymizeUser(ctx, users[0].Id, "left"))

	result, err := f.settle("100", "0", users[2].Id)
	require.NoError(t, err)
	require.Len(t, result.Rewards, 1)
	assert.Equal(t, users[1].Id, result.Rewards[0].UplineId)
	assert.Equal(t, []int{2}, result.SkippedLevels)

	// The anonymized node keeps its history and edges
	edges, err := f.svc.ListReferralEdges(ctx, users[2].Id, f.restaurant.Id)
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestSettle_RejectionIsLogged(t *testing.T) {
	f := newFixture(t)
	customer := f.user(t, "customer")
	f.credit(t, customer.Id, "5")

	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)

	_, err := f.settle("100", "10", customer.Id)
	require.ErrorIs(t, err, store.ErrInsufficientBalance)

	rejected := logs.FilterMessage("Settlement rejected").All()
	require.Len(t, rejected, 1)
	fields := rejected[0].ContextMap()
	assert.Equal(t, string(StateRejected), fields["state"])
	assert.Equal(t, string(StateInitiated), fields["reached_state"])
}
