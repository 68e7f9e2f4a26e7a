package ledger

import (
	"context"
	"testing"
	"time"

	"referral-ledger-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortKeys_OrdersAndDedupes(t *testing.T) {
	keys := sortKeys([]pairKey{
		{userId: "b", restaurantId: "r1"},
		{userId: "a", restaurantId: "r2"},
		{userId: "a", restaurantId: "r1"},
		{userId: "b", restaurantId: "r1"},
	})

	assert.Equal(t, []pairKey{
		{userId: "a", restaurantId: "r1"},
		{userId: "b", restaurantId: "r1"},
		{userId: "a", restaurantId: "r2"},
	}, keys)
}

func TestPairLocks_TimeoutIsBusy(t *testing.T) {
	locks := newPairLocks(50 * time.Millisecond)
	ctx := context.Background()
	key := pairKey{userId: "u", restaurantId: "r"}

	release, err := locks.acquire(ctx, []pairKey{key})
	require.NoError(t, err)

	_, err = locks.acquire(ctx, []pairKey{{userId: "other", restaurantId: "r"}, key})
	assert.ErrorIs(t, err, store.ErrBusy)

	// The partially acquired "other" key must have been released
	otherRelease, err := locks.acquire(ctx, []pairKey{{userId: "other", restaurantId: "r"}})
	require.NoError(t, err)
	otherRelease()

	release()
	assert.Zero(t, locks.size())
}

func TestPairLocks_CancelledContext(t *testing.T) {
	locks := newPairLocks(time.Second)
	key := pairKey{userId: "u", restaurantId: "r"}

	release, err := locks.acquire(context.Background(), []pairKey{key})
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = locks.acquire(ctx, []pairKey{key})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, store.IsRetryable(err))
}

func TestPairLocks_DisjointPairsDoNotContend(t *testing.T) {
	locks := newPairLocks(50 * time.Millisecond)
	ctx := context.Background()

	r1, err := locks.acquire(ctx, []pairKey{{userId: "u1", restaurantId: "r"}})
	require.NoError(t, err)
	r2, err := locks.acquire(ctx, []pairKey{{userId: "u2", restaurantId: "r"}})
	require.NoError(t, err)
	r2()
	r1()
}

func TestSettle_BusyWhenPairHeld(t *testing.T) {
	f := newFixture(t, WithLockTimeout(50*time.Millisecond))
	customer := f.user(t, "customer")

	release, err := f.svc.locks.acquire(context.Background(), []pairKey{{userId: customer.Id, restaurantId: f.restaurant.Id}})
	require.NoError(t, err)
	defer release()

	_, err = f.settle("100", "0", customer.Id)
	assert.ErrorIs(t, err, store.ErrBusy)
	assert.True(t, store.IsRetryable(err))
}
