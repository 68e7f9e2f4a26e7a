package ledger

import (
	"testing"
	"time"

	"referral-ledger-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpendableLots_Order(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	soon, later := base.AddDate(0, 0, 10), base.AddDate(0, 0, 40)
	entry := func(typ models.EntryType, amount string, expiresAt *time.Time) models.LedgerEntry {
		return models.LedgerEntry{TransactionType: typ, Amount: dec(amount), ExpiresAt: expiresAt}
	}

	lots := spendableLots([]models.LedgerEntry{
		entry(models.EntryEarn, "4", nil),
		entry(models.EntryEarn, "10", &later),
		entry(models.EntryEarn, "6", &soon),
		entry(models.EntryRedeem, "-6", &soon),
		entry(models.EntryEarn, "2", &later),
		entry(models.EntryRedeem, "-3", &later),
	})

	// The fully spent soon lot is dropped
	require.Len(t, lots, 2)
	require.NotNil(t, lots[0].expiresAt)
	assert.True(t, lots[0].expiresAt.Equal(later))
	assert.True(t, lots[0].available.Equal(dec("9")))
	assert.Nil(t, lots[1].expiresAt)
	assert.True(t, lots[1].available.Equal(dec("4")))
}

func TestAllocateRedemption(t *testing.T) {
	soon := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	lots := []lot{
		{expiresAt: &soon, available: dec("2.50")},
		{available: dec("10")},
	}

	slices, short := allocateRedemption(lots, dec("4"))
	assert.True(t, short.IsZero())
	require.Len(t, slices, 2)
	assert.Equal(t, &soon, slices[0].expiresAt)
	assert.True(t, slices[0].amount.Equal(dec("2.50")))
	assert.Nil(t, slices[1].expiresAt)
	assert.True(t, slices[1].amount.Equal(dec("1.50")))

	slices, short = allocateRedemption(lots, dec("20"))
	assert.Len(t, slices, 2)
	assert.True(t, short.Equal(dec("7.50")))
}
