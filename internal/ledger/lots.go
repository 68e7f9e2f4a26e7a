package ledger

import (
	"sort"
	"time"

	"referral-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// lot is the spendable remainder of every active entry sharing one expiry.
// A nil expiresAt never expires.
type lot struct {
	expiresAt *time.Time
	available decimal.Decimal
}

// redeemSlice is the part of a redemption drawn from one lot.
type redeemSlice struct {
	expiresAt *time.Time
	amount    decimal.Decimal
}

// spendableLots groups active entries by expiry and returns the lots that
// still hold currency, soonest expiry first and non-expiring last. Earlier
// redeem slices carry their lot's expiry, so they net out against it here.
func spendableLots(entries []models.LedgerEntry) []lot {
	byExpiry := make(map[int64]*lot)
	var keys []int64
	var never *lot
	for _, e := range entries {
		if e.ExpiresAt == nil {
			if never == nil {
				never = &lot{available: decimal.Zero}
			}
			never.available = never.available.Add(e.Amount)
			continue
		}
		key := e.ExpiresAt.UTC().UnixNano()
		l, ok := byExpiry[key]
		if !ok {
			at := e.ExpiresAt.UTC()
			l = &lot{expiresAt: &at, available: decimal.Zero}
			byExpiry[key] = l
			keys = append(keys, key)
		}
		l.available = l.available.Add(e.Amount)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	lots := make([]lot, 0, len(keys)+1)
	for _, k := range keys {
		if l := byExpiry[k]; l.available.IsPositive() {
			lots = append(lots, *l)
		}
	}
	if never != nil && never.available.IsPositive() {
		lots = append(lots, *never)
	}
	return lots
}

// allocateRedemption draws amount from lots in order. It returns the slices
// and whatever part of amount the lots could not cover.
func allocateRedemption(lots []lot, amount decimal.Decimal) ([]redeemSlice, decimal.Decimal) {
	remaining := amount
	var slices []redeemSlice
	for _, l := range lots {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(l.available, remaining)
		slices = append(slices, redeemSlice{expiresAt: l.expiresAt, amount: take})
		remaining = remaining.Sub(take)
	}
	return slices, remaining
}
