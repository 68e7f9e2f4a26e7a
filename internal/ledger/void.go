package ledger

import (
	"context"
	"fmt"
	"strings"

	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VoidResult is the voided transaction and the compensating entries posted for it.
type VoidResult struct {
	Transaction models.Transaction   `json:"transaction"`
	Reversals   []models.LedgerEntry `json:"reversals"`
}

// VoidTransaction reverses every redeem and earn a settlement posted and
// marks the transaction voided. Original rows are never touched; each one
// gets a reverse entry with the opposite sign.
func (s *Service) VoidTransaction(ctx context.Context, transactionId, reason string) (*VoidResult, error) {
	tx, err := s.store.GetTransactionById(ctx, transactionId)
	if err != nil {
		return nil, err
	}
	if tx.Status == models.StatusVoided {
		return nil, store.ErrAlreadyVoided
	}

	entries, err := s.store.GetLedgerEntriesByTransaction(ctx, transactionId)
	if err != nil {
		return nil, err
	}
	keys := voidKeys(*tx, entries)

	release, err := s.locks.acquire(ctx, keys)
	if err != nil {
		return nil, err
	}
	defer release()

	reason = strings.TrimSpace(reason)
	var result *VoidResult
	err = s.store.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		for _, k := range sortKeys(keys) {
			if err := repo.LockAccount(ctx, k.userId, k.restaurantId); err != nil {
				return err
			}
		}

		current, err := repo.LockTransaction(ctx, transactionId)
		if err != nil {
			return err
		}
		if current.Status == models.StatusVoided {
			return store.ErrAlreadyVoided
		}

		entries, err := repo.GetLedgerEntriesByTransaction(ctx, transactionId)
		if err != nil {
			return err
		}
		locked := make(map[pairKey]bool, len(keys))
		for _, k := range keys {
			locked[k] = true
		}

		now := s.clock()
		var reversals []models.LedgerEntry
		for _, original := range entries {
			if original.TransactionType != models.EntryEarn && original.TransactionType != models.EntryRedeem {
				continue
			}
			k := pairKey{userId: original.UserId, restaurantId: original.RestaurantId}
			if !locked[k] {
				return fmt.Errorf("%w: ledger entries changed during void", store.ErrBusy)
			}

			balance, err := repo.GetBalance(ctx, original.UserId, original.RestaurantId, now)
			if err != nil {
				return err
			}

			reversal := models.LedgerEntry{
				Id:              uuid.New().String(),
				UserId:          original.UserId,
				RestaurantId:    original.RestaurantId,
				TransactionType: models.EntryReverse,
				Amount:          original.Amount.Neg(),
				TransactionId:   transactionId,
				RelatedUserId:   original.RelatedUserId,
				UplineLevel:     original.UplineLevel,
				ReversesEntryId: original.Id,
				ExpiresAt:       original.ExpiresAt,
				CreatedAt:       now,
				Notes:           reversalNote(original, reason),
			}
			reversal.BalanceAfter = balance
			if reversal.ActiveAt(now) {
				reversal.BalanceAfter = balance.Add(reversal.Amount)
			}

			if err := repo.InsertLedgerEntry(ctx, reversal); err != nil {
				return err
			}
			reversals = append(reversals, reversal)
		}

		if err := repo.MarkTransactionVoided(ctx, transactionId, reason, now); err != nil {
			return err
		}

		current.Status = models.StatusVoided
		current.VoidedAt = &now
		current.VoidReason = reason
		result = &VoidResult{Transaction: *current, Reversals: reversals}
		return nil
	})
	if err != nil {
		zap.L().Info("Void rejected", zap.String("transaction_id", transactionId), zap.Error(err))
		return nil, err
	}

	zap.L().Info("Transaction voided",
		zap.String("transaction_id", transactionId),
		zap.Int("reversals", len(result.Reversals)),
		zap.String("reason", reason))
	return result, nil
}

func voidKeys(tx models.Transaction, entries []models.LedgerEntry) []pairKey {
	keys := []pairKey{{userId: tx.CustomerId, restaurantId: tx.RestaurantId}}
	for _, e := range entries {
		keys = append(keys, pairKey{userId: e.UserId, restaurantId: e.RestaurantId})
	}
	return keys
}

func reversalNote(original models.LedgerEntry, reason string) string {
	note := fmt.Sprintf("reversal of %s %s", original.TransactionType, original.Id)
	if reason != "" {
		note += ": " + reason
	}
	return note
}
