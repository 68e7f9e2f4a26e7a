package ledger

import (
	"context"
	"fmt"
	"time"

	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RewardPosting is one earn entry produced for an ancestor.
type RewardPosting struct {
	EntryId  string          `json:"entry_id"`
	UplineId string          `json:"upline_id"`
	Level    int             `json:"level"`
	Amount   decimal.Decimal `json:"amount"`
}

// distributeRewards posts one earn entry per live ancestor of the customer.
// Every pair touched here must already be locked by the caller.
func (s *Service) distributeRewards(
	ctx context.Context,
	repo store.Repository,
	tx models.Transaction,
	restaurant *models.Restaurant,
	edges []models.ReferralEdge,
	now time.Time,
) (posted []RewardPosting, skipped []int, err error) {
	reward := percentOf(tx.BillAmount, restaurant.UplineRewardPercent)
	if !reward.IsPositive() {
		return nil, nil, nil
	}

	expiresAt := now.AddDate(0, 0, restaurant.VirtualCurrencyExpiryDays)

	for _, edge := range edges {
		ancestor, err := repo.GetUserById(ctx, edge.UplineId)
		if err != nil {
			return nil, nil, err
		}
		if ancestor.IsDeleted {
			zap.L().Info("Skipping reward for anonymized ancestor",
				zap.String("transaction_id", tx.Id),
				zap.Int("level", edge.UplineLevel))
			skipped = append(skipped, edge.UplineLevel)
			continue
		}

		balance, err := repo.GetBalance(ctx, ancestor.Id, tx.RestaurantId, now)
		if err != nil {
			return nil, nil, err
		}

		entry := models.LedgerEntry{
			Id:              uuid.New().String(),
			UserId:          ancestor.Id,
			RestaurantId:    tx.RestaurantId,
			TransactionType: models.EntryEarn,
			Amount:          reward,
			BalanceAfter:    balance.Add(reward),
			TransactionId:   tx.Id,
			RelatedUserId:   tx.CustomerId,
			UplineLevel:     edge.UplineLevel,
			ExpiresAt:       &expiresAt,
			CreatedAt:       now,
			Notes:           fmt.Sprintf("level %d referral reward", edge.UplineLevel),
		}
		if err := repo.InsertLedgerEntry(ctx, entry); err != nil {
			return nil, nil, err
		}

		posted = append(posted, RewardPosting{
			EntryId:  entry.Id,
			UplineId: ancestor.Id,
			Level:    edge.UplineLevel,
			Amount:   reward,
		})
	}
	return posted, skipped, nil
}
