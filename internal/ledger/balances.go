package ledger

import (
	"context"
	"fmt"

	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// GetBalance returns the non-expired VC balance of a user at a restaurant.
func (s *Service) GetBalance(ctx context.Context, userId, restaurantId string) (decimal.Decimal, error) {
	if _, err := s.store.GetUserById(ctx, userId); err != nil {
		return decimal.Zero, err
	}
	if _, err := s.store.GetRestaurantById(ctx, restaurantId); err != nil {
		return decimal.Zero, err
	}
	return s.store.GetBalance(ctx, userId, restaurantId, s.clock())
}

// GetAllBalances returns every restaurant where the user currently holds VC.
func (s *Service) GetAllBalances(ctx context.Context, userId string) ([]models.AccountBalance, error) {
	if _, err := s.store.GetUserById(ctx, userId); err != nil {
		return nil, err
	}

	accounts, err := s.store.GetAccountsByUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var balances []models.AccountBalance
	for _, account := range accounts {
		balance, err := s.store.GetBalance(ctx, account.UserId, account.RestaurantId, now)
		if err != nil {
			return nil, fmt.Errorf("balance for restaurant %s: %w", account.RestaurantId, err)
		}
		if balance.IsZero() {
			continue
		}
		balances = append(balances, models.AccountBalance{
			UserId:       account.UserId,
			RestaurantId: account.RestaurantId,
			Balance:      balance,
		})
	}
	return balances, nil
}

// ListLedgerEntries pages through an account's history, newest first.
func (s *Service) ListLedgerEntries(ctx context.Context, userId, restaurantId string, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	return s.store.GetLedgerEntries(ctx, store.LedgerQuery{
		UserId:       userId,
		RestaurantId: restaurantId,
		Limit:        limit,
		Offset:       offset,
	})
}
