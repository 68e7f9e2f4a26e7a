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

type SettlementState string

const (
	StateInitiated SettlementState = "initiated"
	StateValidated SettlementState = "validated"
	StateCommitted SettlementState = "committed"
	StateRejected  SettlementState = "rejected"
)

// SettleRequest is one checkout as entered by staff.
type SettleRequest struct {
	CustomerId   string `validate:"required"`
	BranchId     string `validate:"required"`
	StaffId      string
	BillAmount   decimal.Decimal
	RedeemAmount decimal.Decimal
}

// SettlementResult describes a committed checkout.
type SettlementResult struct {
	Transaction        models.Transaction `json:"transaction"`
	GuaranteedDiscount decimal.Decimal    `json:"guaranteed_discount"`
	Redeemed           decimal.Decimal    `json:"redeemed"`
	NetPayable         decimal.Decimal    `json:"net_payable"`
	Rewards            []RewardPosting    `json:"rewards"`
	SkippedLevels      []int              `json:"skipped_levels,omitempty"`
	State              SettlementState    `json:"state"`
}

// SettleTransaction validates a redemption against the customer's balance,
// applies the first-visit discount, records the checkout and pays referral
// rewards, all in one database transaction. The customer pair and every
// ancestor pair stay locked until it commits or aborts.
func (s *Service) SettleTransaction(ctx context.Context, req SettleRequest) (*SettlementResult, error) {
	state := StateInitiated
	result, err := s.settle(ctx, req, &state)
	if err != nil {
		reached := state
		state = StateRejected
		zap.L().Info("Settlement rejected",
			zap.String("customer_id", req.CustomerId),
			zap.String("branch_id", req.BranchId),
			zap.String("state", string(state)),
			zap.String("reached_state", string(reached)),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (s *Service) settle(ctx context.Context, req SettleRequest, state *SettlementState) (*SettlementResult, error) {
	if err := validateParams(req); err != nil {
		return nil, err
	}
	if !req.BillAmount.IsPositive() || !validMoney(req.BillAmount) {
		return nil, fmt.Errorf("%w: bill amount %s", store.ErrInvalidAmount, req.BillAmount.String())
	}
	if req.RedeemAmount.IsNegative() || !validMoney(req.RedeemAmount) {
		return nil, fmt.Errorf("%w: redeem amount %s", store.ErrInvalidAmount, req.RedeemAmount.String())
	}

	branch, err := s.store.GetBranchById(ctx, req.BranchId)
	if err != nil {
		return nil, err
	}
	restaurant, err := s.store.GetRestaurantById(ctx, branch.RestaurantId)
	if err != nil {
		return nil, err
	}
	customer, err := s.store.GetUserById(ctx, req.CustomerId)
	if err != nil {
		return nil, err
	}
	if customer.IsDeleted {
		return nil, store.ErrUserDeleted
	}

	edges, err := s.store.GetReferralEdges(ctx, customer.Id, restaurant.Id)
	if err != nil {
		return nil, err
	}

	keys := []pairKey{{userId: customer.Id, restaurantId: restaurant.Id}}
	for _, edge := range edges {
		keys = append(keys, pairKey{userId: edge.UplineId, restaurantId: restaurant.Id})
	}
	release, err := s.locks.acquire(ctx, keys)
	if err != nil {
		return nil, err
	}
	defer release()

	var result *SettlementResult
	err = s.store.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		for _, k := range sortKeys(keys) {
			if err := repo.LockAccount(ctx, k.userId, k.restaurantId); err != nil {
				return err
			}
		}

		// The chain may have been created between the read above and the lock.
		current, err := repo.GetReferralEdges(ctx, customer.Id, restaurant.Id)
		if err != nil {
			return err
		}
		if !sameEdges(edges, current) {
			return fmt.Errorf("%w: referral chain changed during checkout", store.ErrBusy)
		}

		now := s.clock()
		balance, err := repo.GetBalance(ctx, customer.Id, restaurant.Id, now)
		if err != nil {
			return err
		}
		if req.RedeemAmount.GreaterThan(balance) {
			return &store.InsufficientBalanceError{Available: balance, Requested: req.RedeemAmount}
		}
		redeemCap := percentOf(req.BillAmount, restaurant.MaxRedemptionPercent)
		if req.RedeemAmount.GreaterThan(redeemCap) {
			return &store.RedemptionCapError{Cap: redeemCap, Requested: req.RedeemAmount}
		}

		completed, err := repo.CountCompletedTransactions(ctx, customer.Id, restaurant.Id)
		if err != nil {
			return err
		}
		isFirst := completed == 0
		discount := decimal.Zero
		if isFirst {
			discount = percentOf(req.BillAmount, restaurant.GuaranteedDiscountPercent)
		}
		*state = StateValidated

		tx := models.Transaction{
			Id:                       uuid.New().String(),
			CustomerId:               customer.Id,
			BranchId:                 branch.Id,
			RestaurantId:             restaurant.Id,
			StaffId:                  req.StaffId,
			BillAmount:               req.BillAmount,
			GuaranteedDiscountAmount: discount,
			VirtualCurrencyRedeemed:  req.RedeemAmount,
			IsFirstTransaction:       isFirst,
			Status:                   models.StatusCompleted,
			CreatedAt:                now,
		}
		if err := repo.InsertTransaction(ctx, tx); err != nil {
			return err
		}

		if req.RedeemAmount.IsPositive() {
			if err := s.postRedeem(ctx, repo, tx, balance, now); err != nil {
				return err
			}
		}

		rewards, skipped, err := s.distributeRewards(ctx, repo, tx, restaurant, edges, now)
		if err != nil {
			return err
		}

		net := req.BillAmount.Sub(discount).Sub(req.RedeemAmount)
		if net.IsNegative() {
			net = decimal.Zero
		}
		result = &SettlementResult{
			Transaction:        tx,
			GuaranteedDiscount: discount,
			Redeemed:           req.RedeemAmount,
			NetPayable:         net,
			Rewards:            rewards,
			SkippedLevels:      skipped,
			State:              StateCommitted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	*state = StateCommitted

	zap.L().Info("Transaction settled",
		zap.String("transaction_id", result.Transaction.Id),
		zap.String("customer_id", customer.Id),
		zap.String("restaurant_id", restaurant.Id),
		zap.String("bill_amount", req.BillAmount.String()),
		zap.String("discount", result.GuaranteedDiscount.String()),
		zap.String("redeemed", req.RedeemAmount.String()),
		zap.Int("rewards", len(result.Rewards)))
	return result, nil
}

// postRedeem spends the redemption from the customer's lots, soonest expiry
// first. Each lot used gets its own redeem entry carrying the lot's expiry,
// so the spent part leaves the balance together with the earn it came from.
func (s *Service) postRedeem(ctx context.Context, repo store.Repository, tx models.Transaction, balance decimal.Decimal, now time.Time) error {
	entries, err := repo.GetActiveEntries(ctx, tx.CustomerId, tx.RestaurantId, now)
	if err != nil {
		return err
	}
	slices, short := allocateRedemption(spendableLots(entries), tx.VirtualCurrencyRedeemed)
	if short.IsPositive() {
		return &store.InsufficientBalanceError{
			Available: tx.VirtualCurrencyRedeemed.Sub(short),
			Requested: tx.VirtualCurrencyRedeemed,
		}
	}

	running := balance
	for _, slice := range slices {
		running = running.Sub(slice.amount)
		err := repo.InsertLedgerEntry(ctx, models.LedgerEntry{
			Id:              uuid.New().String(),
			UserId:          tx.CustomerId,
			RestaurantId:    tx.RestaurantId,
			TransactionType: models.EntryRedeem,
			Amount:          slice.amount.Neg(),
			BalanceAfter:    running,
			TransactionId:   tx.Id,
			ExpiresAt:       slice.expiresAt,
			CreatedAt:       now,
			Notes:           "redeemed at checkout",
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func sameEdges(a, b []models.ReferralEdge) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].UplineId != b[i].UplineId || a[i].UplineLevel != b[i].UplineLevel {
			return false
		}
	}
	return true
}

// GetTransaction returns a settled transaction.
func (s *Service) GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error) {
	return s.store.GetTransactionById(ctx, transactionId)
}
