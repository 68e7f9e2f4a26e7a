package ledger

import (
	"context"

	"referral-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UnbalancedVoid is a voided transaction whose entries do not cancel out for
// one account.
type UnbalancedVoid struct {
	TransactionId string          `json:"transaction_id"`
	UserId        string          `json:"user_id"`
	RestaurantId  string          `json:"restaurant_id"`
	Net           decimal.Decimal `json:"net"`
}

// ReconcileReport lists what a reconciliation run found. VoidDebts are
// accounts pushed below zero only by reversing earns that had already been
// spent; they are expected and settle themselves as the reversals expire.
// NegativeBalances are accounts that went below zero any other way.
type ReconcileReport struct {
	AccountsChecked  int                     `json:"accounts_checked"`
	VoidsChecked     int                     `json:"voids_checked"`
	NegativeBalances []models.AccountBalance `json:"negative_balances"`
	VoidDebts        []models.AccountBalance `json:"void_debts"`
	UnbalancedVoids  []UnbalancedVoid        `json:"unbalanced_voids"`
}

// Clean reports whether the run found anything a correct ledger cannot reach.
// Void debts do not count.
func (r *ReconcileReport) Clean() bool {
	return len(r.NegativeBalances) == 0 && len(r.UnbalancedVoids) == 0
}

// Reconcile scans every account and every voided transaction for states a
// correct ledger can never reach. It only reads.
func (s *Service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	now := s.clock()

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		entries, err := s.store.GetActiveEntries(ctx, account.UserId, account.RestaurantId, now)
		if err != nil {
			return nil, err
		}
		report.AccountsChecked++

		balance, reversedEarns := decimal.Zero, decimal.Zero
		for _, e := range entries {
			balance = balance.Add(e.Amount)
			if e.TransactionType == models.EntryReverse && e.Amount.IsNegative() {
				reversedEarns = reversedEarns.Add(e.Amount)
			}
		}
		if !balance.IsNegative() {
			continue
		}
		negative := models.AccountBalance{
			UserId:       account.UserId,
			RestaurantId: account.RestaurantId,
			Balance:      balance,
		}
		if balance.Sub(reversedEarns).IsNegative() {
			report.NegativeBalances = append(report.NegativeBalances, negative)
		} else {
			report.VoidDebts = append(report.VoidDebts, negative)
		}
	}

	voided, err := s.store.ListVoidedTransactionIds(ctx)
	if err != nil {
		return nil, err
	}
	for _, transactionId := range voided {
		entries, err := s.store.GetLedgerEntriesByTransaction(ctx, transactionId)
		if err != nil {
			return nil, err
		}
		report.VoidsChecked++

		net := make(map[pairKey]decimal.Decimal)
		var order []pairKey
		for _, e := range entries {
			k := pairKey{userId: e.UserId, restaurantId: e.RestaurantId}
			if _, ok := net[k]; !ok {
				order = append(order, k)
			}
			net[k] = net[k].Add(e.Amount)
		}
		for _, k := range order {
			if !net[k].IsZero() {
				report.UnbalancedVoids = append(report.UnbalancedVoids, UnbalancedVoid{
					TransactionId: transactionId,
					UserId:        k.userId,
					RestaurantId:  k.restaurantId,
					Net:           net[k],
				})
			}
		}
	}

	if report.Clean() {
		zap.L().Info("Ledger reconciliation clean",
			zap.Int("accounts", report.AccountsChecked),
			zap.Int("voids", report.VoidsChecked),
			zap.Int("void_debts", len(report.VoidDebts)))
	} else {
		zap.L().Warn("Ledger reconciliation found discrepancies",
			zap.Int("accounts", report.AccountsChecked),
			zap.Int("negative_balances", len(report.NegativeBalances)),
			zap.Int("void_debts", len(report.VoidDebts)),
			zap.Int("unbalanced_voids", len(report.UnbalancedVoids)))
	}
	return report, nil
}
