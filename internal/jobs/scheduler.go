// Package jobs runs the ledger's background maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"referral-ledger-go/internal/ledger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reconciler is satisfied by *ledger.Service.
type Reconciler interface {
	Reconcile(ctx context.Context) (*ledger.ReconcileReport, error)
}

type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	schedule   string
}

// NewScheduler rejects an unparsable schedule. An empty schedule disables
// the job.
func NewScheduler(reconciler Reconciler, schedule string) (*Scheduler, error) {
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
		}
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Scheduler{
		cron:       c,
		reconciler: reconciler,
		schedule:   schedule,
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.schedule == "" {
		zap.L().Info("Reconciliation job disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunReconcile(ctx) }); err != nil {
		return fmt.Errorf("unable to schedule reconciliation: %w", err)
	}

	s.cron.Start()
	zap.L().Info("Job scheduler started", zap.String("reconcile_schedule", s.schedule))
	return nil
}

// RunReconcile runs one reconciliation pass and logs the findings.
func (s *Scheduler) RunReconcile(ctx context.Context) *ledger.ReconcileReport {
	start := time.Now()
	report, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		zap.L().Error("Reconciliation failed", zap.Error(err))
		return nil
	}

	fields := []zap.Field{
		zap.Int("accounts_checked", report.AccountsChecked),
		zap.Int("voids_checked", report.VoidsChecked),
		zap.Duration("duration", time.Since(start)),
	}
	for _, b := range report.VoidDebts {
		zap.L().Warn("Balance below zero after void",
			zap.String("user_id", b.UserId),
			zap.String("restaurant_id", b.RestaurantId),
			zap.String("balance", b.Balance.String()))
	}
	if report.Clean() {
		zap.L().Info("Reconciliation clean", fields...)
		return report
	}

	for _, b := range report.NegativeBalances {
		zap.L().Error("Negative balance detected",
			zap.String("user_id", b.UserId),
			zap.String("restaurant_id", b.RestaurantId),
			zap.String("balance", b.Balance.String()))
	}
	for _, v := range report.UnbalancedVoids {
		zap.L().Error("Void does not net to zero",
			zap.String("transaction_id", v.TransactionId),
			zap.String("user_id", v.UserId),
			zap.String("restaurant_id", v.RestaurantId),
			zap.String("net", v.Net.String()))
	}
	zap.L().Warn("Reconciliation found discrepancies", fields...)
	return report
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.L().Info("Job scheduler stopped")
}
