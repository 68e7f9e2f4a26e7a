/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"referral-ledger-go/internal/api"
	"referral-ledger-go/internal/common"
	"referral-ledger-go/internal/config"
	"referral-ledger-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers        int
	totalBalances     int
	usersWithBalances int
}

func formatTransactionId(txId string) string {
	if txId == "" {
		return "none"
	}
	if len(txId) > 8 {
		return txId[:8] + "..."
	}
	return txId
}

func printBalance(balance models.RestaurantBalance, names map[string]string, isLast bool) {
	name := names[balance.RestaurantId]
	if name == "" {
		name = balance.RestaurantId
	}
	fmt.Printf("%s %-30s: %12s VC\n",
		common.BoxPrefix(isLast),
		name,
		common.FormatAmount(balance.Balance))
}

func printHistory(records []models.LedgerRecord, isLast bool) {
	prefix := common.BoxDetailPrefix(isLast)
	for _, r := range records {
		fmt.Printf("%s  %s %-8s %10s -> %10s (tx: %s)\n",
			prefix,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Type,
			common.FormatAmount(r.Amount),
			common.FormatAmount(r.BalanceAfter),
			formatTransactionId(r.TransactionId))
	}
}

func printUserHeader(user common.UserInfo, balanceCount int) {
	status := ""
	if user.IsDeleted {
		status = " [anonymized]"
	}
	fmt.Printf("\n┌─ User: %s (%s)%s\n", user.Name, user.Email, status)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Referral code: %s\n", user.ReferralCode)
	fmt.Printf("│  Restaurants: %d\n", balanceCount)
	common.PrintBoxSeparator(78)
}

func processUser(ctx context.Context, user common.UserInfo, svc *api.LedgerService, names map[string]string, history int) (int, error) {
	balances, err := svc.GetUserBalances(ctx, user.Id)
	if err != nil {
		return 0, fmt.Errorf("failed to get balances: %w", err)
	}

	if len(balances) == 0 {
		return 0, nil
	}

	printUserHeader(user, len(balances))
	for i, balance := range balances {
		isLast := i == len(balances)-1
		printBalance(balance, names, isLast)
		if history <= 0 {
			continue
		}
		records, err := svc.GetLedgerHistory(ctx, user.Id, balance.RestaurantId, history, 0)
		if err != nil {
			return 0, fmt.Errorf("failed to get history: %w", err)
		}
		printHistory(records, isLast)
	}

	return len(balances), nil
}

func processUsersAndGenerateReport(ctx context.Context, users []common.UserInfo, svc *api.LedgerService, names map[string]string, history int, logger *zap.Logger) balanceStats {
	stats := balanceStats{}

	for _, user := range users {
		stats.totalUsers++

		balanceCount, err := processUser(ctx, user, svc, names, history)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
			continue
		}

		if balanceCount > 0 {
			stats.usersWithBalances++
			stats.totalBalances += balanceCount
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger(os.Getenv("LOG_LEVEL"))
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	historyFlag := flag.Int("history", 0, "Show the latest N ledger entries per restaurant")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	users, err := common.InitializeUsers(ctx, services.Store, *emailFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	restaurants, err := services.Engine.ListRestaurants(ctx)
	if err != nil {
		logger.Fatal("Failed to list restaurants", zap.Error(err))
	}
	names := make(map[string]string, len(restaurants))
	for _, r := range restaurants {
		names[r.Id] = r.Name
	}

	common.PrintHeader("VIRTUAL CURRENCY BALANCE REPORT", common.DefaultWidth)

	stats := processUsersAndGenerateReport(ctx, users, services.Ledger, names, *historyFlag, logger)

	summary := fmt.Sprintf("SUMMARY: %d users with balances (%d total balances across %d users queried)",
		stats.usersWithBalances, stats.totalBalances, stats.totalUsers)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_balances", stats.usersWithBalances),
		zap.Int("total_balances", stats.totalBalances))
}
