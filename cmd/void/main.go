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
	"errors"
	"flag"
	"fmt"
	"os"

	"referral-ledger-go/internal/common"
	"referral-ledger-go/internal/config"
	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger(os.Getenv("LOG_LEVEL"))
	defer loggerCleanup()

	txFlag := flag.String("tx", "", "Transaction id to void (required)")
	reasonFlag := flag.String("reason", "", "Reason recorded on the transaction and its reversals")
	actorFlag := flag.String("actor", "", "Id of the staff or admin performing the void")
	flag.Parse()

	if *txFlag == "" {
		zap.L().Fatal("Flag is required: --tx")
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *actorFlag != "" {
		ctx = models.WithActor(ctx, *actorFlag)
	}

	result, err := services.Engine.VoidTransaction(ctx, *txFlag, *reasonFlag)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTransactionNotFound):
			zap.L().Fatal("Transaction not found", zap.String("transaction_id", *txFlag))
		case errors.Is(err, store.ErrAlreadyVoided):
			zap.L().Fatal("Transaction already voided", zap.String("transaction_id", *txFlag))
		case store.IsRetryable(err):
			zap.L().Fatal("Accounts busy, retry shortly", zap.Error(err))
		default:
			zap.L().Fatal("Failed to void transaction", zap.Error(err))
		}
	}

	fmt.Println()
	common.PrintHeader("TRANSACTION VOIDED", common.DefaultWidth)
	fmt.Printf("ID:       %s\n", result.Transaction.Id)
	fmt.Printf("Customer: %s\n", result.Transaction.CustomerId)
	fmt.Printf("Bill:     %s\n", common.FormatAmount(result.Transaction.BillAmount))
	fmt.Printf("Redeemed: %s\n", common.FormatAmount(result.Transaction.VirtualCurrencyRedeemed))
	common.PrintBoxSeparator(78)
	for i, r := range result.Reversals {
		fmt.Printf("%s%-36s %10s\n", common.BoxPrefix(i == len(result.Reversals)-1), r.UserId, common.FormatAmount(r.Amount))
	}
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	zap.L().Info("Void completed",
		zap.String("transaction_id", result.Transaction.Id),
		zap.Int("reversals", len(result.Reversals)))
}
