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
	"referral-ledger-go/internal/ledger"
	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"go.uber.org/zap"
)

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger(os.Getenv("LOG_LEVEL"))
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "User's full name (required)")
	emailFlag := flag.String("email", "", "User's email address (required)")
	roleFlag := flag.String("role", string(models.RoleCustomer), "User role: customer, staff, owner or admin")
	codeFlag := flag.String("referral-code", "", "Referral code of the user who referred this one (optional)")
	restaurantFlag := flag.String("restaurant", "", "Restaurant id the referral applies to (required with --referral-code)")
	flag.Parse()

	if *nameFlag == "" || *emailFlag == "" {
		zap.L().Fatal("Both flags are required: --name and --email")
	}
	if err := validateName(*nameFlag); err != nil {
		zap.L().Fatal("Invalid name", zap.Error(err))
	}
	if *codeFlag != "" && *restaurantFlag == "" {
		zap.L().Fatal("--restaurant is required when --referral-code is set")
	}

	zap.L().Info("Starting user creation process",
		zap.String("name", *nameFlag),
		zap.String("email", *emailFlag))

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, err := services.Engine.CreateUser(ctx, ledger.CreateUserParams{
		Email:    *emailFlag,
		FullName: *nameFlag,
		Role:     models.Role(*roleFlag),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			zap.L().Fatal("User already exists with this email", zap.String("email", *emailFlag))
		}
		zap.L().Fatal("Failed to create user", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("ID:            %s\n", user.Id)
	fmt.Printf("Name:          %s\n", user.FullName)
	fmt.Printf("Email:         %s\n", user.Email)
	fmt.Printf("Role:          %s\n", user.Role)
	fmt.Printf("Referral code: %s\n", user.ReferralCode)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	zap.L().Info("User created successfully", zap.String("id", user.Id))

	if *codeFlag == "" {
		return
	}

	levels, err := services.Engine.CreateReferralChain(ctx, user.Id, *codeFlag, *restaurantFlag)
	if err != nil {
		zap.L().Error("User created but referral chain failed",
			zap.String("user_id", user.Id),
			zap.String("restaurant_id", *restaurantFlag),
			zap.Error(err))
		fmt.Println("User created but the referral could not be recorded")
		os.Exit(1)
	}

	fmt.Printf("Referral chain recorded: %d upline level(s) at restaurant %s\n", levels, *restaurantFlag)
	zap.L().Info("Referral chain created",
		zap.String("user_id", user.Id),
		zap.String("restaurant_id", *restaurantFlag),
		zap.Int("levels", levels))
}
