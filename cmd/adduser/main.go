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

	"token-exchange-go/internal/common"
	"token-exchange-go/internal/config"

	"go.uber.org/zap"
)

func validateUserId(userId int64) error {
	if userId <= 0 {
		return fmt.Errorf("user id must be a positive integer, got %d", userId)
	}
	return nil
}

func main() {
	ctx := context.Background()

	// Parse command line flags
	userIdFlag := flag.Int64("user-id", 0, "Chat user id (required)")
	referrerFlag := flag.Int64("referrer", 0, "User id of the referrer (optional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = common.InitializeLogger(false)
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Server.LogDevelopment)
	defer loggerCleanup()

	if err := validateUserId(*userIdFlag); err != nil {
		zap.L().Fatal("Invalid user id", zap.Error(err))
	}

	var referrerId *int64
	if *referrerFlag != 0 {
		if err := validateUserId(*referrerFlag); err != nil {
			zap.L().Fatal("Invalid referrer id", zap.Error(err))
		}
		referrerId = referrerFlag
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	result, err := services.Exchange.GetOrCreateAccount(ctx, *userIdFlag, referrerId)
	if err != nil {
		zap.L().Fatal("Failed to create account", zap.Error(err))
	}
	if !result.Success {
		zap.L().Fatal("Account creation failed",
			zap.String("code", result.Code),
			zap.String("error", result.Error))
	}

	account := result.Account

	fmt.Println()
	if result.Created {
		common.PrintHeader("ACCOUNT CREATED", common.DefaultWidth)
	} else {
		common.PrintHeader("ACCOUNT ALREADY EXISTS", common.DefaultWidth)
	}
	common.PrintField("User ID", account.UserId)
	common.PrintField("Balance", common.FormatAmount(account.Balance))
	if account.ReferrerId != nil {
		common.PrintField("Referrer", *account.ReferrerId)
	} else {
		common.PrintField("Referrer", "none")
	}
	common.PrintField("Referrals", account.ReferralCount)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	if result.Created && referrerId != nil && account.ReferrerId == nil {
		fmt.Println("Referrer was not linked (unknown user or self-referral)")
	}
}
