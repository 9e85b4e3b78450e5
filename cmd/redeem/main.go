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

func main() {
	ctx := context.Background()

	userIdFlag := flag.Int64("user-id", 0, "User id (required)")
	codeFlag := flag.String("code", "", "Gift code (required)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = common.InitializeLogger(false)
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Server.LogDevelopment)
	defer loggerCleanup()

	if *userIdFlag <= 0 || *codeFlag == "" {
		zap.L().Fatal("Both flags are required: --user-id and --code")
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	result, err := services.Exchange.RedeemGiftCode(ctx, *userIdFlag, *codeFlag)
	if err != nil {
		zap.L().Fatal("Failed to redeem gift code", zap.Error(err))
	}

	if !result.Success {
		fmt.Printf("Gift code not redeemed (%s): %s\n", result.Code, result.Error)
		return
	}
	fmt.Printf("✓ Gift code redeemed: %s credited to user %d\n", common.FormatAmount(result.Amount), *userIdFlag)
}
