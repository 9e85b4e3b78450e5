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
	"strings"

	"token-exchange-go/internal/common"
	"token-exchange-go/internal/config"
	"token-exchange-go/internal/models"

	"go.uber.org/zap"
)

type tradeRequest struct {
	userId    int64
	symbol    string
	quantity  int64
	direction models.TradeDirection
	quoteOnly bool
}

func parseAndValidateFlags() (*tradeRequest, error) {
	userIdFlag := flag.Int64("user-id", 0, "User id (required)")
	symbolFlag := flag.String("symbol", "", "Token symbol, e.g. GGC (required)")
	sideFlag := flag.String("side", "", "buy or sell (required)")
	quantityFlag := flag.Int64("qty", 0, "Number of units (required unless --quote)")
	quoteFlag := flag.Bool("quote", false, "Only show the live price and maximum quantity")
	flag.Parse()

	if *userIdFlag <= 0 || *symbolFlag == "" || *sideFlag == "" {
		return nil, fmt.Errorf("flags are required: --user-id, --symbol, --side")
	}

	direction, ok := models.ParseTradeDirection(strings.ToLower(*sideFlag))
	if !ok {
		return nil, fmt.Errorf("invalid side %q, expected buy or sell", *sideFlag)
	}

	if !*quoteFlag && *quantityFlag <= 0 {
		return nil, fmt.Errorf("--qty must be a positive integer")
	}

	return &tradeRequest{
		userId:    *userIdFlag,
		symbol:    strings.ToUpper(*symbolFlag),
		quantity:  *quantityFlag,
		direction: direction,
		quoteOnly: *quoteFlag,
	}, nil
}

func main() {
	ctx := context.Background()

	request, err := parseAndValidateFlags()
	if err != nil {
		_, _ = common.InitializeLogger(false)
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = common.InitializeLogger(false)
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Server.LogDevelopment)
	defer loggerCleanup()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	staged, err := services.Exchange.StageTrade(ctx, request.userId, request.symbol, request.direction)
	if err != nil {
		zap.L().Fatal("Failed to quote trade", zap.Error(err))
	}
	if !staged.Success {
		zap.L().Fatal("Trade quote rejected",
			zap.String("code", staged.Code),
			zap.String("error", staged.Error))
	}

	quote := staged.Quote
	common.PrintHeader(fmt.Sprintf("%s %s", strings.ToUpper(string(quote.Direction)), quote.Symbol), common.DefaultWidth)
	common.PrintField("Live price", common.FormatAmount(quote.Price))
	common.PrintField("Balance", common.FormatAmount(quote.Balance))
	common.PrintField("Owned", quote.Owned)
	common.PrintField("Max quantity", quote.MaxQuantity)

	if request.quoteOnly {
		services.Exchange.CancelTrade(request.userId)
		common.PrintSeparator("=", common.DefaultWidth)
		return
	}

	result, err := services.Exchange.ConfirmTrade(ctx, request.userId, request.quantity)
	if err != nil {
		zap.L().Fatal("Failed to execute trade", zap.Error(err))
	}

	common.PrintSeparatorNewline("-", common.DefaultWidth)
	if !result.Success {
		fmt.Printf("Trade %s: %s\n", result.Code, result.Error)
		common.PrintSeparator("=", common.DefaultWidth)
		zap.L().Warn("Trade not executed",
			zap.Int64("user_id", request.userId),
			zap.String("code", result.Code))
		return
	}

	fmt.Printf("Executed:     %d x %s @ %s\n", result.Quantity, result.Symbol, common.FormatAmount(result.Price))
	common.PrintField("Total", common.FormatAmount(result.Total))
	common.PrintField("New balance", common.FormatAmount(result.NewBalance))
	common.PrintSeparator("=", common.DefaultWidth)
}
