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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type transactionRequest struct {
	userId  int64
	txType  models.TransactionType
	amount  decimal.Decimal
	method  string
	details string
}

func parseAndValidateFlags() (*transactionRequest, error) {
	userIdFlag := flag.Int64("user-id", 0, "User id (required)")
	typeFlag := flag.String("type", "", "deposit or withdraw (required)")
	amountFlag := flag.String("amount", "", "Amount in fiat (required)")
	methodFlag := flag.String("method", "UPI", "Payment method, e.g. UPI or USDT")
	detailsFlag := flag.String("details", "", "UTR reference for deposits, payout address for withdrawals (required)")
	flag.Parse()

	if *userIdFlag <= 0 || *typeFlag == "" || *amountFlag == "" || *detailsFlag == "" {
		return nil, fmt.Errorf("all flags are required: --user-id, --type, --amount, --details")
	}

	txType := models.TransactionType(strings.ToLower(*typeFlag))
	if txType != models.TransactionDeposit && txType != models.TransactionWithdraw {
		return nil, fmt.Errorf("invalid type %q, expected deposit or withdraw", *typeFlag)
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	return &transactionRequest{
		userId:  *userIdFlag,
		txType:  txType,
		amount:  amount,
		method:  strings.ToUpper(*methodFlag),
		details: *detailsFlag,
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

	var result *models.RequestResult
	if request.txType == models.TransactionDeposit {
		result, err = services.Exchange.RequestDeposit(ctx, request.userId, request.amount, request.method, request.details)
	} else {
		result, err = services.Exchange.RequestWithdrawal(ctx, request.userId, request.amount, request.method, request.details)
	}
	if err != nil {
		zap.L().Fatal("Failed to file request", zap.Error(err))
	}

	common.PrintHeader(strings.ToUpper(string(request.txType))+" REQUEST", common.DefaultWidth)
	if !result.Success {
		fmt.Printf("Request %s: %s\n", result.Code, result.Error)
		common.PrintSeparator("=", common.DefaultWidth)
		return
	}

	common.PrintField("Transaction", result.TxId)
	common.PrintField("Amount", common.FormatAmount(result.Amount))
	common.PrintField("Method", request.method)
	common.PrintField("Balance", common.FormatAmount(result.NewBalance))
	common.PrintField("Status", "pending admin review")
	common.PrintSeparator("=", common.DefaultWidth)
}
