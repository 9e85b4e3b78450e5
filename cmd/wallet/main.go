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

	"token-exchange-go/internal/api"
	"token-exchange-go/internal/common"
	"token-exchange-go/internal/config"
	"token-exchange-go/internal/models"

	"go.uber.org/zap"
)

type walletStats struct {
	totalAccounts   int
	accountsHolding int
	pendingRequests int
}

func printHolding(holding models.HoldingView, isLast bool) {
	fmt.Printf("%s %-5s x %-8d @ %10s = %12s (invested: %s)\n",
		common.BoxPrefix(isLast),
		holding.Symbol,
		holding.Quantity,
		common.FormatAmount(holding.Price),
		common.FormatAmount(holding.Value),
		common.FormatAmount(holding.Invested))
}

func printPending(tx models.Transaction, isLast bool) {
	fmt.Printf("%s %s %-8s %12s via %s (%s)\n",
		common.BoxPrefix(isLast),
		tx.TxId,
		tx.Type,
		common.FormatAmount(tx.Amount),
		tx.Method,
		common.FormatTimestamp(tx.CreatedAt))
}

func printWallet(account common.AccountInfo, wallet *models.WalletSnapshot) {
	banned := ""
	if account.IsBanned {
		banned = " [BANNED]"
	}
	fmt.Printf("\n┌─ User: %d%s\n", account.UserId, banned)
	fmt.Printf("│  Balance:     %s\n", common.FormatAmount(wallet.Balance))
	fmt.Printf("│  Asset value: %s\n", common.FormatAmount(wallet.AssetValue))
	fmt.Printf("│  Net worth:   %s\n", common.FormatAmount(wallet.NetWorth))
	fmt.Printf("│  Referrals:   %d\n", account.ReferralCount)
	common.PrintBoxSeparator()

	for i, holding := range wallet.Holdings {
		printHolding(holding, i == len(wallet.Holdings)-1 && len(wallet.Pending) == 0)
	}
	for i, tx := range wallet.Pending {
		printPending(tx, i == len(wallet.Pending)-1)
	}
}

func processAccountsAndGenerateReport(ctx context.Context, accounts []common.AccountInfo, exchange *api.ExchangeService, logger *zap.Logger) walletStats {
	stats := walletStats{}

	for _, account := range accounts {
		stats.totalAccounts++

		wallet, err := exchange.GetWallet(ctx, account.UserId)
		if err != nil {
			logger.Error("Failed to get wallet",
				zap.Int64("user_id", account.UserId),
				zap.Error(err))
			continue
		}

		printWallet(account, wallet)

		if len(wallet.Holdings) > 0 {
			stats.accountsHolding++
		}
		stats.pendingRequests += len(wallet.Pending)
	}

	return stats
}

func main() {
	ctx := context.Background()

	// Parse command line flags
	userIdFlag := flag.Int64("user-id", 0, "Filter by specific user id (optional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = common.InitializeLogger(false)
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	logger, loggerCleanup := common.InitializeLogger(cfg.Server.LogDevelopment)
	defer loggerCleanup()

	logger.Info("Starting wallet query")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	accounts, err := common.InitializeAccounts(ctx, services.DbService, *userIdFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize accounts", zap.Error(err))
	}

	common.PrintHeader("WALLET REPORT", common.DefaultWidth)

	stats := processAccountsAndGenerateReport(ctx, accounts, services.Exchange, logger)

	summary := fmt.Sprintf("SUMMARY: %d accounts, %d holding tokens, %d pending requests",
		stats.totalAccounts, stats.accountsHolding, stats.pendingRequests)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Wallet query completed",
		zap.Int("accounts_queried", stats.totalAccounts),
		zap.Int("accounts_holding", stats.accountsHolding),
		zap.Int("pending_requests", stats.pendingRequests))
}
