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
	"strconv"
	"time"

	"token-exchange-go/internal/api"
	"token-exchange-go/internal/common"
	"token-exchange-go/internal/config"
	"token-exchange-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const usage = `usage: admin --operator <id> <command> [args]

commands:
  pending                 list transactions awaiting review
  approve <tx_id>         approve a pending transaction
  reject <tx_id>          reject a pending transaction
  rig <symbol> <price>    set a token price and re-anchor its base
  giftcode <amount>       generate a one-time gift code
  ban <user_id>           ban an account
  unban <user_id>         lift a ban
  roi                     rank tokens by growth over base price
  stats [days]            daily signups and first deposits
  investments             invested fiat and units held per token
`

type command func(ctx context.Context, exchange *api.ExchangeService, args []string) error

var commands = map[string]command{
	"pending":     listPending,
	"approve":     decide(true),
	"reject":      decide(false),
	"rig":         rigPrice,
	"giftcode":    generateGiftCode,
	"ban":         setBanned(true),
	"unban":       setBanned(false),
	"roi":         showROI,
	"stats":       showStats,
	"investments": showInvestments,
}

func requireArgs(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("expected %d argument(s), got %d", n, len(args))
	}
	return nil
}

func listPending(ctx context.Context, exchange *api.ExchangeService, args []string) error {
	pending, err := exchange.GetPendingTransactions(ctx, 50)
	if err != nil {
		return err
	}

	common.PrintHeader(fmt.Sprintf("PENDING TRANSACTIONS (%d)", len(pending)), common.DefaultWidth)
	for i, tx := range pending {
		isLast := i == len(pending)-1
		fmt.Printf("%s %s  user %-12d %-8s %12s  %s\n",
			common.BoxPrefix(isLast), tx.TxId, tx.UserId, tx.Type, common.FormatAmount(tx.Amount), common.FormatTimestamp(tx.CreatedAt))
		fmt.Printf("%s    %s: %s\n", common.BoxDetailPrefix(isLast), tx.Method, tx.Details)
	}
	common.PrintSeparator("=", common.DefaultWidth)
	return nil
}

func decide(approve bool) command {
	return func(ctx context.Context, exchange *api.ExchangeService, args []string) error {
		if err := requireArgs(args, 1); err != nil {
			return err
		}

		var result *models.ApprovalResult
		var err error
		if approve {
			result, err = exchange.ApproveTransaction(ctx, args[0])
		} else {
			result, err = exchange.RejectTransaction(ctx, args[0])
		}
		if err != nil {
			return err
		}
		if !result.Success {
			fmt.Printf("Transaction %s not updated (%s): %s\n", args[0], result.Code, result.Error)
			return nil
		}

		tx := result.Transaction
		fmt.Printf("✓ %s %s for user %d: %s\n", tx.Type, tx.Status, tx.UserId, common.FormatAmount(tx.Amount))
		return nil
	}
}

func rigPrice(ctx context.Context, exchange *api.ExchangeService, args []string) error {
	if err := requireArgs(args, 2); err != nil {
		return err
	}
	price, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid price format: %w", err)
	}

	result, err := exchange.RigPrice(ctx, args[0], price)
	if err != nil {
		return err
	}
	if !result.Success {
		fmt.Printf("Price not changed (%s): %s\n", result.Code, result.Error)
		return nil
	}
	fmt.Printf("✓ %s price set to %s\n", result.Token.Symbol, common.FormatAmount(result.Token.Price))
	return nil
}

func generateGiftCode(ctx context.Context, exchange *api.ExchangeService, args []string) error {
	if err := requireArgs(args, 1); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	result, err := exchange.GenerateGiftCode(ctx, amount)
	if err != nil {
		return err
	}
	if !result.Success {
		fmt.Printf("Gift code not generated (%s): %s\n", result.Code, result.Error)
		return nil
	}
	fmt.Printf("✓ Gift code %s worth %s\n", result.GiftCode.Code, common.FormatAmount(result.GiftCode.Amount))
	return nil
}

func setBanned(banned bool) command {
	return func(ctx context.Context, exchange *api.ExchangeService, args []string) error {
		if err := requireArgs(args, 1); err != nil {
			return err
		}
		userId, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}

		result, err := exchange.SetBanned(ctx, userId, banned)
		if err != nil {
			return err
		}
		if !result.Success {
			fmt.Printf("Ban flag not changed (%s): %s\n", result.Code, result.Error)
			return nil
		}
		fmt.Printf("✓ User %d banned: %t\n", userId, banned)
		return nil
	}
}

func showROI(ctx context.Context, exchange *api.ExchangeService, args []string) error {
	entries := exchange.GetROI(ctx)

	common.PrintHeader("TOKEN ROI", common.DefaultWidth)
	for i, entry := range entries {
		fmt.Printf("%s %-5s %-12s %10s -> %10s  %8s\n",
			common.BoxPrefix(i == len(entries)-1),
			entry.Symbol,
			entry.Name,
			common.FormatAmount(entry.BasePrice),
			common.FormatAmount(entry.Price),
			common.FormatPercent(entry.ROI))
	}
	common.PrintSeparator("=", common.DefaultWidth)
	return nil
}

func showStats(ctx context.Context, exchange *api.ExchangeService, args []string) error {
	days := 7
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid number of days: %s", args[0])
		}
		days = n
	}

	today, err := exchange.GetDailyStats(ctx, time.Now())
	if err != nil {
		return err
	}
	recent, err := exchange.GetRecentDailyStats(ctx, days)
	if err != nil {
		return err
	}

	common.PrintHeader("DAILY STATS", common.DefaultWidth)
	fmt.Printf("Today (%s): %d new users, %d first deposits\n", today.Date, today.NewUsers, today.FirstDeposits)
	common.PrintBoxSeparator()
	for i, stat := range recent {
		fmt.Printf("%s %s  new users: %-6d first deposits: %d\n",
			common.BoxPrefix(i == len(recent)-1), stat.Date, stat.NewUsers, stat.FirstDeposits)
	}
	common.PrintSeparator("=", common.DefaultWidth)
	return nil
}

func showInvestments(ctx context.Context, exchange *api.ExchangeService, args []string) error {
	stats, err := exchange.GetInvestmentStats(ctx)
	if err != nil {
		return err
	}

	common.PrintHeader("INVESTMENTS", common.DefaultWidth)
	for i, stat := range stats {
		fmt.Printf("%s %-5s invested: %14s  units: %-10d holders: %d\n",
			common.BoxPrefix(i == len(stats)-1), stat.Symbol, common.FormatAmount(stat.TotalAmount), stat.Units, stat.Holders)
	}
	common.PrintSeparator("=", common.DefaultWidth)
	return nil
}

func main() {
	ctx := context.Background()

	operatorFlag := flag.Int64("operator", 0, "Operator user id, must match ADMIN_ID (required)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = common.InitializeLogger(false)
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Server.LogDevelopment)
	defer loggerCleanup()

	if cfg.Server.AdminId == 0 || *operatorFlag != cfg.Server.AdminId {
		zap.L().Fatal("Operator is not the configured admin", zap.Int64("operator", *operatorFlag))
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		flag.Usage()
		os.Exit(2)
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	zap.L().Info("Running admin command",
		zap.Int64("operator", *operatorFlag),
		zap.String("command", args[0]))

	if err := cmd(ctx, services.Exchange, args[1:]); err != nil {
		zap.L().Error("Admin command failed", zap.String("command", args[0]), zap.Error(err))
		services.Close()
		loggerCleanup()
		os.Exit(1)
	}
}
