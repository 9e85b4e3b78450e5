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

package database

import (
	"context"
	"testing"
	"time"

	"token-exchange-go/internal/models"
	"token-exchange-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestGetInvestmentStats(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	createFundedAccount(t, service, 1, "1000")
	createFundedAccount(t, service, 2, "1000")

	trades := []store.ApplyTradeParams{
		{UserId: 1, Symbol: "TET", Quantity: 3, Price: decimal.NewFromInt(10), Direction: models.DirectionBuy},
		{UserId: 2, Symbol: "TET", Quantity: 2, Price: decimal.NewFromInt(11), Direction: models.DirectionBuy},
		{UserId: 2, Symbol: "TET", Quantity: 2, Price: decimal.NewFromInt(12), Direction: models.DirectionSell},
	}
	for _, params := range trades {
		if _, err := service.ApplyTrade(ctx, params); err != nil {
			t.Fatalf("ApplyTrade failed: %v", err)
		}
	}

	stats, err := service.GetInvestmentStats(ctx)
	if err != nil {
		t.Fatalf("GetInvestmentStats failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("Expected stats for 1 symbol, got %d", len(stats))
	}
	if !stats[0].TotalAmount.Equal(decimal.NewFromInt(52)) {
		t.Errorf("Expected total invested 52, got %s", stats[0].TotalAmount.String())
	}
	if stats[0].Units != 3 || stats[0].Holders != 1 {
		t.Errorf("Expected 3 units across 1 holder, got %d across %d", stats[0].Units, stats[0].Holders)
	}
}

func TestGetDailyStats_EmptyDay(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	day := time.Date(2020, 1, 2, 15, 0, 0, 0, time.UTC)
	stat, err := service.GetDailyStats(ctx, day)
	if err != nil {
		t.Fatalf("GetDailyStats failed: %v", err)
	}
	if stat.Date != "2020-01-02" || stat.NewUsers != 0 || stat.FirstDeposits != 0 {
		t.Errorf("Expected zero counters for 2020-01-02, got %+v", stat)
	}

	createFundedAccount(t, service, 1, "0")
	stats, err := service.ListDailyStats(ctx, 7)
	if err != nil {
		t.Fatalf("ListDailyStats failed: %v", err)
	}
	if len(stats) != 1 || stats[0].Date != store.DayKey(time.Now()) {
		t.Errorf("Expected one row for today, got %+v", stats)
	}
}
