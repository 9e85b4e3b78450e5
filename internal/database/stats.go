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
	"database/sql"
	"errors"
	"fmt"
	"time"

	"token-exchange-go/internal/models"
	"token-exchange-go/internal/store"

	"github.com/shopspring/decimal"
)

// GetDailyStats returns the counters for the UTC day containing day; a day with no
// activity reports zeros.
func (s *Service) GetDailyStats(ctx context.Context, day time.Time) (*models.DailyStat, error) {
	key := store.DayKey(day)
	stat := &models.DailyStat{Date: key}
	err := s.run(ctx, "get_daily_stats", func(ctx context.Context) error {
		err := s.db.QueryRowContext(ctx, queryGetDailyStat, key).Scan(&stat.Date, &stat.NewUsers, &stat.FirstDeposits)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get daily stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stat, nil
}

func (s *Service) ListDailyStats(ctx context.Context, limit int) ([]models.DailyStat, error) {
	if limit <= 0 {
		limit = 7
	}

	var stats []models.DailyStat
	err := s.run(ctx, "list_daily_stats", func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, queryListDailyStats, limit)
		if err != nil {
			return fmt.Errorf("failed to list daily stats: %w", err)
		}
		defer closeRows(rows)

		for rows.Next() {
			var stat models.DailyStat
			if err := rows.Scan(&stat.Date, &stat.NewUsers, &stat.FirstDeposits); err != nil {
				return fmt.Errorf("failed to scan daily stat: %w", err)
			}
			stats = append(stats, stat)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// GetInvestmentStats sums invested fiat and held units per symbol across all accounts.
// Amounts are stored as decimal text, so the grouping happens here rather than in SQL.
func (s *Service) GetInvestmentStats(ctx context.Context) ([]models.InvestmentStat, error) {
	var stats []models.InvestmentStat
	err := s.run(ctx, "get_investment_stats", func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, queryGetAllHoldings)
		if err != nil {
			return fmt.Errorf("failed to get holdings: %w", err)
		}
		defer closeRows(rows)

		index := make(map[string]int)
		for rows.Next() {
			var holding models.Holding
			var investedStr string
			if err := rows.Scan(&holding.UserId, &holding.Symbol, &holding.Quantity, &investedStr); err != nil {
				return fmt.Errorf("failed to scan holding: %w", err)
			}
			holding.Invested, err = decimal.NewFromString(investedStr)
			if err != nil {
				return fmt.Errorf("failed to parse invested '%s': %w", investedStr, err)
			}

			i, ok := index[holding.Symbol]
			if !ok {
				i = len(stats)
				index[holding.Symbol] = i
				stats = append(stats, models.InvestmentStat{Symbol: holding.Symbol, TotalAmount: decimal.Zero})
			}
			stats[i].TotalAmount = stats[i].TotalAmount.Add(holding.Invested)
			stats[i].Units += holding.Quantity
			if holding.Quantity > 0 {
				stats[i].Holders++
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
