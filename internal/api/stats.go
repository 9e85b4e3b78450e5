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

package api

import (
	"context"
	"fmt"
	"time"

	"token-exchange-go/internal/models"

	"go.uber.org/zap"
)

// GetDailyStats returns the counters for the UTC day containing day
func (s *ExchangeService) GetDailyStats(ctx context.Context, day time.Time) (*models.DailyStat, error) {
	stat, err := s.store.GetDailyStats(ctx, day)
	if err != nil {
		zap.L().Error("Failed to get daily stats", zap.Time("day", day), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve daily stats: %w", err)
	}
	return stat, nil
}

// GetRecentDailyStats returns up to limit days of counters, newest first
func (s *ExchangeService) GetRecentDailyStats(ctx context.Context, limit int) ([]models.DailyStat, error) {
	stats, err := s.store.ListDailyStats(ctx, limit)
	if err != nil {
		zap.L().Error("Failed to list daily stats", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve daily stats: %w", err)
	}
	return stats, nil
}

// GetInvestmentStats sums invested fiat and units held per symbol across all accounts
func (s *ExchangeService) GetInvestmentStats(ctx context.Context) ([]models.InvestmentStat, error) {
	stats, err := s.store.GetInvestmentStats(ctx)
	if err != nil {
		zap.L().Error("Failed to get investment stats", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve investment stats: %w", err)
	}
	return stats, nil
}
