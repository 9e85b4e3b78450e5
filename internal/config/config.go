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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"token-exchange-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	PolicyMeanReversion = "mean_reversion"
	PolicyTrend         = "trend"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	busyTimeout, err := getEnvDuration("DB_BUSY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	tickInterval, err := getEnvDuration("MARKET_TICK_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	if tickInterval <= 0 {
		return nil, fmt.Errorf("MARKET_TICK_INTERVAL must be positive, got %v", tickInterval)
	}

	sessionTTL, err := getEnvDuration("SESSION_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	referralBonus, err := getEnvDecimal("REFERRAL_BONUS", decimal.NewFromInt(50))
	if err != nil {
		return nil, err
	}

	minWithdrawal, err := getEnvDecimal("MIN_WITHDRAWAL", decimal.NewFromInt(100))
	if err != nil {
		return nil, err
	}

	policy := getEnvString("MARKET_POLICY", PolicyMeanReversion)
	if policy != PolicyMeanReversion && policy != PolicyTrend {
		return nil, fmt.Errorf("invalid MARKET_POLICY %q: expected %s or %s", policy, PolicyMeanReversion, PolicyTrend)
	}

	adminId, err := getEnvInt64("ADMIN_ID", 0)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "exchange.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			BusyTimeout:     busyTimeout,
		},
		Market: models.MarketConfig{
			TickInterval: tickInterval,
			HistorySize:  getEnvInt("MARKET_HISTORY_SIZE", 30),
			Policy:       policy,
			TokensFile:   getEnvString("TOKENS_FILE", ""),
		},
		Ledger: models.LedgerConfig{
			ReferralBonus:  referralBonus,
			MinWithdrawal:  minWithdrawal,
			GiftCodeLength: getEnvInt("GIFT_CODE_LENGTH", 10),
		},
		Server: models.ServerConfig{
			AdminId:        adminId,
			MetricsAddr:    getEnvString("METRICS_ADDR", ":9090"),
			SessionTTL:     sessionTTL,
			LogDevelopment: getEnvBool("LOG_DEVELOPMENT", false),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		if d.IsNegative() {
			return decimal.Zero, fmt.Errorf("%s cannot be negative, got %s", key, d.String())
		}
		return d, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %q (%w)", key, value, err)
		}
		return intValue, nil
	}
	return defaultValue, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
