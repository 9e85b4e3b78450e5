package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Market   MarketConfig
	Ledger   LedgerConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
}

// MarketConfig holds price engine settings
type MarketConfig struct {
	TickInterval time.Duration
	HistorySize  int
	Policy       string
	TokensFile   string
}

// LedgerConfig holds wallet and reward rules
type LedgerConfig struct {
	ReferralBonus  decimal.Decimal
	MinWithdrawal  decimal.Decimal
	GiftCodeLength int
}

// ServerConfig holds process-level settings for the front ends
type ServerConfig struct {
	AdminId        int64
	MetricsAddr    string
	SessionTTL     time.Duration
	LogDevelopment bool
}
