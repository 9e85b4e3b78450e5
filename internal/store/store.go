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

package store

import (
	"context"
	"time"

	"token-exchange-go/internal/models"

	"github.com/shopspring/decimal"
)

// CreateAccountParams contains the parameters for lazily creating an account.
type CreateAccountParams struct {
	UserId        int64
	ReferrerId    *int64
	ReferralBonus decimal.Decimal
}

// ApplyTradeParams contains one already-priced trade.
type ApplyTradeParams struct {
	UserId    int64
	Symbol    string
	Quantity  int64
	Price     decimal.Decimal
	Direction models.TradeDirection
}

// CreateTransactionParams contains the parameters for a deposit or withdraw request.
// A withdraw request debits the balance in the same atomic step that records it.
type CreateTransactionParams struct {
	UserId  int64
	Type    models.TransactionType
	Amount  decimal.Decimal
	Method  string
	Details string
}

// PriceUpdate is one per-symbol market write. BasePrice is only persisted when
// BackfillBase is set (first tick after a missing anchor) or Reanchor is set
// (admin override). Trend is only persisted when UpdateTrend is set.
type PriceUpdate struct {
	Symbol       string
	Price        decimal.Decimal
	BasePrice    decimal.Decimal
	BackfillBase bool
	Reanchor     bool
	Trend        float64
	UpdateTrend  bool
	HistorySize  int
}

// PriceStep computes the next write for a token from its committed row. It runs
// inside the store transaction, so it must not call back into the store.
type PriceStep func(current models.Token) (PriceUpdate, error)

// AccountStore is the Ledger Store: balances, holdings and invested amounts.
type AccountStore interface {
	GetOrCreateAccount(ctx context.Context, params CreateAccountParams) (*models.Account, bool, error)
	GetAccount(ctx context.Context, userId int64) (*models.Account, error)
	GetWallet(ctx context.Context, userId int64) (*models.Wallet, error)
	AdjustBalance(ctx context.Context, userId int64, delta decimal.Decimal, reference string) (decimal.Decimal, error)
	ApplyTrade(ctx context.Context, params ApplyTradeParams) (*models.Wallet, error)
	MarkFirstDeposit(ctx context.Context, userId int64) (bool, error)
	SetBanned(ctx context.Context, userId int64, banned bool) error
	ListAccounts(ctx context.Context) ([]models.Account, error)
	GetLedgerEntries(ctx context.Context, userId int64, limit int) ([]models.LedgerEntry, error)
	ReconcileBalance(ctx context.Context, userId int64) error
}

// TokenStore is the Token Catalog persistence.
type TokenStore interface {
	SeedTokens(ctx context.Context, tokens []models.Token) (int, error)
	ListTokens(ctx context.Context) ([]models.Token, error)
	GetToken(ctx context.Context, symbol string) (*models.Token, error)
	UpdateTokenPrice(ctx context.Context, update PriceUpdate) (*models.Token, error)
	StepTokenPrice(ctx context.Context, symbol string, step PriceStep) (*models.Token, error)
	MigrateTokens(ctx context.Context) (int, error)
}

// TransactionStore is the Transaction Log.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, params CreateTransactionParams) (*models.Transaction, error)
	FinalizeTransaction(ctx context.Context, txId string, status models.TransactionStatus) (*models.Transaction, error)
	GetTransaction(ctx context.Context, txId string) (*models.Transaction, error)
	ListUserTransactions(ctx context.Context, userId int64, limit int) ([]models.Transaction, error)
	ListPendingTransactions(ctx context.Context, limit int) ([]models.Transaction, error)
	ListUserPendingTransactions(ctx context.Context, userId int64) ([]models.Transaction, error)
}

// GiftCodeStore holds one-time redeemable codes.
type GiftCodeStore interface {
	CreateGiftCode(ctx context.Context, code string, amount decimal.Decimal) (*models.GiftCode, error)
	RedeemGiftCode(ctx context.Context, userId int64, code string) (*models.GiftCode, error)
	GetGiftCode(ctx context.Context, code string) (*models.GiftCode, error)
}

// StatsStore serves reporting queries.
type StatsStore interface {
	GetDailyStats(ctx context.Context, day time.Time) (*models.DailyStat, error)
	ListDailyStats(ctx context.Context, limit int) ([]models.DailyStat, error)
	GetInvestmentStats(ctx context.Context) ([]models.InvestmentStat, error)
}

// Store defines the contract every backend must satisfy.
type Store interface {
	AccountStore
	TokenStore
	TransactionStore
	GiftCodeStore
	StatsStore

	Ping(ctx context.Context) error
	Close()
}

// DayKey formats the UTC calendar day used for daily counters.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
