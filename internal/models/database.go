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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a trading user and the fiat side of their wallet
type Account struct {
	UserId           int64           `db:"user_id"`
	IsBanned         bool            `db:"is_banned"`
	FirstDepositDone bool            `db:"first_deposit_done"`
	ReferrerId       *int64          `db:"referrer_id"`
	ReferralCount    int64           `db:"referral_count"`
	Balance          decimal.Decimal `db:"balance"`
	Version          int64           `db:"version"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// Holding is a single token position. Invested is the cumulative fiat spent on
// buys and is never reduced by sells.
type Holding struct {
	UserId   int64           `db:"user_id"`
	Symbol   string          `db:"symbol"`
	Quantity int64           `db:"quantity"`
	Invested decimal.Decimal `db:"invested"`
}

// Wallet is the consistent view of an account's balance and positions
type Wallet struct {
	UserId   int64
	Balance  decimal.Decimal
	Holdings map[string]int64
	Invested map[string]decimal.Decimal
}

// Quantity returns the held quantity for symbol, zero if none
func (w *Wallet) Quantity(symbol string) int64 {
	if w == nil || w.Holdings == nil {
		return 0
	}
	return w.Holdings[symbol]
}

// LedgerEntry is the audit record written for every fiat balance change
type LedgerEntry struct {
	Id            string          `db:"id"`
	UserId        int64           `db:"user_id"`
	EntryType     string          `db:"entry_type"`
	Amount        decimal.Decimal `db:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	Reference     string          `db:"reference"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Ledger entry types
const (
	EntryDeposit        = "deposit"
	EntryWithdrawHold   = "withdraw_hold"
	EntryWithdrawRefund = "withdraw_refund"
	EntryTradeBuy       = "trade_buy"
	EntryTradeSell      = "trade_sell"
	EntryReferralBonus  = "referral_bonus"
	EntryGiftCode       = "gift_code"
	EntryAdjustment     = "adjustment"
)

// DailyStat holds per-day counters keyed by UTC date (YYYY-MM-DD)
type DailyStat struct {
	Date          string `db:"date"`
	NewUsers      int64  `db:"new_users"`
	FirstDeposits int64  `db:"first_deposits"`
}

// InvestmentStat aggregates invested fiat and held units for one symbol across all accounts
type InvestmentStat struct {
	Symbol      string
	Holders     int64
	Units       int64
	TotalAmount decimal.Decimal
}
