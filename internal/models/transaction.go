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

type TransactionType string

const (
	TransactionDeposit  TransactionType = "deposit"
	TransactionWithdraw TransactionType = "withdraw"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusRejected  TransactionStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed from s
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Transaction is a deposit or withdraw request awaiting or past admin review
type Transaction struct {
	TxId        string            `db:"tx_id"`
	UserId      int64             `db:"user_id"`
	Type        TransactionType   `db:"type"`
	Amount      decimal.Decimal   `db:"amount"`
	Method      string            `db:"method"`
	Details     string            `db:"details"`
	Status      TransactionStatus `db:"status"`
	CreatedAt   time.Time         `db:"created_at"`
	ProcessedAt *time.Time        `db:"processed_at"`
}

// GiftCode is a one-time redeemable fiat credit
type GiftCode struct {
	Code       string          `db:"code"`
	Amount     decimal.Decimal `db:"amount"`
	Used       bool            `db:"used"`
	RedeemedBy *int64          `db:"redeemed_by"`
	CreatedAt  time.Time       `db:"created_at"`
	RedeemedAt *time.Time      `db:"redeemed_at"`
}

type TradeDirection string

const (
	DirectionBuy  TradeDirection = "buy"
	DirectionSell TradeDirection = "sell"
)

// ParseTradeDirection accepts "buy" or "sell"
func ParseTradeDirection(s string) (TradeDirection, bool) {
	switch TradeDirection(s) {
	case DirectionBuy, DirectionSell:
		return TradeDirection(s), true
	}
	return "", false
}
