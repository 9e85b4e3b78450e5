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

// Result codes returned to the presentation layer
const (
	CodeOK               = "ok"
	CodeDeclined         = "declined"
	CodeAlreadyProcessed = "already_processed"
	CodeNotFound         = "not_found"
	CodeInvalid          = "invalid"
	CodeUnavailable      = "unavailable"
)

// HoldingView is a position valued at the current market price
type HoldingView struct {
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Value    decimal.Decimal `json:"value"`
	Invested decimal.Decimal `json:"invested"`
}

// WalletSnapshot is the read model behind the wallet view
type WalletSnapshot struct {
	UserId     int64           `json:"user_id"`
	Balance    decimal.Decimal `json:"balance"`
	AssetValue decimal.Decimal `json:"asset_value"`
	NetWorth   decimal.Decimal `json:"net_worth"`
	Holdings   []HoldingView   `json:"holdings"`
	Pending    []Transaction   `json:"pending"`
}

// TradeResult represents the result of executing a buy or sell
type TradeResult struct {
	Success    bool            `json:"success"`
	Code       string          `json:"code"`
	UserId     int64           `json:"user_id,omitempty"`
	Symbol     string          `json:"symbol,omitempty"`
	Direction  TradeDirection  `json:"direction,omitempty"`
	Quantity   int64           `json:"quantity,omitempty"`
	Price      decimal.Decimal `json:"price,omitempty"`
	Total      decimal.Decimal `json:"total,omitempty"`
	NewBalance decimal.Decimal `json:"new_balance,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// TradeQuote is shown to the user before they commit to a quantity. The price is
// indicative only; execution uses the price at confirmation time.
type TradeQuote struct {
	Symbol      string          `json:"symbol"`
	Direction   TradeDirection  `json:"direction"`
	Price       decimal.Decimal `json:"price"`
	Balance     decimal.Decimal `json:"balance"`
	Owned       int64           `json:"owned"`
	MaxQuantity int64           `json:"max_quantity"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// RequestResult represents the result of filing a deposit or withdraw request
type RequestResult struct {
	Success    bool            `json:"success"`
	Code       string          `json:"code"`
	TxId       string          `json:"tx_id,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
	NewBalance decimal.Decimal `json:"new_balance,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// ApprovalResult represents the outcome of an admin decision on a transaction
type ApprovalResult struct {
	Success     bool         `json:"success"`
	Code        string       `json:"code"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// RedeemResult represents the outcome of a gift code redemption
type RedeemResult struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Amount  decimal.Decimal `json:"amount,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// AccountResult represents the outcome of get-or-create on first contact
type AccountResult struct {
	Success bool     `json:"success"`
	Code    string   `json:"code"`
	Account *Account `json:"account,omitempty"`
	Created bool     `json:"created"`
	Error   string   `json:"error,omitempty"`
}

// QuoteResult wraps a staged trade quote
type QuoteResult struct {
	Success bool        `json:"success"`
	Code    string      `json:"code"`
	Quote   *TradeQuote `json:"quote,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PriceResult represents the outcome of an admin price override
type PriceResult struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Token   *Token `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GiftCodeResult represents the outcome of generating a gift code
type GiftCodeResult struct {
	Success  bool      `json:"success"`
	Code     string    `json:"code"`
	GiftCode *GiftCode `json:"gift_code,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// CommandResult is returned by admin commands with no payload
type CommandResult struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error,omitempty"`
}
