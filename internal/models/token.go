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

// TokenSchemaVersion is the current token record layout. Version 1 records
// predate the base price anchor and the trend/volatility parameters.
const TokenSchemaVersion = 2

// Token is a tradable catalog instrument
type Token struct {
	Symbol        string            `db:"symbol"`
	Name          string            `db:"name"`
	Price         decimal.Decimal   `db:"price"`
	BasePrice     decimal.Decimal   `db:"base_price"`
	Trend         float64           `db:"trend"`
	Volatility    float64           `db:"volatility"`
	SchemaVersion int               `db:"schema_version"`
	History       []decimal.Decimal `db:"-"`
	UpdatedAt     time.Time         `db:"updated_at"`
}

// Low returns the minimum price in the history window, or the current price when empty
func (t *Token) Low() decimal.Decimal {
	if len(t.History) == 0 {
		return t.Price
	}
	return decimal.Min(t.History[0], t.History[1:]...)
}

// High returns the maximum price in the history window, or the current price when empty
func (t *Token) High() decimal.Decimal {
	if len(t.History) == 0 {
		return t.Price
	}
	return decimal.Max(t.History[0], t.History[1:]...)
}

// ROIEntry is the growth of a token's price relative to its base price, in percent
type ROIEntry struct {
	Symbol    string
	Name      string
	Price     decimal.Decimal
	BasePrice decimal.Decimal
	ROI       decimal.Decimal
}
