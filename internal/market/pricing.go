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

package market

import (
	"math"
	"sort"

	"token-exchange-go/internal/models"

	"github.com/shopspring/decimal"
)

// Mean reversion dynamics
const (
	ReversionStrength = 0.04
	NoiseAmplitude    = 0.015
	MaxTickChange     = 0.03
	FloorRatio        = 0.1
	CeilingRatio      = 10
)

// MinPrice is the absolute lowest price any tick can produce
var MinPrice = decimal.RequireFromString("0.01")

// Step is the outcome of one price update for a single token.
type Step struct {
	Price         decimal.Decimal
	ChangePercent float64
	Trend         float64
	UpdateTrend   bool
}

// Policy computes the next price for a token. u is a uniform sample in [0, 1).
// The token handed to Step always carries a positive base price.
type Policy interface {
	Name() string
	Step(token models.Token, u float64) Step
}

// NextPrice applies one mean reversion step and returns the new price together with
// the change percent that was applied before rounding and hard clamping.
func NextPrice(price, base decimal.Decimal, noise float64) (decimal.Decimal, float64) {
	deviation, _ := price.Sub(base).Div(base).Float64()
	reversion := -deviation * ReversionStrength
	change := clamp(reversion+noise, -MaxTickChange, MaxTickChange)

	next := price.Mul(decimal.NewFromFloat(1 + change)).Round(2)
	return Bound(next, base), change
}

// Bound clamps price to [base*FloorRatio, base*CeilingRatio] and then to MinPrice.
// Both limits are rounded inward to cents so a clamped price stays a 2dp amount.
func Bound(price, base decimal.Decimal) decimal.Decimal {
	floor := base.Mul(decimal.NewFromFloat(FloorRatio)).RoundCeil(2)
	ceiling := base.Mul(decimal.NewFromInt(CeilingRatio)).RoundFloor(2)
	if price.LessThan(floor) {
		price = floor
	}
	if price.GreaterThan(ceiling) {
		price = ceiling
	}
	if price.LessThan(MinPrice) {
		price = MinPrice
	}
	return price
}

// UniformNoise maps a uniform sample in [0, 1) onto [-NoiseAmplitude, NoiseAmplitude).
func UniformNoise(u float64) float64 {
	return (2*u - 1) * NoiseAmplitude
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// MeanReversion is the default policy
type MeanReversion struct{}

func (MeanReversion) Name() string { return "mean_reversion" }

func (MeanReversion) Step(token models.Token, u float64) Step {
	price, change := NextPrice(token.Price, token.BasePrice, UniformNoise(u))
	return Step{Price: price, ChangePercent: change}
}

// TrendFollowing drifts by the token's trend plus noise scaled by its volatility, and
// carries a decaying share of each move into the next trend. Moves are limited to
// MaxTickChange and the result is held inside the same base price bounds.
type TrendFollowing struct{}

const trendMemory = 0.9

func (TrendFollowing) Name() string { return "trend" }

func (TrendFollowing) Step(token models.Token, u float64) Step {
	change := clamp(token.Trend+token.Volatility*(2*u-1), -MaxTickChange, MaxTickChange)
	price := Bound(token.Price.Mul(decimal.NewFromFloat(1+change)).Round(2), token.BasePrice)
	trend := clamp(token.Trend*trendMemory+change*(1-trendMemory), -MaxTickChange, MaxTickChange)
	return Step{Price: price, ChangePercent: change, Trend: trend, UpdateTrend: true}
}

// PolicyByName resolves the configured policy, defaulting to MeanReversion
func PolicyByName(name string) Policy {
	if name == (TrendFollowing{}).Name() {
		return TrendFollowing{}
	}
	return MeanReversion{}
}

// ComputeROI returns each token's growth over its base price in percent, sorted
// descending. A token without a base price reports zero growth.
func ComputeROI(tokens []models.Token) []models.ROIEntry {
	hundred := decimal.NewFromInt(100)
	entries := make([]models.ROIEntry, 0, len(tokens))
	for _, token := range tokens {
		roi := decimal.Zero
		if !token.BasePrice.IsZero() {
			roi = token.Price.Sub(token.BasePrice).Div(token.BasePrice).Mul(hundred).Round(2)
		}
		entries = append(entries, models.ROIEntry{
			Symbol:    token.Symbol,
			Name:      token.Name,
			Price:     token.Price,
			BasePrice: token.BasePrice,
			ROI:       roi,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ROI.GreaterThan(entries[j].ROI)
	})
	return entries
}
