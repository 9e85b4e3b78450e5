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
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"token-exchange-go/internal/metrics"
	"token-exchange-go/internal/models"
	"token-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultHistorySize is the number of price samples retained per token
const DefaultHistorySize = 30

// RandomSource yields uniform samples in [0, 1)
type RandomSource func() float64

// NewRandomSource returns a RandomSource safe for concurrent use
func NewRandomSource(seed int64) RandomSource {
	var mu sync.Mutex
	r := rand.New(rand.NewSource(seed))
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return r.Float64()
	}
}

// Engine owns every mutation of the token catalog: scheduled ticks and admin overrides.
type Engine struct {
	store       store.TokenStore
	policy      Policy
	random      RandomSource
	historySize int
	metrics     *metrics.Metrics
}

type EngineOption func(*Engine)

// WithRandomSource replaces the noise source, mainly for deterministic tests
func WithRandomSource(random RandomSource) EngineOption {
	return func(e *Engine) { e.random = random }
}

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(tokens store.TokenStore, cfg models.MarketConfig, opts ...EngineOption) *Engine {
	historySize := cfg.HistorySize
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}

	e := &Engine{
		store:       tokens,
		policy:      PolicyByName(cfg.Policy),
		random:      NewRandomSource(time.Now().UnixNano()),
		historySize: historySize,
	}
	for _, opt := range opts {
		opt(e)
	}

	zap.L().Info("Market engine initialized",
		zap.String("policy", e.policy.Name()),
		zap.Int("history_size", e.historySize))
	return e
}

// Seed upgrades legacy token records and inserts catalog when the store holds no tokens.
func (e *Engine) Seed(ctx context.Context, catalog []models.Token) (int, error) {
	if _, err := e.store.MigrateTokens(ctx); err != nil {
		return 0, fmt.Errorf("failed to migrate tokens: %w", err)
	}
	inserted, err := e.store.SeedTokens(ctx, catalog)
	if err != nil {
		return 0, fmt.Errorf("failed to seed tokens: %w", err)
	}
	return inserted, nil
}

// Tick runs one scheduled price update over the whole catalog. Each symbol is written
// atomically on its own; a failure on one symbol does not stop the others. The
// returned error joins every failure so the caller can log it and move on.
func (e *Engine) Tick(ctx context.Context) error {
	start := time.Now()

	tokens, err := e.store.ListTokens(ctx)
	if err != nil {
		zap.L().Warn("Skipping market tick, catalog unavailable", zap.Error(err))
		e.metrics.ObserveTick("skipped", time.Since(start).Seconds())
		return fmt.Errorf("market tick skipped: %w", err)
	}

	var errs []error
	updated := 0
	for _, token := range tokens {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := e.tickToken(ctx, token.Symbol); err != nil {
			zap.L().Error("Failed to update token price", zap.String("symbol", token.Symbol), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", token.Symbol, err))
			continue
		}
		updated++
	}

	result := "ok"
	if len(errs) > 0 {
		result = "failed"
	}
	e.metrics.ObserveTick(result, time.Since(start).Seconds())

	zap.L().Info("Market tick completed",
		zap.Int("tokens", len(tokens)),
		zap.Int("updated", updated),
		zap.Int("failed", len(errs)),
		zap.Duration("duration", time.Since(start)))

	return errors.Join(errs...)
}

// tickToken computes the step from the row read inside the store transaction, so an
// admin override committed after ListTokens is never overwritten by a stale quote.
func (e *Engine) tickToken(ctx context.Context, symbol string) (*models.Token, error) {
	var before decimal.Decimal
	var step Step
	updated, err := e.store.StepTokenPrice(ctx, symbol, func(token models.Token) (store.PriceUpdate, error) {
		update := store.PriceUpdate{Symbol: token.Symbol, HistorySize: e.historySize}
		before = token.Price

		if !token.BasePrice.IsPositive() {
			// one-time lazy anchor from the pre-update price
			token.BasePrice = token.Price
			update.BackfillBase = true
			update.BasePrice = token.Price
		}

		step = e.policy.Step(token, e.random())
		update.Price = step.Price
		update.Trend = step.Trend
		update.UpdateTrend = step.UpdateTrend
		return update, nil
	})
	if err != nil {
		return nil, err
	}

	price, _ := updated.Price.Float64()
	e.metrics.SetPrice(updated.Symbol, price)

	zap.L().Debug("Token price ticked",
		zap.String("symbol", symbol),
		zap.String("old_price", before.String()),
		zap.String("new_price", step.Price.String()),
		zap.Float64("change_percent", step.ChangePercent))
	return updated, nil
}

// RigPrice sets a token's price and re-anchors its base price to the same value.
func (e *Engine) RigPrice(ctx context.Context, symbol string, price decimal.Decimal) (*models.Token, error) {
	price = price.Round(2)
	if price.LessThan(MinPrice) {
		return nil, fmt.Errorf("%w: price must be at least %s, got %s", store.ErrInvalidInput, MinPrice.String(), price.String())
	}

	token, err := e.store.UpdateTokenPrice(ctx, store.PriceUpdate{
		Symbol:      symbol,
		Price:       price,
		BasePrice:   price,
		Reanchor:    true,
		HistorySize: e.historySize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rig price for %s: %w", symbol, err)
	}

	p, _ := price.Float64()
	e.metrics.SetPrice(symbol, p)

	zap.L().Info("Token price set by admin",
		zap.String("symbol", symbol),
		zap.String("price", price.String()))
	return token, nil
}

// Tokens lists the catalog. An unreachable store yields an empty list.
func (e *Engine) Tokens(ctx context.Context) []models.Token {
	tokens, err := e.store.ListTokens(ctx)
	if err != nil {
		zap.L().Warn("Token catalog unavailable", zap.Error(err))
		return []models.Token{}
	}
	return tokens
}

// Token returns one token with its history window.
func (e *Engine) Token(ctx context.Context, symbol string) (*models.Token, error) {
	return e.store.GetToken(ctx, symbol)
}

// ComputeROI ranks the current catalog by growth over base price.
func (e *Engine) ComputeROI(ctx context.Context) []models.ROIEntry {
	return ComputeROI(e.Tokens(ctx))
}
