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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"token-exchange-go/internal/models"
	"token-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryTokens is an in-memory store.TokenStore
type memoryTokens struct {
	mu       sync.Mutex
	order    []string
	tokens   map[string]*models.Token
	failOn   map[string]bool
	updates  []store.PriceUpdate
	migrated int
}

func newMemoryTokens(tokens ...models.Token) *memoryTokens {
	m := &memoryTokens{tokens: make(map[string]*models.Token), failOn: make(map[string]bool)}
	for _, token := range tokens {
		t := token
		t.History = []decimal.Decimal{t.Price}
		m.tokens[t.Symbol] = &t
		m.order = append(m.order, t.Symbol)
	}
	return m
}

func (m *memoryTokens) SeedTokens(_ context.Context, tokens []models.Token) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tokens) > 0 {
		return 0, nil
	}
	for _, token := range tokens {
		t := token
		m.tokens[t.Symbol] = &t
		m.order = append(m.order, t.Symbol)
	}
	return len(tokens), nil
}

func (m *memoryTokens) ListTokens(context.Context) ([]models.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Token, 0, len(m.order))
	for _, symbol := range m.order {
		out = append(out, *m.tokens[symbol])
	}
	return out, nil
}

func (m *memoryTokens) GetToken(_ context.Context, symbol string) (*models.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: token %s", store.ErrNotFound, symbol)
	}
	t := *token
	return &t, nil
}

func (m *memoryTokens) UpdateTokenPrice(_ context.Context, update store.PriceUpdate) (*models.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apply(update)
}

func (m *memoryTokens) StepTokenPrice(_ context.Context, symbol string, step store.PriceStep) (*models.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: token %s", store.ErrNotFound, symbol)
	}
	update, err := step(*token)
	if err != nil {
		return nil, err
	}
	update.Symbol = symbol
	return m.apply(update)
}

// apply expects m.mu to be held
func (m *memoryTokens) apply(update store.PriceUpdate) (*models.Token, error) {
	if m.failOn[update.Symbol] {
		return nil, fmt.Errorf("%w: injected", store.ErrStoreUnavailable)
	}
	token, ok := m.tokens[update.Symbol]
	if !ok {
		return nil, fmt.Errorf("%w: token %s", store.ErrNotFound, update.Symbol)
	}
	m.updates = append(m.updates, update)

	token.Price = update.Price
	if update.Reanchor || update.BackfillBase {
		token.BasePrice = update.BasePrice
	}
	if update.UpdateTrend {
		token.Trend = update.Trend
	}
	token.History = append(token.History, update.Price)
	if update.HistorySize > 0 && len(token.History) > update.HistorySize {
		token.History = token.History[len(token.History)-update.HistorySize:]
	}
	t := *token
	return &t, nil
}

func (m *memoryTokens) MigrateTokens(context.Context) (int, error) {
	m.migrated++
	return 0, nil
}

// mockTokens lets a test script store failures
type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) SeedTokens(ctx context.Context, tokens []models.Token) (int, error) {
	args := m.Called(ctx, tokens)
	return args.Int(0), args.Error(1)
}

func (m *mockTokens) ListTokens(ctx context.Context) ([]models.Token, error) {
	args := m.Called(ctx)
	tokens, _ := args.Get(0).([]models.Token)
	return tokens, args.Error(1)
}

func (m *mockTokens) GetToken(ctx context.Context, symbol string) (*models.Token, error) {
	args := m.Called(ctx, symbol)
	token, _ := args.Get(0).(*models.Token)
	return token, args.Error(1)
}

func (m *mockTokens) UpdateTokenPrice(ctx context.Context, update store.PriceUpdate) (*models.Token, error) {
	args := m.Called(ctx, update)
	token, _ := args.Get(0).(*models.Token)
	return token, args.Error(1)
}

func (m *mockTokens) StepTokenPrice(ctx context.Context, symbol string, step store.PriceStep) (*models.Token, error) {
	args := m.Called(ctx, symbol, step)
	token, _ := args.Get(0).(*models.Token)
	return token, args.Error(1)
}

func (m *mockTokens) MigrateTokens(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func fixedRandom(u float64) RandomSource {
	return func() float64 { return u }
}

func TestEngine_TickAppliesMeanReversion(t *testing.T) {
	tokens := newMemoryTokens(
		models.Token{Symbol: "MKY", Name: "Milkyy", Price: d("50"), BasePrice: d("50")},
		models.Token{Symbol: "VRT", Name: "Vortex", Price: d("300"), BasePrice: d("150")},
	)
	engine := NewEngine(tokens, models.MarketConfig{HistorySize: 30}, WithRandomSource(fixedRandom(0.5)))

	require.NoError(t, engine.Tick(context.Background()))

	mky, err := engine.Token(context.Background(), "MKY")
	require.NoError(t, err)
	assert.True(t, mky.Price.Equal(d("50")), "no deviation and no noise keeps price, got %s", mky.Price)
	assert.Len(t, mky.History, 2)

	vrt, err := engine.Token(context.Background(), "VRT")
	require.NoError(t, err)
	assert.True(t, vrt.Price.Equal(d("291")), "capped -3%% pull, got %s", vrt.Price)
	assert.True(t, vrt.BasePrice.Equal(d("150")))
}

func TestEngine_TickBackfillsMissingBase(t *testing.T) {
	tokens := newMemoryTokens(models.Token{Symbol: "HOA", Price: d("8"), BasePrice: decimal.Zero})
	engine := NewEngine(tokens, models.MarketConfig{}, WithRandomSource(fixedRandom(1)))

	require.NoError(t, engine.Tick(context.Background()))

	require.Len(t, tokens.updates, 1)
	update := tokens.updates[0]
	assert.True(t, update.BackfillBase)
	assert.True(t, update.BasePrice.Equal(d("8")))
	// u=1 maps to +1.5% noise around the freshly set anchor
	assert.True(t, update.Price.Equal(d("8.12")), "got %s", update.Price)
	assert.Equal(t, DefaultHistorySize, update.HistorySize)

	require.NoError(t, engine.Tick(context.Background()))
	assert.False(t, tokens.updates[1].BackfillBase, "backfill happens once")
}

func TestEngine_TickHistoryWindow(t *testing.T) {
	tokens := newMemoryTokens(models.Token{Symbol: "TET", Price: d("10"), BasePrice: d("10")})
	engine := NewEngine(tokens, models.MarketConfig{HistorySize: 30}, WithRandomSource(NewRandomSource(7)))

	for i := 0; i < 40; i++ {
		require.NoError(t, engine.Tick(context.Background()))
	}

	token, err := engine.Token(context.Background(), "TET")
	require.NoError(t, err)
	assert.Len(t, token.History, 30)
	assert.True(t, token.History[29].Equal(token.Price))
}

func TestEngine_TickContinuesPastFailedSymbol(t *testing.T) {
	tokens := newMemoryTokens(
		models.Token{Symbol: "AAA", Price: d("10"), BasePrice: d("10")},
		models.Token{Symbol: "BBB", Price: d("10"), BasePrice: d("10")},
		models.Token{Symbol: "CCC", Price: d("10"), BasePrice: d("10")},
	)
	tokens.failOn["BBB"] = true
	engine := NewEngine(tokens, models.MarketConfig{}, WithRandomSource(fixedRandom(0.9)))

	err := engine.Tick(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "BBB")

	var symbols []string
	for _, u := range tokens.updates {
		symbols = append(symbols, u.Symbol)
	}
	assert.Equal(t, []string{"AAA", "CCC"}, symbols)
}

func TestEngine_UnavailableCatalog(t *testing.T) {
	tokens := &mockTokens{}
	unavailable := fmt.Errorf("%w: closed", store.ErrStoreUnavailable)
	tokens.On("ListTokens", mock.Anything).Return(nil, unavailable)
	tokens.On("UpdateTokenPrice", mock.Anything, mock.Anything).Return(nil, unavailable)

	engine := NewEngine(tokens, models.MarketConfig{})

	err := engine.Tick(context.Background())
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)

	assert.Empty(t, engine.Tokens(context.Background()))
	assert.NotNil(t, engine.ComputeROI(context.Background()))
	assert.Empty(t, engine.ComputeROI(context.Background()))

	_, err = engine.RigPrice(context.Background(), "TET", d("12"))
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)

	tokens.AssertNotCalled(t, "SeedTokens", mock.Anything, mock.Anything)
}

func TestEngine_RigPriceReanchors(t *testing.T) {
	tokens := newMemoryTokens(models.Token{Symbol: "GGC", Price: d("100"), BasePrice: d("100")})
	engine := NewEngine(tokens, models.MarketConfig{}, WithRandomSource(fixedRandom(0.5)))
	ctx := context.Background()

	token, err := engine.RigPrice(ctx, "GGC", d("250.456"))
	require.NoError(t, err)
	assert.True(t, token.Price.Equal(d("250.46")))
	assert.True(t, token.BasePrice.Equal(d("250.46")))
	assert.Len(t, token.History, 2)

	// The rigged price is the new normal: a neutral tick does not pull it back
	require.NoError(t, engine.Tick(ctx))
	token, err = engine.Token(ctx, "GGC")
	require.NoError(t, err)
	assert.True(t, token.Price.Equal(d("250.46")), "got %s", token.Price)

	_, err = engine.RigPrice(ctx, "GGC", d("0"))
	assert.ErrorIs(t, err, store.ErrInvalidInput)
	_, err = engine.RigPrice(ctx, "NOPE", d("5"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// rigBeforeStep lands an admin override after Tick has listed the catalog but
// before the per-symbol step runs.
type rigBeforeStep struct {
	*memoryTokens
	rig store.PriceUpdate
}

func (r *rigBeforeStep) StepTokenPrice(ctx context.Context, symbol string, step store.PriceStep) (*models.Token, error) {
	if symbol == r.rig.Symbol {
		if _, err := r.memoryTokens.UpdateTokenPrice(ctx, r.rig); err != nil {
			return nil, err
		}
	}
	return r.memoryTokens.StepTokenPrice(ctx, symbol, step)
}

func TestEngine_TickDoesNotOverwriteConcurrentRig(t *testing.T) {
	tokens := &rigBeforeStep{
		memoryTokens: newMemoryTokens(models.Token{Symbol: "HOA", Price: d("10"), BasePrice: d("10")}),
		rig:          store.PriceUpdate{Symbol: "HOA", Price: d("500"), BasePrice: d("500"), Reanchor: true},
	}
	engine := NewEngine(tokens, models.MarketConfig{}, WithRandomSource(fixedRandom(0.5)))

	require.NoError(t, engine.Tick(context.Background()))

	token, err := engine.Token(context.Background(), "HOA")
	require.NoError(t, err)
	assert.True(t, token.Price.Equal(d("500")), "tick must step from the rigged price, got %s", token.Price)
	assert.True(t, token.BasePrice.Equal(d("500")), "got %s", token.BasePrice)
}

func TestEngine_Seed(t *testing.T) {
	tokens := &mockTokens{}
	catalog := []models.Token{{Symbol: "TET", Price: d("10")}}
	tokens.On("MigrateTokens", mock.Anything).Return(0, nil).Once()
	tokens.On("SeedTokens", mock.Anything, catalog).Return(1, nil).Once()

	engine := NewEngine(tokens, models.MarketConfig{})
	inserted, err := engine.Seed(context.Background(), catalog)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	tokens.AssertExpectations(t)

	failing := &mockTokens{}
	failing.On("MigrateTokens", mock.Anything).Return(0, errors.New("boom"))
	_, err = NewEngine(failing, models.MarketConfig{}).Seed(context.Background(), catalog)
	assert.Error(t, err)
	failing.AssertNotCalled(t, "SeedTokens", mock.Anything, mock.Anything)
}

type countingTicker struct {
	calls atomic.Int32
	err   error
}

func (c *countingTicker) Tick(ctx context.Context) error {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("tick without deadline")
	}
	return c.err
}

func TestScheduler_RunOnceSwallowsErrors(t *testing.T) {
	ticker := &countingTicker{err: store.ErrStoreUnavailable}
	scheduler := NewScheduler(ticker, time.Second)

	assert.NotPanics(t, scheduler.RunOnce)
	assert.Equal(t, int32(1), ticker.calls.Load())
}

func TestScheduler_StartStop(t *testing.T) {
	ticker := &countingTicker{}
	scheduler := NewScheduler(ticker, time.Second)

	require.NoError(t, scheduler.Start(context.Background()))
	require.NoError(t, scheduler.Start(context.Background()))

	assert.Eventually(t, func() bool { return ticker.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	scheduler.Stop()
	scheduler.Stop()

	calls := ticker.calls.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, calls, ticker.calls.Load(), "no ticks after Stop")
}

func TestScheduler_RejectsSubSecondInterval(t *testing.T) {
	scheduler := NewScheduler(&countingTicker{}, 100*time.Millisecond)
	assert.Error(t, scheduler.Start(context.Background()))
}
