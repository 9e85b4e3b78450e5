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

package trade

import (
	"context"
	"fmt"

	"token-exchange-go/internal/metrics"
	"token-exchange-go/internal/models"
	"token-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service validates trades against the live price and wallet, then hands them to the
// ledger's atomic ApplyTrade. No price is locked between a quote and its execution.
type Service struct {
	accounts store.AccountStore
	tokens   store.TokenStore
	metrics  *metrics.Metrics
}

func NewService(accounts store.AccountStore, tokens store.TokenStore, m *metrics.Metrics) *Service {
	return &Service{
		accounts: accounts,
		tokens:   tokens,
		metrics:  m,
	}
}

// ExecuteTrade buys or sells quantity units of symbol for userId at the current price.
// Validation failures come back as an unsuccessful result and leave the wallet untouched.
func (s *Service) ExecuteTrade(ctx context.Context, userId int64, symbol string, quantity int64, direction models.TradeDirection) (*models.TradeResult, error) {
	zap.L().Info("Executing trade",
		zap.Int64("user_id", userId),
		zap.String("symbol", symbol),
		zap.Int64("quantity", quantity),
		zap.String("direction", string(direction)))

	result := &models.TradeResult{
		UserId:    userId,
		Symbol:    symbol,
		Direction: direction,
		Quantity:  quantity,
	}

	price, wallet, err := s.execute(ctx, userId, symbol, quantity, direction)
	if err != nil {
		result.Code = store.ResultCode(err)
		result.Error = err.Error()
		s.metrics.ObserveTrade(string(direction), result.Code, 0)

		if result.Code == models.CodeUnavailable {
			zap.L().Error("Trade failed", zap.Int64("user_id", userId), zap.String("symbol", symbol), zap.Error(err))
		} else {
			zap.L().Warn("Trade declined",
				zap.Int64("user_id", userId),
				zap.String("symbol", symbol),
				zap.String("code", result.Code),
				zap.Error(err))
		}
		return result, nil
	}

	total := price.Mul(decimal.NewFromInt(quantity))
	result.Success = true
	result.Code = models.CodeOK
	result.Price = price
	result.Total = total
	result.NewBalance = wallet.Balance

	volume, _ := total.Float64()
	s.metrics.ObserveTrade(string(direction), models.CodeOK, volume)
	return result, nil
}

func (s *Service) execute(ctx context.Context, userId int64, symbol string, quantity int64, direction models.TradeDirection) (decimal.Decimal, *models.Wallet, error) {
	if quantity <= 0 {
		return decimal.Zero, nil, fmt.Errorf("%w: quantity must be a positive integer, got %d", store.ErrInvalidInput, quantity)
	}
	if _, ok := models.ParseTradeDirection(string(direction)); !ok {
		return decimal.Zero, nil, fmt.Errorf("%w: unknown trade direction %q", store.ErrInvalidInput, direction)
	}

	account, err := s.accounts.GetAccount(ctx, userId)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if account.IsBanned {
		return decimal.Zero, nil, store.ErrAccountBanned
	}

	token, err := s.tokens.GetToken(ctx, symbol)
	if err != nil {
		return decimal.Zero, nil, err
	}

	wallet, err := s.accounts.GetWallet(ctx, userId)
	if err != nil {
		return decimal.Zero, nil, err
	}

	total := token.Price.Mul(decimal.NewFromInt(quantity))
	switch direction {
	case models.DirectionBuy:
		if wallet.Balance.LessThan(total) {
			return decimal.Zero, nil, fmt.Errorf("%w: need %s, have %s", store.ErrInsufficientFunds, total.String(), wallet.Balance.String())
		}
	case models.DirectionSell:
		if owned := wallet.Quantity(symbol); owned < quantity {
			return decimal.Zero, nil, fmt.Errorf("%w: own %d %s, selling %d", store.ErrInsufficientHoldings, owned, symbol, quantity)
		}
	}

	updated, err := s.accounts.ApplyTrade(ctx, store.ApplyTradeParams{
		UserId:    userId,
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     token.Price,
		Direction: direction,
	})
	if err != nil {
		return decimal.Zero, nil, err
	}
	return token.Price, updated, nil
}

// Quote returns the live price and the most the user could trade at that price.
func (s *Service) Quote(ctx context.Context, userId int64, symbol string, direction models.TradeDirection) (*models.TradeQuote, error) {
	if _, ok := models.ParseTradeDirection(string(direction)); !ok {
		return nil, fmt.Errorf("%w: unknown trade direction %q", store.ErrInvalidInput, direction)
	}

	token, err := s.tokens.GetToken(ctx, symbol)
	if err != nil {
		return nil, err
	}
	wallet, err := s.accounts.GetWallet(ctx, userId)
	if err != nil {
		return nil, err
	}

	quote := &models.TradeQuote{
		Symbol:    symbol,
		Direction: direction,
		Price:     token.Price,
		Balance:   wallet.Balance,
		Owned:     wallet.Quantity(symbol),
	}
	if direction == models.DirectionBuy {
		if token.Price.IsPositive() && wallet.Balance.IsPositive() {
			quote.MaxQuantity = wallet.Balance.Div(token.Price).Floor().IntPart()
		}
	} else {
		quote.MaxQuantity = quote.Owned
	}
	return quote, nil
}
