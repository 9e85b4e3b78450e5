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

package api

import (
	"context"
	"strings"

	"token-exchange-go/internal/models"
	"token-exchange-go/internal/session"
	"token-exchange-go/internal/store"

	"go.uber.org/zap"
)

// ExecuteTrade buys or sells quantity units at the live price.
func (s *ExchangeService) ExecuteTrade(ctx context.Context, userId int64, symbol string, quantity int64, direction models.TradeDirection) (*models.TradeResult, error) {
	return s.trades.ExecuteTrade(ctx, userId, normalizeSymbol(symbol), quantity, direction)
}

// StageTrade quotes a trade and remembers the user's choice of symbol and side
// until ConfirmTrade, CancelTrade or the session TTL.
func (s *ExchangeService) StageTrade(ctx context.Context, userId int64, symbol string, direction models.TradeDirection) (*models.QuoteResult, error) {
	symbol = normalizeSymbol(symbol)

	quote, err := s.trades.Quote(ctx, userId, symbol, direction)
	if err != nil {
		code := store.ResultCode(err)
		zap.L().Warn("Trade quote failed",
			zap.Int64("user_id", userId),
			zap.String("symbol", symbol),
			zap.String("code", code),
			zap.Error(err))
		return &models.QuoteResult{Success: false, Code: code, Error: err.Error()}, nil
	}

	intent := s.sessions.Stage(session.Intent{
		UserId:    userId,
		Symbol:    symbol,
		Direction: direction,
		Quote:     quote,
	})
	quote.ExpiresAt = intent.ExpiresAt

	return &models.QuoteResult{Success: true, Code: models.CodeOK, Quote: quote}, nil
}

// ConfirmTrade executes the staged intent for quantity units. The price is read
// again at execution and may differ from the quote.
func (s *ExchangeService) ConfirmTrade(ctx context.Context, userId int64, quantity int64) (*models.TradeResult, error) {
	intent, ok := s.sessions.Take(userId)
	if !ok {
		return &models.TradeResult{
			Success: false,
			Code:    models.CodeNotFound,
			UserId:  userId,
			Error:   "no staged trade, it may have expired",
		}, nil
	}

	return s.trades.ExecuteTrade(ctx, userId, intent.Symbol, quantity, intent.Direction)
}

// CancelTrade drops any staged intent for userId.
func (s *ExchangeService) CancelTrade(userId int64) bool {
	return s.sessions.Cancel(userId)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
