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
	"fmt"

	"token-exchange-go/internal/models"
	"token-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetTokens lists the catalog in seed order. It is empty when the store is down.
func (s *ExchangeService) GetTokens(ctx context.Context) []models.Token {
	return s.market.Tokens(ctx)
}

// GetToken returns one token with its price history window
func (s *ExchangeService) GetToken(ctx context.Context, symbol string) (*models.Token, error) {
	token, err := s.market.Token(ctx, normalizeSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve token %s: %w", symbol, err)
	}
	return token, nil
}

// GetROI ranks tokens by growth over their base price, best first
func (s *ExchangeService) GetROI(ctx context.Context) []models.ROIEntry {
	return s.market.ComputeROI(ctx)
}

// RigPrice overrides a token's price and re-anchors its base to the new value.
func (s *ExchangeService) RigPrice(ctx context.Context, symbol string, price decimal.Decimal) (*models.PriceResult, error) {
	symbol = normalizeSymbol(symbol)

	token, err := s.market.RigPrice(ctx, symbol, price)
	if err != nil {
		zap.L().Warn("Price override failed",
			zap.String("symbol", symbol),
			zap.String("price", price.String()),
			zap.Error(err))
		return &models.PriceResult{Success: false, Code: store.ResultCode(err), Error: err.Error()}, nil
	}
	return &models.PriceResult{Success: true, Code: models.CodeOK, Token: token}, nil
}
