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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetWallet returns the user's balance, holdings valued at current prices and
// any requests still awaiting review.
func (s *ExchangeService) GetWallet(ctx context.Context, userId int64) (*models.WalletSnapshot, error) {
	wallet, err := s.store.GetWallet(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get wallet", zap.Int64("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve wallet: %w", err)
	}

	snapshot := &models.WalletSnapshot{
		UserId:     userId,
		Balance:    wallet.Balance,
		AssetValue: decimal.Zero,
		Holdings:   []models.HoldingView{},
		Pending:    []models.Transaction{},
	}

	// Catalog order keeps the holdings list stable between calls
	for _, token := range s.market.Tokens(ctx) {
		quantity := wallet.Quantity(token.Symbol)
		if quantity <= 0 {
			continue
		}
		value := token.Price.Mul(decimal.NewFromInt(quantity))
		snapshot.Holdings = append(snapshot.Holdings, models.HoldingView{
			Symbol:   token.Symbol,
			Name:     token.Name,
			Quantity: quantity,
			Price:    token.Price,
			Value:    value,
			Invested: wallet.Invested[token.Symbol],
		})
		snapshot.AssetValue = snapshot.AssetValue.Add(value)
	}
	snapshot.NetWorth = snapshot.Balance.Add(snapshot.AssetValue)

	pending, err := s.store.ListUserPendingTransactions(ctx, userId)
	if err != nil {
		zap.L().Warn("Pending transactions unavailable for wallet", zap.Int64("user_id", userId), zap.Error(err))
		return snapshot, nil
	}
	snapshot.Pending = append(snapshot.Pending, pending...)

	return snapshot, nil
}

// GetTransactionHistory returns the user's deposit and withdraw requests, newest first
func (s *ExchangeService) GetTransactionHistory(ctx context.Context, userId int64, limit int) ([]models.Transaction, error) {
	transactions, err := s.payments.History(ctx, userId, limit)
	if err != nil {
		zap.L().Error("Failed to get transaction history", zap.Int64("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}
	return transactions, nil
}
