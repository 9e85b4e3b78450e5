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

// RequestDeposit files a deposit for review. Nothing is credited until approval.
func (s *ExchangeService) RequestDeposit(ctx context.Context, userId int64, amount decimal.Decimal, method, details string) (*models.RequestResult, error) {
	return s.payments.RequestDeposit(ctx, userId, amount, method, details)
}

// RequestWithdrawal files a withdrawal and holds the amount immediately.
func (s *ExchangeService) RequestWithdrawal(ctx context.Context, userId int64, amount decimal.Decimal, method, details string) (*models.RequestResult, error) {
	return s.payments.RequestWithdrawal(ctx, userId, amount, method, details)
}

func (s *ExchangeService) ApproveTransaction(ctx context.Context, txId string) (*models.ApprovalResult, error) {
	return s.payments.Approve(ctx, txId)
}

func (s *ExchangeService) RejectTransaction(ctx context.Context, txId string) (*models.ApprovalResult, error) {
	return s.payments.Reject(ctx, txId)
}

// GetPendingTransactions returns the review queue, oldest first
func (s *ExchangeService) GetPendingTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	transactions, err := s.payments.Pending(ctx, limit)
	if err != nil {
		zap.L().Error("Failed to get pending transactions", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve pending transactions: %w", err)
	}
	return transactions, nil
}
