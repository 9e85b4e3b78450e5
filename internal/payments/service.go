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

package payments

import (
	"context"
	"fmt"
	"strings"

	"token-exchange-go/internal/metrics"
	"token-exchange-go/internal/models"
	"token-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service files deposit and withdraw requests and carries them through admin review.
// Deposits credit the wallet on approval; withdrawals debit it when requested and
// refund it on rejection.
type Service struct {
	accounts      store.AccountStore
	transactions  store.TransactionStore
	minWithdrawal decimal.Decimal
	metrics       *metrics.Metrics
}

func NewService(accounts store.AccountStore, transactions store.TransactionStore, cfg models.LedgerConfig, m *metrics.Metrics) *Service {
	return &Service{
		accounts:      accounts,
		transactions:  transactions,
		minWithdrawal: cfg.MinWithdrawal,
		metrics:       m,
	}
}

func (s *Service) RequestDeposit(ctx context.Context, userId int64, amount decimal.Decimal, method, details string) (*models.RequestResult, error) {
	return s.request(ctx, store.CreateTransactionParams{
		UserId:  userId,
		Type:    models.TransactionDeposit,
		Amount:  amount,
		Method:  method,
		Details: details,
	})
}

// RequestWithdrawal holds amount immediately; the request fails if the balance cannot
// cover it or it is below the configured minimum.
func (s *Service) RequestWithdrawal(ctx context.Context, userId int64, amount decimal.Decimal, method, details string) (*models.RequestResult, error) {
	return s.request(ctx, store.CreateTransactionParams{
		UserId:  userId,
		Type:    models.TransactionWithdraw,
		Amount:  amount,
		Method:  method,
		Details: details,
	})
}

func (s *Service) request(ctx context.Context, params store.CreateTransactionParams) (*models.RequestResult, error) {
	zap.L().Info("Processing transaction request",
		zap.Int64("user_id", params.UserId),
		zap.String("type", string(params.Type)),
		zap.String("amount", params.Amount.String()),
		zap.String("method", params.Method))

	transaction, err := s.create(ctx, params)
	if err != nil {
		code := store.ResultCode(err)
		if code == models.CodeUnavailable {
			zap.L().Error("Transaction request failed", zap.Int64("user_id", params.UserId), zap.Error(err))
		} else {
			zap.L().Warn("Transaction request declined",
				zap.Int64("user_id", params.UserId),
				zap.String("type", string(params.Type)),
				zap.String("code", code),
				zap.Error(err))
		}
		s.metrics.ObserveTransaction(string(params.Type), "declined")
		return &models.RequestResult{
			Success: false,
			Code:    code,
			Amount:  params.Amount,
			Error:   err.Error(),
		}, nil
	}

	s.metrics.ObserveTransaction(string(params.Type), "requested")

	newBalance := decimal.Zero
	if account, err := s.accounts.GetAccount(ctx, params.UserId); err != nil {
		zap.L().Error("Failed to get updated balance", zap.Error(err))
	} else {
		newBalance = account.Balance
	}

	return &models.RequestResult{
		Success:    true,
		Code:       models.CodeOK,
		TxId:       transaction.TxId,
		Amount:     transaction.Amount,
		NewBalance: newBalance,
	}, nil
}

func (s *Service) create(ctx context.Context, params store.CreateTransactionParams) (*models.Transaction, error) {
	params.Method = strings.TrimSpace(params.Method)
	params.Details = strings.TrimSpace(params.Details)

	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", store.ErrInvalidInput, params.Amount.String())
	}
	if params.Method == "" {
		return nil, fmt.Errorf("%w: payment method is required", store.ErrInvalidInput)
	}
	if params.Type == models.TransactionWithdraw && params.Amount.LessThan(s.minWithdrawal) {
		return nil, fmt.Errorf("%w: minimum withdrawal is %s", store.ErrInvalidInput, s.minWithdrawal.String())
	}

	account, err := s.accounts.GetAccount(ctx, params.UserId)
	if err != nil {
		return nil, err
	}
	if account.IsBanned {
		return nil, store.ErrAccountBanned
	}

	return s.transactions.CreateTransaction(ctx, params)
}

// Approve completes a pending transaction
func (s *Service) Approve(ctx context.Context, txId string) (*models.ApprovalResult, error) {
	return s.finalize(ctx, txId, models.StatusCompleted)
}

// Reject rejects a pending transaction
func (s *Service) Reject(ctx context.Context, txId string) (*models.ApprovalResult, error) {
	return s.finalize(ctx, txId, models.StatusRejected)
}

func (s *Service) finalize(ctx context.Context, txId string, status models.TransactionStatus) (*models.ApprovalResult, error) {
	txId = strings.TrimSpace(txId)
	if txId == "" {
		return &models.ApprovalResult{Success: false, Code: models.CodeInvalid, Error: "transaction id is required"}, nil
	}

	transaction, err := s.transactions.FinalizeTransaction(ctx, txId, status)
	if err != nil {
		code := store.ResultCode(err)
		switch code {
		case models.CodeAlreadyProcessed:
			zap.L().Info("Transaction already processed, ignoring decision",
				zap.String("tx_id", txId),
				zap.String("status", string(status)))
		case models.CodeUnavailable:
			zap.L().Error("Failed to finalize transaction", zap.String("tx_id", txId), zap.Error(err))
		default:
			zap.L().Warn("Transaction decision rejected", zap.String("tx_id", txId), zap.Error(err))
		}
		return &models.ApprovalResult{Success: false, Code: code, Error: err.Error()}, nil
	}

	s.metrics.ObserveTransaction(string(transaction.Type), string(transaction.Status))
	return &models.ApprovalResult{Success: true, Code: models.CodeOK, Transaction: transaction}, nil
}

// History returns the user's requests, newest first
func (s *Service) History(ctx context.Context, userId int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.transactions.ListUserTransactions(ctx, userId, limit)
}

// Pending returns the admin review queue, oldest first
func (s *Service) Pending(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.transactions.ListPendingTransactions(ctx, limit)
}
