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

	"go.uber.org/zap"
)

// GetOrCreateAccount registers userId on first contact. A referrer is only honoured
// when the account is new; repeated calls never credit the referrer again.
func (s *ExchangeService) GetOrCreateAccount(ctx context.Context, userId int64, referrerId *int64) (*models.AccountResult, error) {
	if userId <= 0 {
		return &models.AccountResult{
			Success: false,
			Code:    models.CodeInvalid,
			Error:   "user_id must be positive",
		}, nil
	}

	account, created, err := s.store.GetOrCreateAccount(ctx, store.CreateAccountParams{
		UserId:        userId,
		ReferrerId:    referrerId,
		ReferralBonus: s.ledger.ReferralBonus,
	})
	if err != nil {
		zap.L().Error("Failed to get or create account", zap.Int64("user_id", userId), zap.Error(err))
		return &models.AccountResult{
			Success: false,
			Code:    store.ResultCode(err),
			Error:   err.Error(),
		}, nil
	}

	return &models.AccountResult{
		Success: true,
		Code:    models.CodeOK,
		Account: account,
		Created: created,
	}, nil
}

// SetBanned flips the ban flag. Banned accounts keep their balance but cannot
// trade, request transactions or redeem codes.
func (s *ExchangeService) SetBanned(ctx context.Context, userId int64, banned bool) (*models.CommandResult, error) {
	if err := s.store.SetBanned(ctx, userId, banned); err != nil {
		zap.L().Warn("Failed to update ban flag", zap.Int64("user_id", userId), zap.Error(err))
		return &models.CommandResult{Success: false, Code: store.ResultCode(err), Error: err.Error()}, nil
	}

	zap.L().Info("Ban flag updated", zap.Int64("user_id", userId), zap.Bool("banned", banned))
	return &models.CommandResult{Success: true, Code: models.CodeOK}, nil
}

// GetLedgerEntries returns the audit trail for userId, newest first
func (s *ExchangeService) GetLedgerEntries(ctx context.Context, userId int64, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	entries, err := s.store.GetLedgerEntries(ctx, userId, limit)
	if err != nil {
		zap.L().Error("Failed to get ledger entries", zap.Int64("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve ledger entries: %w", err)
	}
	return entries, nil
}
