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

	"token-exchange-go/internal/models"
	"token-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *ExchangeService) GenerateGiftCode(ctx context.Context, amount decimal.Decimal) (*models.GiftCodeResult, error) {
	gift, err := s.gifts.Generate(ctx, amount)
	if err != nil {
		zap.L().Warn("Gift code generation failed", zap.String("amount", amount.String()), zap.Error(err))
		return &models.GiftCodeResult{Success: false, Code: store.ResultCode(err), Error: err.Error()}, nil
	}
	return &models.GiftCodeResult{Success: true, Code: models.CodeOK, GiftCode: gift}, nil
}

func (s *ExchangeService) RedeemGiftCode(ctx context.Context, userId int64, code string) (*models.RedeemResult, error) {
	return s.gifts.Redeem(ctx, userId, code)
}
