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

package giftcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"token-exchange-go/internal/metrics"
	"token-exchange-go/internal/models"
	"token-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	alphabet          = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	DefaultCodeLength = 10
	minCodeLength     = 6
	maxGenerateTries  = 5
)

type Service struct {
	accounts   store.AccountStore
	codes      store.GiftCodeStore
	codeLength int
	metrics    *metrics.Metrics
}

func NewService(accounts store.AccountStore, codes store.GiftCodeStore, cfg models.LedgerConfig, m *metrics.Metrics) *Service {
	length := cfg.GiftCodeLength
	if length < minCodeLength {
		length = DefaultCodeLength
	}
	return &Service{
		accounts:   accounts,
		codes:      codes,
		codeLength: length,
		metrics:    m,
	}
}

// Generate creates a new unused code worth amount. Collisions with an existing
// code are retried with a fresh random code.
func (s *Service) Generate(ctx context.Context, amount decimal.Decimal) (*models.GiftCode, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: gift amount must be positive, got %s", store.ErrInvalidInput, amount.String())
	}

	for attempt := 1; attempt <= maxGenerateTries; attempt++ {
		code, err := randomCode(s.codeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate gift code: %w", err)
		}

		gift, err := s.codes.CreateGiftCode(ctx, code, amount)
		if errors.Is(err, store.ErrAlreadyExists) {
			zap.L().Debug("Gift code collision, retrying", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}

		zap.L().Info("Gift code generated", zap.String("amount", amount.String()))
		return gift, nil
	}

	return nil, fmt.Errorf("%w: could not allocate a unique gift code after %d attempts", store.ErrInvalidState, maxGenerateTries)
}

// Redeem credits the code's amount to userId. Only the first redemption of a code
// succeeds; later attempts get CodeAlreadyProcessed.
func (s *Service) Redeem(ctx context.Context, userId int64, code string) (*models.RedeemResult, error) {
	code = Normalize(code)

	gift, err := s.redeem(ctx, userId, code)
	if err != nil {
		result := store.ResultCode(err)
		s.metrics.ObserveRedemption(result)
		if result == models.CodeUnavailable {
			zap.L().Error("Gift code redemption failed", zap.Int64("user_id", userId), zap.Error(err))
		} else {
			zap.L().Warn("Gift code redemption declined",
				zap.Int64("user_id", userId),
				zap.String("code", result),
				zap.Error(err))
		}
		return &models.RedeemResult{Success: false, Code: result, Error: err.Error()}, nil
	}

	s.metrics.ObserveRedemption(models.CodeOK)
	return &models.RedeemResult{Success: true, Code: models.CodeOK, Amount: gift.Amount}, nil
}

func (s *Service) redeem(ctx context.Context, userId int64, code string) (*models.GiftCode, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: gift code is required", store.ErrInvalidInput)
	}

	account, err := s.accounts.GetAccount(ctx, userId)
	if err != nil {
		return nil, err
	}
	if account.IsBanned {
		return nil, store.ErrAccountBanned
	}

	return s.codes.RedeemGiftCode(ctx, userId, code)
}

// Normalize trims whitespace and upper-cases user input so codes are matched
// case-insensitively.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func randomCode(length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}
