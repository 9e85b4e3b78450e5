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
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"token-exchange-go/internal/database"
	"token-exchange-go/internal/models"
	"token-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (*Service, *database.Service) {
	t.Helper()
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "gift.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return NewService(db, db, models.LedgerConfig{GiftCodeLength: 10}, nil), db
}

func createAccount(t *testing.T, db *database.Service, userId int64) {
	t.Helper()
	_, _, err := db.GetOrCreateAccount(context.Background(), store.CreateAccountParams{UserId: userId})
	require.NoError(t, err)
}

func TestGenerate(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	gift, err := service.Generate(ctx, decimal.NewFromInt(250))
	require.NoError(t, err)
	assert.Len(t, gift.Code, 10)
	assert.False(t, gift.Used)
	assert.True(t, gift.Amount.Equal(decimal.NewFromInt(250)))
	for _, c := range gift.Code {
		assert.True(t, strings.ContainsRune(alphabet, c), "unexpected character %q", c)
	}

	_, err = service.Generate(ctx, decimal.Zero)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestRedeem_OnlyOnce(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()
	createAccount(t, db, 1)
	createAccount(t, db, 2)

	gift, err := service.Generate(ctx, decimal.NewFromInt(75))
	require.NoError(t, err)

	result, err := service.Redeem(ctx, 1, "  "+strings.ToLower(gift.Code)+" ")
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(75)))

	result, err = service.Redeem(ctx, 2, gift.Code)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.CodeAlreadyProcessed, result.Code)

	account, err := db.GetAccount(ctx, 2)
	require.NoError(t, err)
	assert.True(t, account.Balance.IsZero())

	stored, err := db.GetGiftCode(ctx, gift.Code)
	require.NoError(t, err)
	require.NotNil(t, stored.RedeemedBy)
	assert.Equal(t, int64(1), *stored.RedeemedBy)
}

func TestRedeem_Declined(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()
	createAccount(t, db, 1)
	createAccount(t, db, 2)
	require.NoError(t, db.SetBanned(ctx, 2, true))

	gift, err := service.Generate(ctx, decimal.NewFromInt(10))
	require.NoError(t, err)

	tests := []struct {
		name   string
		userId int64
		code   string
		want   string
	}{
		{"empty code", 1, "   ", models.CodeInvalid},
		{"unknown code", 1, "NOPE", models.CodeNotFound},
		{"banned account", 2, gift.Code, models.CodeDeclined},
		{"unknown account", 9, gift.Code, models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := service.Redeem(ctx, tt.userId, tt.code)
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Equal(t, tt.want, result.Code)
		})
	}

	stored, err := db.GetGiftCode(ctx, gift.Code)
	require.NoError(t, err)
	assert.False(t, stored.Used)
}

func TestRedeem_Concurrent(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	gift, err := service.Generate(ctx, decimal.NewFromInt(100))
	require.NoError(t, err)

	const users = 8
	for i := int64(1); i <= users; i++ {
		createAccount(t, db, i)
	}

	var wg sync.WaitGroup
	results := make([]*models.RedeemResult, users)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := service.Redeem(ctx, int64(i+1), gift.Code)
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	successes := 0
	total := decimal.Zero
	for i, result := range results {
		if result.Success {
			successes++
		} else {
			assert.Equal(t, models.CodeAlreadyProcessed, result.Code)
		}
		account, err := db.GetAccount(ctx, int64(i+1))
		require.NoError(t, err)
		total = total.Add(account.Balance)
	}
	assert.Equal(t, 1, successes)
	assert.True(t, total.Equal(decimal.NewFromInt(100)), "total credited %s", total)
}

type mockCodes struct {
	mock.Mock
}

func (m *mockCodes) CreateGiftCode(ctx context.Context, code string, amount decimal.Decimal) (*models.GiftCode, error) {
	args := m.Called(ctx, code, amount)
	gift, _ := args.Get(0).(*models.GiftCode)
	return gift, args.Error(1)
}

func (m *mockCodes) RedeemGiftCode(ctx context.Context, userId int64, code string) (*models.GiftCode, error) {
	args := m.Called(ctx, userId, code)
	gift, _ := args.Get(0).(*models.GiftCode)
	return gift, args.Error(1)
}

func (m *mockCodes) GetGiftCode(ctx context.Context, code string) (*models.GiftCode, error) {
	args := m.Called(ctx, code)
	gift, _ := args.Get(0).(*models.GiftCode)
	return gift, args.Error(1)
}

func TestGenerate_RetriesCollisions(t *testing.T) {
	codes := &mockCodes{}
	amount := decimal.NewFromInt(5)
	codes.On("CreateGiftCode", mock.Anything, mock.Anything, amount).Return(nil, store.ErrAlreadyExists).Twice()
	codes.On("CreateGiftCode", mock.Anything, mock.Anything, amount).Return(&models.GiftCode{Code: "FRESH12345", Amount: amount}, nil).Once()

	service := NewService(nil, codes, models.LedgerConfig{}, nil)
	gift, err := service.Generate(context.Background(), amount)
	require.NoError(t, err)
	assert.Equal(t, "FRESH12345", gift.Code)
	codes.AssertNumberOfCalls(t, "CreateGiftCode", 3)
}

func TestGenerate_GivesUpAfterRepeatedCollisions(t *testing.T) {
	codes := &mockCodes{}
	codes.On("CreateGiftCode", mock.Anything, mock.Anything, mock.Anything).Return(nil, store.ErrAlreadyExists)

	service := NewService(nil, codes, models.LedgerConfig{}, nil)
	_, err := service.Generate(context.Background(), decimal.NewFromInt(5))
	assert.ErrorIs(t, err, store.ErrInvalidState)
	assert.Equal(t, models.CodeDeclined, store.ResultCode(err), "exhausted retries are a refusal, not an outage")
	codes.AssertNumberOfCalls(t, "CreateGiftCode", maxGenerateTries)
	assert.Equal(t, DefaultCodeLength, service.codeLength)
}
