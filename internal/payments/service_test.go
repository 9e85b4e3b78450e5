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
	"path/filepath"
	"sync"
	"testing"
	"time"

	"token-exchange-go/internal/database"
	"token-exchange-go/internal/models"
	"token-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (*Service, *database.Service) {
	t.Helper()
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "payments.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	cfg := models.LedgerConfig{MinWithdrawal: decimal.NewFromInt(100)}
	return NewService(db, db, cfg, nil), db
}

func fund(t *testing.T, db *database.Service, userId int64, amount int64) {
	t.Helper()
	ctx := context.Background()
	_, _, err := db.GetOrCreateAccount(ctx, store.CreateAccountParams{UserId: userId})
	require.NoError(t, err)
	if amount != 0 {
		_, err = db.AdjustBalance(ctx, userId, decimal.NewFromInt(amount), "test funding")
		require.NoError(t, err)
	}
}

func balance(t *testing.T, db *database.Service, userId int64) decimal.Decimal {
	t.Helper()
	account, err := db.GetAccount(context.Background(), userId)
	require.NoError(t, err)
	return account.Balance
}

func TestWithdrawal_RejectRefunds(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()
	fund(t, db, 1, 1000)

	result, err := service.RequestWithdrawal(ctx, 1, decimal.NewFromInt(300), "UPI", "user@upi")
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
	assert.Len(t, result.TxId, 8)
	assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(700)))

	approval, err := service.Reject(ctx, result.TxId)
	require.NoError(t, err)
	require.True(t, approval.Success)
	assert.Equal(t, models.StatusRejected, approval.Transaction.Status)
	assert.True(t, balance(t, db, 1).Equal(decimal.NewFromInt(1000)))
}

func TestWithdrawal_ApproveKeepsHold(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()
	fund(t, db, 1, 1000)

	result, err := service.RequestWithdrawal(ctx, 1, decimal.NewFromInt(300), "USDT", "TXYZ...")
	require.NoError(t, err)
	require.True(t, result.Success)

	approval, err := service.Approve(ctx, result.TxId)
	require.NoError(t, err)
	require.True(t, approval.Success)
	assert.Equal(t, models.StatusCompleted, approval.Transaction.Status)
	assert.True(t, balance(t, db, 1).Equal(decimal.NewFromInt(700)))

	again, err := service.Reject(ctx, result.TxId)
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.Equal(t, models.CodeAlreadyProcessed, again.Code)
	assert.True(t, balance(t, db, 1).Equal(decimal.NewFromInt(700)))
}

func TestDeposit_ApproveCreditsAndMarksFirstDeposit(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()
	fund(t, db, 1, 0)

	result, err := service.RequestDeposit(ctx, 1, decimal.NewFromInt(500), "UPI", "123456789012")
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.True(t, result.NewBalance.IsZero(), "deposits are not credited until approved")

	pending, err := service.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, result.TxId, pending[0].TxId)

	approval, err := service.Approve(ctx, result.TxId)
	require.NoError(t, err)
	require.True(t, approval.Success)

	account, err := db.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(500)))
	assert.True(t, account.FirstDepositDone)

	pending, err = service.Pending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	history, err := service.History(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusCompleted, history[0].Status)
}

func TestRequest_Declined(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()
	fund(t, db, 1, 150)
	fund(t, db, 2, 1000)
	require.NoError(t, db.SetBanned(ctx, 2, true))

	tests := []struct {
		name string
		call   func() (*models.RequestResult, error)
		code string
	}{
		{"below minimum", func() (*models.RequestResult, error) {
			return service.RequestWithdrawal(ctx, 1, decimal.NewFromInt(99), "UPI", "x")
		}, models.CodeInvalid},
		{"over balance", func() (*models.RequestResult, error) {
			return service.RequestWithdrawal(ctx, 1, decimal.NewFromInt(151), "UPI", "x")
		}, models.CodeDeclined},
		{"missing method", func() (*models.RequestResult, error) {
			return service.RequestDeposit(ctx, 1, decimal.NewFromInt(100), "  ", "x")
		}, models.CodeInvalid},
		{"negative amount", func() (*models.RequestResult, error) {
			return service.RequestDeposit(ctx, 1, decimal.NewFromInt(-5), "UPI", "x")
		}, models.CodeInvalid},
		{"banned", func() (*models.RequestResult, error) {
			return service.RequestDeposit(ctx, 2, decimal.NewFromInt(100), "UPI", "x")
		}, models.CodeDeclined},
		{"unknown user", func() (*models.RequestResult, error) {
			return service.RequestDeposit(ctx, 3, decimal.NewFromInt(100), "UPI", "x")
		}, models.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.call()
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Equal(t, tt.code, result.Code)
		})
	}

	assert.True(t, balance(t, db, 1).Equal(decimal.NewFromInt(150)))
}

func TestFinalize_UnknownAndEmpty(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	result, err := service.Approve(ctx, "nope0000")
	require.NoError(t, err)
	assert.Equal(t, models.CodeNotFound, result.Code)

	result, err = service.Reject(ctx, " ")
	require.NoError(t, err)
	assert.Equal(t, models.CodeInvalid, result.Code)
}

func TestFinalize_ConcurrentDecisions(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()
	fund(t, db, 1, 1000)

	request, err := service.RequestWithdrawal(ctx, 1, decimal.NewFromInt(400), "UPI", "x")
	require.NoError(t, err)
	require.True(t, request.Success)

	var wg sync.WaitGroup
	results := make(chan *models.ApprovalResult, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var result *models.ApprovalResult
			var err error
			if i%2 == 0 {
				result, err = service.Approve(ctx, request.TxId)
			} else {
				result, err = service.Reject(ctx, request.TxId)
			}
			assert.NoError(t, err)
			results <- result
		}(i)
	}
	wg.Wait()
	close(results)

	var winner *models.ApprovalResult
	for result := range results {
		if result.Success {
			require.Nil(t, winner, "more than one decision succeeded")
			winner = result
			continue
		}
		assert.Equal(t, models.CodeAlreadyProcessed, result.Code)
	}
	require.NotNil(t, winner)

	expected := decimal.NewFromInt(600)
	if winner.Transaction.Status == models.StatusRejected {
		expected = decimal.NewFromInt(1000)
	}
	assert.True(t, balance(t, db, 1).Equal(expected), "got %s", balance(t, db, 1))
	require.NoError(t, db.ReconcileBalance(ctx, 1))
}
