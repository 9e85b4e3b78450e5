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

package database

import (
	"context"
	"errors"
	"sync"
	"testing"

	"token-exchange-go/internal/models"
	"token-exchange-go/internal/store"

	"github.com/shopspring/decimal"
)

func createWithdrawal(t *testing.T, service *Service, userId int64, amount int64) *models.Transaction {
	t.Helper()
	transaction, err := service.CreateTransaction(context.Background(), store.CreateTransactionParams{
		UserId:  userId,
		Type:    models.TransactionWithdraw,
		Amount:  decimal.NewFromInt(amount),
		Method:  "UPI",
		Details: "user@upi",
	})
	if err != nil {
		t.Fatalf("CreateTransaction withdraw failed: %v", err)
	}
	return transaction
}

func balanceOf(t *testing.T, service *Service, userId int64) decimal.Decimal {
	t.Helper()
	account, err := service.GetAccount(context.Background(), userId)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	return account.Balance
}

func TestCreateTransaction_WithdrawHoldsFunds(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	createFundedAccount(t, service, 1, "1000")
	transaction := createWithdrawal(t, service, 1, 300)

	if len(transaction.TxId) != txIdLength {
		t.Errorf("Expected %d character tx id, got %q", txIdLength, transaction.TxId)
	}
	if transaction.Status != models.StatusPending {
		t.Errorf("Expected pending status, got %s", transaction.Status)
	}
	if balance := balanceOf(t, service, 1); !balance.Equal(decimal.NewFromInt(700)) {
		t.Errorf("Expected balance 700 after hold, got %s", balance.String())
	}
}

func TestCreateTransaction_Validation(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	createFundedAccount(t, service, 1, "100")

	tests := []struct {
		name     string
		params   store.CreateTransactionParams
		expected error
	}{
		{"over balance", store.CreateTransactionParams{UserId: 1, Type: models.TransactionWithdraw, Amount: decimal.NewFromInt(101), Method: "UPI"}, store.ErrInsufficientFunds},
		{"zero amount", store.CreateTransactionParams{UserId: 1, Type: models.TransactionDeposit, Amount: decimal.Zero, Method: "UPI"}, store.ErrInvalidInput},
		{"bad type", store.CreateTransactionParams{UserId: 1, Type: "transfer", Amount: decimal.NewFromInt(1), Method: "UPI"}, store.ErrInvalidInput},
		{"unknown user", store.CreateTransactionParams{UserId: 404, Type: models.TransactionDeposit, Amount: decimal.NewFromInt(1), Method: "UPI"}, store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.CreateTransaction(ctx, tt.params); !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}

	if balance := balanceOf(t, service, 1); !balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected untouched balance 100, got %s", balance.String())
	}
	pending, err := service.ListPendingTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingTransactions failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected no pending transactions, got %d", len(pending))
	}
}

func TestFinalizeTransaction_WithdrawRejectRefunds(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	createFundedAccount(t, service, 1, "1000")
	transaction := createWithdrawal(t, service, 1, 300)

	finalized, err := service.FinalizeTransaction(ctx, transaction.TxId, models.StatusRejected)
	if err != nil {
		t.Fatalf("FinalizeTransaction failed: %v", err)
	}
	if finalized.Status != models.StatusRejected || finalized.ProcessedAt == nil {
		t.Errorf("Expected rejected with processed time, got %s", finalized.Status)
	}
	if balance := balanceOf(t, service, 1); !balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected refund to 1000, got %s", balance.String())
	}
	if err := service.ReconcileBalance(ctx, 1); err != nil {
		t.Errorf("ReconcileBalance failed: %v", err)
	}
}

func TestFinalizeTransaction_WithdrawApproveKeepsHold(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	createFundedAccount(t, service, 1, "1000")
	transaction := createWithdrawal(t, service, 1, 300)

	if _, err := service.FinalizeTransaction(ctx, transaction.TxId, models.StatusCompleted); err != nil {
		t.Fatalf("FinalizeTransaction failed: %v", err)
	}
	if balance := balanceOf(t, service, 1); !balance.Equal(decimal.NewFromInt(700)) {
		t.Errorf("Expected balance to stay 700, got %s", balance.String())
	}

	// A second decision is rejected and changes nothing
	_, err := service.FinalizeTransaction(ctx, transaction.TxId, models.StatusRejected)
	if !errors.Is(err, store.ErrAlreadyProcessed) {
		t.Fatalf("Expected ErrAlreadyProcessed, got %v", err)
	}
	if !errors.Is(err, store.ErrInvalidState) {
		t.Errorf("Expected ErrAlreadyProcessed to match ErrInvalidState")
	}
	if balance := balanceOf(t, service, 1); !balance.Equal(decimal.NewFromInt(700)) {
		t.Errorf("Expected balance to stay 700 after second decision, got %s", balance.String())
	}
}

func TestFinalizeTransaction_DepositApprovalCredits(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	createFundedAccount(t, service, 1, "0")
	transaction, err := service.CreateTransaction(ctx, store.CreateTransactionParams{
		UserId: 1, Type: models.TransactionDeposit, Amount: decimal.NewFromInt(250), Method: "UPI", Details: "UTR123456",
	})
	if err != nil {
		t.Fatalf("CreateTransaction deposit failed: %v", err)
	}
	if balance := balanceOf(t, service, 1); !balance.IsZero() {
		t.Errorf("Expected no credit before approval, got %s", balance.String())
	}

	if _, err := service.FinalizeTransaction(ctx, transaction.TxId, models.StatusCompleted); err != nil {
		t.Fatalf("FinalizeTransaction failed: %v", err)
	}

	account, err := service.GetAccount(ctx, 1)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !account.Balance.Equal(decimal.NewFromInt(250)) {
		t.Errorf("Expected balance 250, got %s", account.Balance.String())
	}
	if !account.FirstDepositDone {
		t.Errorf("Expected first deposit flag to be set")
	}

	history, err := service.ListUserTransactions(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListUserTransactions failed: %v", err)
	}
	if len(history) != 1 || history[0].Status != models.StatusCompleted {
		t.Errorf("Expected one completed transaction, got %+v", history)
	}
}

func TestFinalizeTransaction_DepositRejectNoCredit(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	createFundedAccount(t, service, 1, "0")
	transaction, err := service.CreateTransaction(ctx, store.CreateTransactionParams{
		UserId: 1, Type: models.TransactionDeposit, Amount: decimal.NewFromInt(250), Method: "UPI",
	})
	if err != nil {
		t.Fatalf("CreateTransaction deposit failed: %v", err)
	}

	if _, err := service.FinalizeTransaction(ctx, transaction.TxId, models.StatusRejected); err != nil {
		t.Fatalf("FinalizeTransaction failed: %v", err)
	}
	if balance := balanceOf(t, service, 1); !balance.IsZero() {
		t.Errorf("Expected no credit after rejection, got %s", balance.String())
	}
}

func TestFinalizeTransaction_Errors(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := service.FinalizeTransaction(ctx, "deadbeef", models.StatusCompleted); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := service.FinalizeTransaction(ctx, "deadbeef", models.StatusPending); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for non-terminal status, got %v", err)
	}
}

func TestFinalizeTransaction_ConcurrentApprovals(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	createFundedAccount(t, service, 1, "0")
	transaction, err := service.CreateTransaction(ctx, store.CreateTransactionParams{
		UserId: 1, Type: models.TransactionDeposit, Amount: decimal.NewFromInt(100), Method: "UPI",
	})
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, alreadyProcessed := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.FinalizeTransaction(ctx, transaction.TxId, models.StatusCompleted)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, store.ErrAlreadyProcessed):
				alreadyProcessed++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || alreadyProcessed != 9 {
		t.Errorf("Expected 1 success and 9 already processed, got %d and %d", successes, alreadyProcessed)
	}
	if balance := balanceOf(t, service, 1); !balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected a single credit of 100, got %s", balance.String())
	}
}

func TestListUserPendingTransactions(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	createFundedAccount(t, service, 1, "1000")
	createFundedAccount(t, service, 2, "1000")

	open := createWithdrawal(t, service, 1, 100)
	createWithdrawal(t, service, 2, 100)
	for i := 0; i < defaultListLimit+5; i++ {
		done := createWithdrawal(t, service, 1, 1)
		if _, err := service.FinalizeTransaction(ctx, done.TxId, models.StatusCompleted); err != nil {
			t.Fatalf("FinalizeTransaction failed: %v", err)
		}
	}

	recent, err := service.ListUserTransactions(ctx, 1, defaultListLimit)
	if err != nil {
		t.Fatalf("ListUserTransactions failed: %v", err)
	}
	for _, tx := range recent {
		if tx.TxId == open.TxId {
			t.Fatalf("Expected the open request to be older than the latest page")
		}
	}

	pending, err := service.ListUserPendingTransactions(ctx, 1)
	if err != nil {
		t.Fatalf("ListUserPendingTransactions failed: %v", err)
	}
	if len(pending) != 1 || pending[0].TxId != open.TxId {
		t.Fatalf("Expected only %s pending for user 1, got %+v", open.TxId, pending)
	}
	if pending[0].Status != models.StatusPending {
		t.Errorf("Expected pending status, got %s", pending[0].Status)
	}

	none, err := service.ListUserPendingTransactions(ctx, 404)
	if err != nil {
		t.Fatalf("ListUserPendingTransactions failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no pending transactions for an unknown user, got %d", len(none))
	}
}
