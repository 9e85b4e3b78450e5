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
	"database/sql"
	"errors"
	"fmt"

	"token-exchange-go/internal/models"
	"token-exchange-go/internal/store"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	txIdLength       = 8
	maxTxIdAttempts  = 5
	defaultListLimit = 50
)

func newTxId() string {
	return uuid.New().String()[:txIdLength]
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	var amountStr, txType, status string
	var processedAt sql.NullTime

	err := row.Scan(&t.TxId, &t.UserId, &txType, &amountStr, &t.Method, &t.Details,
		&status, &t.CreatedAt, &processedAt)
	if err != nil {
		return nil, err
	}

	t.Type = models.TransactionType(txType)
	t.Status = models.TransactionStatus(status)
	if processedAt.Valid {
		processed := processedAt.Time
		t.ProcessedAt = &processed
	}

	t.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	return &t, nil
}

func getTransaction(ctx context.Context, q queryer, txId string) (*models.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx, queryGetTransaction, txId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", store.ErrNotFound, txId)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// CreateTransaction records a pending deposit or withdraw request under a fresh short id.
// Withdraw requests debit the balance in the same transaction (pending hold) and fail
// with store.ErrInsufficientFunds when the balance cannot cover the amount.
func (s *Service) CreateTransaction(ctx context.Context, params store.CreateTransactionParams) (*models.Transaction, error) {
	if params.Type != models.TransactionDeposit && params.Type != models.TransactionWithdraw {
		return nil, fmt.Errorf("%w: unknown transaction type %q", store.ErrInvalidInput, params.Type)
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", store.ErrInvalidInput, params.Amount.String())
	}

	var transaction *models.Transaction
	err := s.inTx(ctx, "create_transaction", func(ctx context.Context, tx *sql.Tx) error {
		if _, err := getAccount(ctx, tx, params.UserId); err != nil {
			return err
		}

		txId, err := insertTransaction(ctx, tx, params)
		if err != nil {
			return err
		}

		if params.Type == models.TransactionWithdraw {
			_, err := applyBalanceChange(ctx, tx, balanceChange{
				UserId:       params.UserId,
				Amount:       params.Amount.Neg(),
				EntryType:    models.EntryWithdrawHold,
				Reference:    "WITHDRAW_HOLD: " + txId,
				RequireFunds: true,
			})
			if err != nil {
				return err
			}
		}

		transaction, err = getTransaction(ctx, tx, txId)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Transaction created",
		zap.String("tx_id", transaction.TxId),
		zap.Int64("user_id", transaction.UserId),
		zap.String("type", string(transaction.Type)),
		zap.String("amount", transaction.Amount.String()),
		zap.String("method", transaction.Method))
	return transaction, nil
}

// insertTransaction retries on id collisions; a short id space makes them rare but possible.
func insertTransaction(ctx context.Context, tx *sql.Tx, params store.CreateTransactionParams) (string, error) {
	for attempt := 1; attempt <= maxTxIdAttempts; attempt++ {
		txId := newTxId()
		_, err := tx.ExecContext(ctx, queryInsertTransaction,
			txId, params.UserId, string(params.Type), params.Amount.String(),
			params.Method, params.Details, now())
		if err == nil {
			return txId, nil
		}
		if !isPrimaryKeyViolation(err) {
			return "", fmt.Errorf("failed to insert transaction: %w", err)
		}
		zap.L().Warn("Transaction id collision, retrying",
			zap.String("tx_id", txId),
			zap.Int("attempt", attempt))
	}
	return "", fmt.Errorf("failed to allocate a unique transaction id after %d attempts", maxTxIdAttempts)
}

// FinalizeTransaction moves a pending transaction to completed or rejected exactly once
// and applies the balance effect of that decision. A transaction that is no longer
// pending yields store.ErrAlreadyProcessed and nothing is changed.
func (s *Service) FinalizeTransaction(ctx context.Context, txId string, status models.TransactionStatus) (*models.Transaction, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("%w: %q is not a terminal status", store.ErrInvalidInput, status)
	}

	var transaction *models.Transaction
	err := s.inTx(ctx, "finalize_transaction", func(ctx context.Context, tx *sql.Tx) error {
		current, err := getTransaction(ctx, tx, txId)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, queryFinalizeTransaction, string(status), now(), txId)
		if err != nil {
			return fmt.Errorf("failed to update transaction status: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%w: transaction %s is %s", store.ErrAlreadyProcessed, txId, current.Status)
		}

		switch {
		case current.Type == models.TransactionDeposit && status == models.StatusCompleted:
			if _, err := applyBalanceChange(ctx, tx, balanceChange{
				UserId:    current.UserId,
				Amount:    current.Amount,
				EntryType: models.EntryDeposit,
				Reference: "DEPOSIT: " + txId,
			}); err != nil {
				return err
			}
			if _, err := markFirstDeposit(ctx, tx, current.UserId); err != nil {
				return err
			}
		case current.Type == models.TransactionWithdraw && status == models.StatusRejected:
			if _, err := applyBalanceChange(ctx, tx, balanceChange{
				UserId:    current.UserId,
				Amount:    current.Amount,
				EntryType: models.EntryWithdrawRefund,
				Reference: "WITHDRAW_REFUND: " + txId,
			}); err != nil {
				return err
			}
		}

		transaction, err = getTransaction(ctx, tx, txId)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Transaction finalized",
		zap.String("tx_id", txId),
		zap.Int64("user_id", transaction.UserId),
		zap.String("type", string(transaction.Type)),
		zap.String("status", string(transaction.Status)),
		zap.String("amount", transaction.Amount.String()))
	return transaction, nil
}

func (s *Service) GetTransaction(ctx context.Context, txId string) (*models.Transaction, error) {
	var transaction *models.Transaction
	err := s.run(ctx, "get_transaction", func(ctx context.Context) error {
		var err error
		transaction, err = getTransaction(ctx, s.db, txId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

// ListUserTransactions returns the user's transactions, newest first
func (s *Service) ListUserTransactions(ctx context.Context, userId int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.listTransactions(ctx, "list_user_transactions", queryListUserTransactions, userId, limit)
}

// ListPendingTransactions returns transactions awaiting a decision, oldest first
func (s *Service) ListPendingTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.listTransactions(ctx, "list_pending_transactions", queryListPendingTransactions, limit)
}

// ListUserPendingTransactions returns every open request of userId, oldest first.
func (s *Service) ListUserPendingTransactions(ctx context.Context, userId int64) ([]models.Transaction, error) {
	return s.listTransactions(ctx, "list_user_pending_transactions", queryListUserPendingTransactions, userId)
}

func (s *Service) listTransactions(ctx context.Context, op, query string, args ...any) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := s.run(ctx, op, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to list transactions: %w", err)
		}
		defer closeRows(rows)

		for rows.Next() {
			t, err := scanTransaction(rows)
			if err != nil {
				return fmt.Errorf("failed to scan transaction: %w", err)
			}
			transactions = append(transactions, *t)
		}

		if err := rows.Err(); err != nil {
			zap.L().Error("Error during transaction row iteration", zap.Error(err))
			return fmt.Errorf("error iterating transaction rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transactions, nil
}
