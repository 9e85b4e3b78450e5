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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// balanceChange describes one fiat movement applied inside an open transaction.
type balanceChange struct {
	UserId    int64
	Amount    decimal.Decimal
	EntryType string
	Reference string
	// RequireFunds rejects the change with store.ErrInsufficientFunds when it
	// would leave the balance negative.
	RequireFunds bool
}

// applyBalanceChange updates the account balance with an optimistic version check
// and appends the matching ledger entry. It returns the balance after the change.
func applyBalanceChange(ctx context.Context, tx *sql.Tx, change balanceChange) (decimal.Decimal, error) {
	var balanceStr string
	var version int64
	err := tx.QueryRowContext(ctx, queryGetAccountBalance, change.UserId).Scan(&balanceStr, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: account %d", store.ErrNotFound, change.UserId)
	} else if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get current balance: %w", err)
	}

	balanceBefore, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse current balance '%s': %w", balanceStr, err)
	}

	balanceAfter := balanceBefore.Add(change.Amount)
	if change.RequireFunds && balanceAfter.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: balance %s, required %s",
			store.ErrInsufficientFunds, balanceBefore.String(), change.Amount.Neg().String())
	}

	ts := now()
	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance, balanceAfter.String(), ts, change.UserId, version)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return decimal.Zero, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	_, err = tx.ExecContext(ctx, queryInsertLedgerEntry,
		uuid.New().String(), change.UserId, change.EntryType,
		change.Amount.String(), balanceBefore.String(), balanceAfter.String(),
		change.Reference, ts)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	zap.L().Debug("Balance changed",
		zap.Int64("user_id", change.UserId),
		zap.String("entry_type", change.EntryType),
		zap.String("amount", change.Amount.String()),
		zap.String("old_balance", balanceBefore.String()),
		zap.String("new_balance", balanceAfter.String()))

	return balanceAfter, nil
}

func (s *Service) GetLedgerEntries(ctx context.Context, userId int64, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []models.LedgerEntry
	err := s.run(ctx, "get_ledger_entries", func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, queryGetLedgerEntries, userId, limit)
		if err != nil {
			return fmt.Errorf("failed to get ledger entries: %w", err)
		}
		defer closeRows(rows)

		for rows.Next() {
			var entry models.LedgerEntry
			var amountStr, beforeStr, afterStr string
			var reference sql.NullString
			if err := rows.Scan(&entry.Id, &entry.UserId, &entry.EntryType,
				&amountStr, &beforeStr, &afterStr, &reference, &entry.CreatedAt); err != nil {
				return fmt.Errorf("failed to scan ledger entry: %w", err)
			}
			entry.Reference = reference.String

			if entry.Amount, err = decimal.NewFromString(amountStr); err != nil {
				return fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
			}
			if entry.BalanceBefore, err = decimal.NewFromString(beforeStr); err != nil {
				return fmt.Errorf("failed to parse balance before '%s': %w", beforeStr, err)
			}
			if entry.BalanceAfter, err = decimal.NewFromString(afterStr); err != nil {
				return fmt.Errorf("failed to parse balance after '%s': %w", afterStr, err)
			}
			entries = append(entries, entry)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating ledger rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ReconcileBalance verifies that the stored balance equals the sum of the user's ledger entries.
func (s *Service) ReconcileBalance(ctx context.Context, userId int64) error {
	return s.run(ctx, "reconcile_balance", func(ctx context.Context) error {
		var balanceStr string
		var version int64
		err := s.db.QueryRowContext(ctx, queryGetAccountBalance, userId).Scan(&balanceStr, &version)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: account %d", store.ErrNotFound, userId)
		} else if err != nil {
			return fmt.Errorf("failed to get current balance: %w", err)
		}

		storedBalance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			return fmt.Errorf("failed to parse stored balance: %w", err)
		}

		rows, err := s.db.QueryContext(ctx, queryGetLedgerAmounts, userId)
		if err != nil {
			return fmt.Errorf("failed to get ledger amounts: %w", err)
		}
		defer closeRows(rows)

		calculated := decimal.Zero
		for rows.Next() {
			var amountStr string
			if err := rows.Scan(&amountStr); err != nil {
				return fmt.Errorf("failed to scan ledger amount: %w", err)
			}
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("failed to parse ledger amount '%s': %w", amountStr, err)
			}
			calculated = calculated.Add(amount)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating ledger rows: %w", err)
		}

		if !calculated.Equal(storedBalance) {
			zap.L().Error("Balance reconciliation failed",
				zap.Int64("user_id", userId),
				zap.String("stored_balance", storedBalance.String()),
				zap.String("calculated_balance", calculated.String()))
			return fmt.Errorf("%w: balance mismatch for user %d: stored=%s calculated=%s",
				store.ErrInvalidState, userId, storedBalance.String(), calculated.String())
		}

		zap.L().Debug("Balance reconciliation successful",
			zap.Int64("user_id", userId),
			zap.String("balance", storedBalance.String()))
		return nil
	})
}
