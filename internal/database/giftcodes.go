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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanGiftCode(row rowScanner) (*models.GiftCode, error) {
	var code models.GiftCode
	var amountStr string
	var redeemedBy sql.NullInt64
	var redeemedAt sql.NullTime

	err := row.Scan(&code.Code, &amountStr, &code.Used, &redeemedBy, &code.CreatedAt, &redeemedAt)
	if err != nil {
		return nil, err
	}

	if redeemedBy.Valid {
		id := redeemedBy.Int64
		code.RedeemedBy = &id
	}
	if redeemedAt.Valid {
		at := redeemedAt.Time
		code.RedeemedAt = &at
	}

	code.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gift amount '%s': %w", amountStr, err)
	}
	return &code, nil
}

func getGiftCode(ctx context.Context, q queryer, code string) (*models.GiftCode, error) {
	gift, err := scanGiftCode(q.QueryRowContext(ctx, queryGetGiftCode, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: gift code", store.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get gift code: %w", err)
	}
	return gift, nil
}

func (s *Service) CreateGiftCode(ctx context.Context, code string, amount decimal.Decimal) (*models.GiftCode, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: gift code cannot be empty", store.ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: gift amount must be positive, got %s", store.ErrInvalidInput, amount.String())
	}

	var gift *models.GiftCode
	err := s.inTx(ctx, "create_gift_code", func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, queryInsertGiftCode, code, amount.String(), now()); err != nil {
			if isPrimaryKeyViolation(err) {
				return fmt.Errorf("%w: gift code", store.ErrAlreadyExists)
			}
			return fmt.Errorf("failed to insert gift code: %w", err)
		}

		var err error
		gift, err = getGiftCode(ctx, tx, code)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Gift code created", zap.String("amount", amount.String()))
	return gift, nil
}

// RedeemGiftCode flips the used flag with a conditional update and credits the
// redeemer in the same transaction. Only one caller can ever win a given code.
func (s *Service) RedeemGiftCode(ctx context.Context, userId int64, code string) (*models.GiftCode, error) {
	var gift *models.GiftCode
	err := s.inTx(ctx, "redeem_gift_code", func(ctx context.Context, tx *sql.Tx) error {
		current, err := getGiftCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if _, err := getAccount(ctx, tx, userId); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, queryRedeemGiftCode, userId, now(), code)
		if err != nil {
			return fmt.Errorf("failed to redeem gift code: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return store.ErrCodeAlreadyRedeemed
		}

		if _, err := applyBalanceChange(ctx, tx, balanceChange{
			UserId:    userId,
			Amount:    current.Amount,
			EntryType: models.EntryGiftCode,
			Reference: "GIFT_CODE",
		}); err != nil {
			return err
		}

		gift, err = getGiftCode(ctx, tx, code)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Gift code redeemed",
		zap.Int64("user_id", userId),
		zap.String("amount", gift.Amount.String()))
	return gift, nil
}

func (s *Service) GetGiftCode(ctx context.Context, code string) (*models.GiftCode, error) {
	var gift *models.GiftCode
	err := s.run(ctx, "get_gift_code", func(ctx context.Context) error {
		var err error
		gift, err = getGiftCode(ctx, s.db, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return gift, nil
}
