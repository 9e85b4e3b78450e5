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

// ApplyTrade moves fiat and units for one priced trade in a single transaction.
// Funds and holdings are re-checked under the write lock, so concurrent trades on
// the same account serialize and can never drive either side negative.
func (s *Service) ApplyTrade(ctx context.Context, params store.ApplyTradeParams) (*models.Wallet, error) {
	if params.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", store.ErrInvalidInput, params.Quantity)
	}
	if !params.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive, got %s", store.ErrInvalidInput, params.Price.String())
	}

	total := params.Price.Mul(decimal.NewFromInt(params.Quantity))

	var wallet *models.Wallet
	err := s.inTx(ctx, "apply_trade", func(ctx context.Context, tx *sql.Tx) error {
		if _, err := getAccount(ctx, tx, params.UserId); err != nil {
			return err
		}

		var quantity int64
		var investedStr string
		err := tx.QueryRowContext(ctx, queryGetHolding, params.UserId, params.Symbol).Scan(&quantity, &investedStr)
		if errors.Is(err, sql.ErrNoRows) {
			investedStr = "0"
		} else if err != nil {
			return fmt.Errorf("failed to get holding: %w", err)
		}

		invested, err := decimal.NewFromString(investedStr)
		if err != nil {
			return fmt.Errorf("failed to parse invested '%s': %w", investedStr, err)
		}

		var change balanceChange
		reference := fmt.Sprintf("%s %d %s @ %s", params.Direction, params.Quantity, params.Symbol, params.Price.String())

		switch params.Direction {
		case models.DirectionBuy:
			quantity += params.Quantity
			invested = invested.Add(total)
			change = balanceChange{
				UserId:       params.UserId,
				Amount:       total.Neg(),
				EntryType:    models.EntryTradeBuy,
				Reference:    reference,
				RequireFunds: true,
			}
		case models.DirectionSell:
			if quantity < params.Quantity {
				return fmt.Errorf("%w: holding %d %s, selling %d",
					store.ErrInsufficientHoldings, quantity, params.Symbol, params.Quantity)
			}
			// invested is cumulative spend and intentionally survives sells
			quantity -= params.Quantity
			change = balanceChange{
				UserId:    params.UserId,
				Amount:    total,
				EntryType: models.EntryTradeSell,
				Reference: reference,
			}
		default:
			return fmt.Errorf("%w: unknown trade direction %q", store.ErrInvalidInput, params.Direction)
		}

		if _, err := applyBalanceChange(ctx, tx, change); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, queryUpsertHolding,
			params.UserId, params.Symbol, quantity, invested.String(), now()); err != nil {
			return fmt.Errorf("failed to update holding: %w", err)
		}

		wallet, err = getWallet(ctx, tx, params.UserId)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Trade applied",
		zap.Int64("user_id", params.UserId),
		zap.String("direction", string(params.Direction)),
		zap.String("symbol", params.Symbol),
		zap.Int64("quantity", params.Quantity),
		zap.String("price", params.Price.String()),
		zap.String("total", total.String()),
		zap.String("new_balance", wallet.Balance.String()))

	return wallet, nil
}
