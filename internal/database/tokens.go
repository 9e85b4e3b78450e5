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

// Parameters assigned to tokens migrated from schema version 1.
const (
	defaultTrend      = 0.0
	defaultVolatility = 0.02
)

func scanToken(row rowScanner) (*models.Token, error) {
	var token models.Token
	var priceStr string
	var baseStr sql.NullString

	err := row.Scan(&token.Symbol, &token.Name, &priceStr, &baseStr,
		&token.Trend, &token.Volatility, &token.SchemaVersion, &token.UpdatedAt)
	if err != nil {
		return nil, err
	}

	token.Price, err = decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price '%s': %w", priceStr, err)
	}
	if baseStr.Valid && baseStr.String != "" {
		token.BasePrice, err = decimal.NewFromString(baseStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse base price '%s': %w", baseStr.String, err)
		}
	}
	return &token, nil
}

func loadHistory(ctx context.Context, q queryer, token *models.Token) error {
	rows, err := q.QueryContext(ctx, queryGetTokenHistory, token.Symbol)
	if err != nil {
		return fmt.Errorf("failed to get token history: %w", err)
	}
	defer closeRows(rows)

	token.History = token.History[:0]
	for rows.Next() {
		var priceStr string
		if err := rows.Scan(&priceStr); err != nil {
			return fmt.Errorf("failed to scan history row: %w", err)
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return fmt.Errorf("failed to parse history price '%s': %w", priceStr, err)
		}
		token.History = append(token.History, price)
	}
	return rows.Err()
}

func getToken(ctx context.Context, q queryer, symbol string) (*models.Token, error) {
	token, err := scanToken(q.QueryRowContext(ctx, queryGetToken, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: token %s", store.ErrNotFound, symbol)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if err := loadHistory(ctx, q, token); err != nil {
		return nil, err
	}
	return token, nil
}

func appendHistory(ctx context.Context, tx *sql.Tx, symbol string, price decimal.Decimal, size int) error {
	if _, err := tx.ExecContext(ctx, queryInsertTokenHistory, symbol, price.String(), now()); err != nil {
		return fmt.Errorf("failed to append token history: %w", err)
	}
	if size <= 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, queryTrimTokenHistory, symbol, symbol, size); err != nil {
		return fmt.Errorf("failed to trim token history: %w", err)
	}
	return nil
}

// SeedTokens inserts the catalog only when the token table is empty and returns the
// number of tokens written.
func (s *Service) SeedTokens(ctx context.Context, tokens []models.Token) (int, error) {
	inserted := 0
	err := s.inTx(ctx, "seed_tokens", func(ctx context.Context, tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, queryCountTokens).Scan(&count); err != nil {
			return fmt.Errorf("failed to count tokens: %w", err)
		}
		if count > 0 {
			return nil
		}

		ts := now()
		for _, token := range tokens {
			if token.Symbol == "" || !token.Price.IsPositive() {
				return fmt.Errorf("%w: token %q must have a symbol and a positive price", store.ErrInvalidInput, token.Symbol)
			}
			base := token.BasePrice
			if base.IsZero() {
				base = token.Price
			}
			if _, err := tx.ExecContext(ctx, queryInsertToken,
				token.Symbol, token.Name, token.Price.String(), base.String(),
				token.Trend, token.Volatility, models.TokenSchemaVersion, ts); err != nil {
				return fmt.Errorf("failed to insert token %s: %w", token.Symbol, err)
			}
			if err := appendHistory(ctx, tx, token.Symbol, token.Price, 0); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if inserted > 0 {
		zap.L().Info("Token catalog seeded", zap.Int("tokens", inserted))
	} else {
		zap.L().Debug("Token catalog already populated, skipping seed")
	}
	return inserted, nil
}

// MigrateTokens upgrades records older than models.TokenSchemaVersion: the base price
// is backfilled from the current price when missing and trend/volatility get defaults.
func (s *Service) MigrateTokens(ctx context.Context) (int, error) {
	migrated := 0
	err := s.inTx(ctx, "migrate_tokens", func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, queryGetLegacyTokens, models.TokenSchemaVersion)
		if err != nil {
			return fmt.Errorf("failed to get legacy tokens: %w", err)
		}

		type legacy struct {
			symbol string
			price  string
			base   sql.NullString
		}
		var pending []legacy
		for rows.Next() {
			var l legacy
			if err := rows.Scan(&l.symbol, &l.price, &l.base); err != nil {
				closeRows(rows)
				return fmt.Errorf("failed to scan legacy token: %w", err)
			}
			pending = append(pending, l)
		}
		closeRows(rows)
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating legacy tokens: %w", err)
		}

		for _, l := range pending {
			base := l.price
			if l.base.Valid && l.base.String != "" {
				base = l.base.String
			}
			if _, err := tx.ExecContext(ctx, queryMigrateToken,
				base, defaultTrend, defaultVolatility, models.TokenSchemaVersion, l.symbol); err != nil {
				return fmt.Errorf("failed to migrate token %s: %w", l.symbol, err)
			}
			migrated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if migrated > 0 {
		zap.L().Info("Token records migrated",
			zap.Int("tokens", migrated),
			zap.Int("schema_version", models.TokenSchemaVersion))
	}
	return migrated, nil
}

func (s *Service) ListTokens(ctx context.Context) ([]models.Token, error) {
	var tokens []models.Token
	err := s.inTx(ctx, "list_tokens", func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, queryListTokens)
		if err != nil {
			return fmt.Errorf("failed to list tokens: %w", err)
		}
		for rows.Next() {
			token, err := scanToken(rows)
			if err != nil {
				closeRows(rows)
				return fmt.Errorf("failed to scan token: %w", err)
			}
			tokens = append(tokens, *token)
		}
		closeRows(rows)
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating token rows: %w", err)
		}

		for i := range tokens {
			if err := loadHistory(ctx, tx, &tokens[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (s *Service) GetToken(ctx context.Context, symbol string) (*models.Token, error) {
	var token *models.Token
	err := s.inTx(ctx, "get_token", func(ctx context.Context, tx *sql.Tx) error {
		var err error
		token, err = getToken(ctx, tx, symbol)
		return err
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

func applyPriceUpdate(ctx context.Context, tx *sql.Tx, update store.PriceUpdate) error {
	if !update.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", store.ErrInvalidInput, update.Price.String())
	}

	var result sql.Result
	var err error
	if update.Reanchor || update.BackfillBase {
		if !update.BasePrice.IsPositive() {
			return fmt.Errorf("%w: base price must be positive, got %s", store.ErrInvalidInput, update.BasePrice.String())
		}
		result, err = tx.ExecContext(ctx, queryUpdateTokenPriceAndBase,
			update.Price.String(), update.BasePrice.String(), now(), update.Symbol)
	} else {
		result, err = tx.ExecContext(ctx, queryUpdateTokenPrice, update.Price.String(), now(), update.Symbol)
	}
	if err != nil {
		return fmt.Errorf("failed to update token price: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: token %s", store.ErrNotFound, update.Symbol)
	}

	if update.UpdateTrend {
		if _, err := tx.ExecContext(ctx, queryUpdateTokenTrend, update.Trend, update.Symbol); err != nil {
			return fmt.Errorf("failed to update token trend: %w", err)
		}
	}

	return appendHistory(ctx, tx, update.Symbol, update.Price, update.HistorySize)
}

// UpdateTokenPrice writes the new price (and base price or trend when requested) and
// appends it to the capped history in one transaction.
func (s *Service) UpdateTokenPrice(ctx context.Context, update store.PriceUpdate) (*models.Token, error) {
	if !update.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive, got %s", store.ErrInvalidInput, update.Price.String())
	}

	var token *models.Token
	err := s.inTx(ctx, "update_token_price", func(ctx context.Context, tx *sql.Tx) error {
		if err := applyPriceUpdate(ctx, tx, update); err != nil {
			return err
		}
		var err error
		token, err = getToken(ctx, tx, update.Symbol)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Debug("Token price updated",
		zap.String("symbol", update.Symbol),
		zap.String("price", update.Price.String()),
		zap.Bool("reanchor", update.Reanchor),
		zap.Bool("backfill_base", update.BackfillBase))
	return token, nil
}

// StepTokenPrice reads symbol, hands the committed row to step and writes the
// returned update, all under one write lock. A concurrent UpdateTokenPrice either
// lands before the read or after the write, never in between.
func (s *Service) StepTokenPrice(ctx context.Context, symbol string, step store.PriceStep) (*models.Token, error) {
	var token *models.Token
	err := s.inTx(ctx, "step_token_price", func(ctx context.Context, tx *sql.Tx) error {
		current, err := getToken(ctx, tx, symbol)
		if err != nil {
			return err
		}

		update, err := step(*current)
		if err != nil {
			return err
		}
		update.Symbol = symbol

		if err := applyPriceUpdate(ctx, tx, update); err != nil {
			return err
		}
		token, err = getToken(ctx, tx, symbol)
		return err
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}
