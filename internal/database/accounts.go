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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var referrerId sql.NullInt64
	var balanceStr string

	err := row.Scan(&account.UserId, &account.IsBanned, &account.FirstDepositDone, &referrerId,
		&account.ReferralCount, &balanceStr, &account.Version, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if referrerId.Valid {
		id := referrerId.Int64
		account.ReferrerId = &id
	}

	account.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}
	return &account, nil
}

func getAccount(ctx context.Context, q queryer, userId int64) (*models.Account, error) {
	account, err := scanAccount(q.QueryRowContext(ctx, queryGetAccount, userId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %d", store.ErrNotFound, userId)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// GetOrCreateAccount returns the account for params.UserId, creating it on first use.
// Creation, the daily new-user counter and the referral credit commit together;
// an existing account is returned untouched. The bool result reports creation.
func (s *Service) GetOrCreateAccount(ctx context.Context, params store.CreateAccountParams) (*models.Account, bool, error) {
	var account *models.Account
	var created bool

	err := s.inTx(ctx, "get_or_create_account", func(ctx context.Context, tx *sql.Tx) error {
		ts := now()
		result, err := tx.ExecContext(ctx, queryInsertAccount, params.UserId, ts, ts)
		if err != nil {
			return fmt.Errorf("failed to insert account: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		created = rowsAffected == 1

		if created {
			if _, err := tx.ExecContext(ctx, queryIncrementNewUsers, store.DayKey(ts)); err != nil {
				return fmt.Errorf("failed to increment new users: %w", err)
			}
			if err := s.creditReferrer(ctx, tx, params); err != nil {
				return err
			}
		}

		account, err = getAccount(ctx, tx, params.UserId)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		zap.L().Info("Account created",
			zap.Int64("user_id", account.UserId),
			zap.Bool("referred", account.ReferrerId != nil))
	}
	return account, created, nil
}

// creditReferrer links a freshly created account to its referrer and pays the bonus.
// Self-referrals and unknown referrers are ignored without failing account creation.
func (s *Service) creditReferrer(ctx context.Context, tx *sql.Tx, params store.CreateAccountParams) error {
	if params.ReferrerId == nil {
		return nil
	}
	referrerId := *params.ReferrerId
	if referrerId == params.UserId {
		zap.L().Warn("Ignoring self referral", zap.Int64("user_id", params.UserId))
		return nil
	}

	var exists int
	err := tx.QueryRowContext(ctx, queryAccountExists, referrerId).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		zap.L().Warn("Ignoring unknown referrer",
			zap.Int64("user_id", params.UserId),
			zap.Int64("referrer_id", referrerId))
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to look up referrer: %w", err)
	}

	if _, err := tx.ExecContext(ctx, querySetReferrer, referrerId, params.UserId); err != nil {
		return fmt.Errorf("failed to set referrer: %w", err)
	}
	if _, err := tx.ExecContext(ctx, queryIncrementReferralCount, now(), referrerId); err != nil {
		return fmt.Errorf("failed to increment referral count: %w", err)
	}

	if params.ReferralBonus.IsPositive() {
		_, err := applyBalanceChange(ctx, tx, balanceChange{
			UserId:    referrerId,
			Amount:    params.ReferralBonus,
			EntryType: models.EntryReferralBonus,
			Reference: fmt.Sprintf("REFERRAL: user %d", params.UserId),
		})
		if err != nil {
			return fmt.Errorf("failed to credit referral bonus: %w", err)
		}
	}

	zap.L().Info("Referral credited",
		zap.Int64("referrer_id", referrerId),
		zap.Int64("user_id", params.UserId),
		zap.String("bonus", params.ReferralBonus.String()))
	return nil
}

func (s *Service) GetAccount(ctx context.Context, userId int64) (*models.Account, error) {
	var account *models.Account
	err := s.run(ctx, "get_account", func(ctx context.Context) error {
		var err error
		account, err = getAccount(ctx, s.db, userId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := s.run(ctx, "list_accounts", func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, queryListAccounts)
		if err != nil {
			return fmt.Errorf("failed to list accounts: %w", err)
		}
		defer closeRows(rows)

		for rows.Next() {
			account, err := scanAccount(rows)
			if err != nil {
				return fmt.Errorf("failed to scan account: %w", err)
			}
			accounts = append(accounts, *account)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating account rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func getWallet(ctx context.Context, q queryer, userId int64) (*models.Wallet, error) {
	account, err := getAccount(ctx, q, userId)
	if err != nil {
		return nil, err
	}

	wallet := &models.Wallet{
		UserId:   userId,
		Balance:  account.Balance,
		Holdings: make(map[string]int64),
		Invested: make(map[string]decimal.Decimal),
	}

	rows, err := q.QueryContext(ctx, queryGetHoldings, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var symbol, investedStr string
		var quantity int64
		if err := rows.Scan(&symbol, &quantity, &investedStr); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		invested, err := decimal.NewFromString(investedStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse invested '%s': %w", investedStr, err)
		}
		if quantity > 0 {
			wallet.Holdings[symbol] = quantity
		}
		wallet.Invested[symbol] = invested
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding rows: %w", err)
	}

	return wallet, nil
}

// GetWallet returns a consistent snapshot of balance, holdings and invested amounts.
func (s *Service) GetWallet(ctx context.Context, userId int64) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := s.inTx(ctx, "get_wallet", func(ctx context.Context, tx *sql.Tx) error {
		var err error
		wallet, err = getWallet(ctx, tx, userId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// AdjustBalance applies delta to the balance atomically. Negative deltas are allowed
// and the resulting balance is not checked; callers enforce their own preconditions.
func (s *Service) AdjustBalance(ctx context.Context, userId int64, delta decimal.Decimal, reference string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.inTx(ctx, "adjust_balance", func(ctx context.Context, tx *sql.Tx) error {
		var err error
		balance, err = applyBalanceChange(ctx, tx, balanceChange{
			UserId:    userId,
			Amount:    delta,
			EntryType: models.EntryAdjustment,
			Reference: reference,
		})
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	zap.L().Info("Balance adjusted",
		zap.Int64("user_id", userId),
		zap.String("delta", delta.String()),
		zap.String("new_balance", balance.String()))
	return balance, nil
}

func markFirstDeposit(ctx context.Context, tx *sql.Tx, userId int64) (bool, error) {
	ts := now()
	result, err := tx.ExecContext(ctx, queryMarkFirstDeposit, ts, userId)
	if err != nil {
		return false, fmt.Errorf("failed to mark first deposit: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, queryIncrementFirstDeposits, store.DayKey(ts)); err != nil {
		return false, fmt.Errorf("failed to increment first deposits: %w", err)
	}
	return true, nil
}

// MarkFirstDeposit sets the first-deposit flag once. Only the first transition counts
// towards the daily first-deposit counter; later calls report false.
func (s *Service) MarkFirstDeposit(ctx context.Context, userId int64) (bool, error) {
	var marked bool
	err := s.inTx(ctx, "mark_first_deposit", func(ctx context.Context, tx *sql.Tx) error {
		if _, err := getAccount(ctx, tx, userId); err != nil {
			return err
		}
		var err error
		marked, err = markFirstDeposit(ctx, tx, userId)
		return err
	})
	if err != nil {
		return false, err
	}
	return marked, nil
}

func (s *Service) SetBanned(ctx context.Context, userId int64, banned bool) error {
	err := s.run(ctx, "set_banned", func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, querySetBanned, banned, now(), userId)
		if err != nil {
			return fmt.Errorf("failed to set ban flag: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%w: account %d", store.ErrNotFound, userId)
		}
		return nil
	})
	if err != nil {
		return err
	}

	zap.L().Info("Account ban flag updated", zap.Int64("user_id", userId), zap.Bool("banned", banned))
	return nil
}
