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

const (
	// Account queries
	queryInsertAccount = `
		INSERT OR IGNORE INTO accounts (user_id, balance, version, created_at, updated_at)
		VALUES (?, '0', 1, ?, ?)`

	queryGetAccount = `
		SELECT user_id, is_banned, first_deposit_done, referrer_id, referral_count, balance, version, created_at, updated_at
		FROM accounts
		WHERE user_id = ?`

	queryListAccounts = `
		SELECT user_id, is_banned, first_deposit_done, referrer_id, referral_count, balance, version, created_at, updated_at
		FROM accounts
		ORDER BY created_at, user_id`

	queryAccountExists = `
		SELECT 1 FROM accounts WHERE user_id = ?`

	querySetReferrer = `
		UPDATE accounts
		SET referrer_id = ?
		WHERE user_id = ? AND referrer_id IS NULL`

	queryIncrementReferralCount = `
		UPDATE accounts
		SET referral_count = referral_count + 1, updated_at = ?
		WHERE user_id = ?`

	queryGetAccountBalance = `
		SELECT balance, version
		FROM accounts
		WHERE user_id = ?`

	queryUpdateAccountBalance = `
		UPDATE accounts
		SET balance = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND version = ?`

	queryMarkFirstDeposit = `
		UPDATE accounts
		SET first_deposit_done = 1, updated_at = ?
		WHERE user_id = ? AND first_deposit_done = 0`

	querySetBanned = `
		UPDATE accounts
		SET is_banned = ?, updated_at = ?
		WHERE user_id = ?`

	// Holding queries
	queryGetHolding = `
		SELECT quantity, invested
		FROM holdings
		WHERE user_id = ? AND symbol = ?`

	queryUpsertHolding = `
		INSERT INTO holdings (user_id, symbol, quantity, invested, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			invested = excluded.invested,
			updated_at = excluded.updated_at`

	queryGetHoldings = `
		SELECT symbol, quantity, invested
		FROM holdings
		WHERE user_id = ?
		ORDER BY symbol`

	queryGetAllHoldings = `
		SELECT user_id, symbol, quantity, invested
		FROM holdings
		ORDER BY symbol`

	// Ledger queries
	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (id, user_id, entry_type, amount, balance_before, balance_after, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetLedgerEntries = `
		SELECT id, user_id, entry_type, amount, balance_before, balance_after, reference, created_at
		FROM ledger_entries
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	queryGetLedgerAmounts = `
		SELECT amount
		FROM ledger_entries
		WHERE user_id = ?`

	// Token queries
	queryCountTokens = `
		SELECT COUNT(*) FROM tokens`

	queryInsertToken = `
		INSERT INTO tokens (symbol, name, price, base_price, trend, volatility, schema_version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetToken = `
		SELECT symbol, name, price, base_price, trend, volatility, schema_version, updated_at
		FROM tokens
		WHERE symbol = ?`

	queryListTokens = `
		SELECT symbol, name, price, base_price, trend, volatility, schema_version, updated_at
		FROM tokens
		ORDER BY rowid`

	queryUpdateTokenPrice = `
		UPDATE tokens
		SET price = ?, updated_at = ?
		WHERE symbol = ?`

	queryUpdateTokenPriceAndBase = `
		UPDATE tokens
		SET price = ?, base_price = ?, updated_at = ?
		WHERE symbol = ?`

	queryUpdateTokenTrend = `
		UPDATE tokens
		SET trend = ?
		WHERE symbol = ?`

	queryInsertTokenHistory = `
		INSERT INTO token_history (symbol, price, recorded_at)
		VALUES (?, ?, ?)`

	queryTrimTokenHistory = `
		DELETE FROM token_history
		WHERE symbol = ? AND id NOT IN (
			SELECT id FROM token_history WHERE symbol = ? ORDER BY id DESC LIMIT ?
		)`

	queryGetTokenHistory = `
		SELECT price
		FROM token_history
		WHERE symbol = ?
		ORDER BY id`

	queryGetLegacyTokens = `
		SELECT symbol, price, base_price
		FROM tokens
		WHERE schema_version < ?`

	queryMigrateToken = `
		UPDATE tokens
		SET base_price = ?, trend = ?, volatility = ?, schema_version = ?
		WHERE symbol = ?`

	// Transaction queries
	queryInsertTransaction = `
		INSERT INTO transactions (tx_id, user_id, type, amount, method, details, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 'pending', ?)`

	queryGetTransaction = `
		SELECT tx_id, user_id, type, amount, method, details, status, created_at, processed_at
		FROM transactions
		WHERE tx_id = ?`

	queryFinalizeTransaction = `
		UPDATE transactions
		SET status = ?, processed_at = ?
		WHERE tx_id = ? AND status = 'pending'`

	queryListUserTransactions = `
		SELECT tx_id, user_id, type, amount, method, details, status, created_at, processed_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	queryListPendingTransactions = `
		SELECT tx_id, user_id, type, amount, method, details, status, created_at, processed_at
		FROM transactions
		WHERE status = 'pending'
		ORDER BY created_at, rowid
		LIMIT ?`

	queryListUserPendingTransactions = `
		SELECT tx_id, user_id, type, amount, method, details, status, created_at, processed_at
		FROM transactions
		WHERE user_id = ? AND status = 'pending'
		ORDER BY created_at, rowid`

	// Gift code queries
	queryInsertGiftCode = `
		INSERT INTO gift_codes (code, amount, used, created_at)
		VALUES (?, ?, 0, ?)`

	queryGetGiftCode = `
		SELECT code, amount, used, redeemed_by, created_at, redeemed_at
		FROM gift_codes
		WHERE code = ?`

	queryRedeemGiftCode = `
		UPDATE gift_codes
		SET used = 1, redeemed_by = ?, redeemed_at = ?
		WHERE code = ? AND used = 0`

	// Daily stat queries
	queryIncrementNewUsers = `
		INSERT INTO daily_stats (date, new_users, first_deposits) VALUES (?, 1, 0)
		ON CONFLICT(date) DO UPDATE SET new_users = new_users + 1`

	queryIncrementFirstDeposits = `
		INSERT INTO daily_stats (date, new_users, first_deposits) VALUES (?, 0, 1)
		ON CONFLICT(date) DO UPDATE SET first_deposits = first_deposits + 1`

	queryGetDailyStat = `
		SELECT date, new_users, first_deposits
		FROM daily_stats
		WHERE date = ?`

	queryListDailyStats = `
		SELECT date, new_users, first_deposits
		FROM daily_stats
		ORDER BY date DESC
		LIMIT ?`
)
