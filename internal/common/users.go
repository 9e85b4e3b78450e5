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

package common

import (
	"context"
	"fmt"

	"token-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccountInfo represents simplified account information for command-line utilities
type AccountInfo struct {
	UserId        int64
	Balance       decimal.Decimal
	IsBanned      bool
	ReferralCount int64
}

// InitializeAccounts retrieves accounts based on an optional user id filter.
// If userFilter is positive, returns that single account.
// Otherwise returns all accounts.
func InitializeAccounts(ctx context.Context, accounts store.AccountStore, userFilter int64, logger *zap.Logger) ([]AccountInfo, error) {
	var infos []AccountInfo

	if userFilter > 0 {
		logger.Info("Looking up account", zap.Int64("user_id", userFilter))
		account, err := accounts.GetAccount(ctx, userFilter)
		if err != nil {
			return nil, fmt.Errorf("account not found: %w", err)
		}
		infos = append(infos, AccountInfo{
			UserId:        account.UserId,
			Balance:       account.Balance,
			IsBanned:      account.IsBanned,
			ReferralCount: account.ReferralCount,
		})
	} else {
		all, err := accounts.ListAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get accounts: %w", err)
		}
		for _, a := range all {
			infos = append(infos, AccountInfo{
				UserId:        a.UserId,
				Balance:       a.Balance,
				IsBanned:      a.IsBanned,
				ReferralCount: a.ReferralCount,
			})
		}
	}

	logger.Info("Retrieved accounts", zap.Int("count", len(infos)))
	return infos, nil
}
