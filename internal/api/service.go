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

package api

import (
	"context"
	"fmt"

	"token-exchange-go/internal/giftcode"
	"token-exchange-go/internal/market"
	"token-exchange-go/internal/metrics"
	"token-exchange-go/internal/models"
	"token-exchange-go/internal/payments"
	"token-exchange-go/internal/session"
	"token-exchange-go/internal/store"
	"token-exchange-go/internal/trade"
)

// ExchangeService is the contract offered to the conversational front end: read
// queries plus mutating commands. Commands report failures through result codes.
type ExchangeService struct {
	store    store.Store
	market   *market.Engine
	trades   *trade.Service
	payments *payments.Service
	gifts    *giftcode.Service
	sessions *session.Store
	ledger   models.LedgerConfig
}

func NewExchangeService(db store.Store, engine *market.Engine, cfg *models.Config, m *metrics.Metrics) *ExchangeService {
	return &ExchangeService{
		store:    db,
		market:   engine,
		trades:   trade.NewService(db, db, m),
		payments: payments.NewService(db, db, cfg.Ledger, m),
		gifts:    giftcode.NewService(db, db, cfg.Ledger, m),
		sessions: session.NewStore(cfg.Server.SessionTTL, session.WithMetrics(m)),
		ledger:   cfg.Ledger,
	}
}

// Sessions exposes the staged-trade store so the caller can run its sweep loop.
func (s *ExchangeService) Sessions() *session.Store {
	return s.sessions
}

func (s *ExchangeService) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
