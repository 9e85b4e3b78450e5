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

package session

import (
	"context"
	"sync"
	"time"

	"token-exchange-go/internal/metrics"
	"token-exchange-go/internal/models"

	"go.uber.org/zap"
)

const DefaultTTL = 10 * time.Minute

// Intent is a trade a user has quoted but not yet confirmed.
type Intent struct {
	UserId    int64
	Symbol    string
	Direction models.TradeDirection
	Quantity  int64
	Quote     *models.TradeQuote
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (i Intent) expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Store keeps at most one staged intent per user. Entries expire after the TTL and
// are removed lazily on access and by the sweep loop.
type Store struct {
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics

	intents map[int64]Intent
	mutex   sync.Mutex

	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	doneChan  chan struct{}
}

type Option func(*Store)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func NewStore(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		intents:  make(map[int64]Intent),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Stage records intent for its user, replacing any earlier one, and returns it
// with CreatedAt and ExpiresAt filled in.
func (s *Store) Stage(intent Intent) Intent {
	now := s.now()
	intent.CreatedAt = now
	intent.ExpiresAt = now.Add(s.ttl)

	s.mutex.Lock()
	s.intents[intent.UserId] = intent
	n := len(s.intents)
	s.mutex.Unlock()

	s.metrics.SetSessions(n)
	zap.L().Debug("Trade intent staged",
		zap.Int64("user_id", intent.UserId),
		zap.String("symbol", intent.Symbol),
		zap.String("direction", string(intent.Direction)),
		zap.Time("expires_at", intent.ExpiresAt))
	return intent
}

// Get returns the live intent for userId without consuming it.
func (s *Store) Get(userId int64) (Intent, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	intent, ok := s.intents[userId]
	if !ok {
		return Intent{}, false
	}
	if intent.expired(s.now()) {
		delete(s.intents, userId)
		return Intent{}, false
	}
	return intent, true
}

// Take removes and returns the live intent for userId. Two concurrent confirms for
// the same user cannot both receive it.
func (s *Store) Take(userId int64) (Intent, bool) {
	s.mutex.Lock()
	intent, ok := s.intents[userId]
	if ok {
		delete(s.intents, userId)
	}
	n := len(s.intents)
	s.mutex.Unlock()

	s.metrics.SetSessions(n)
	if !ok || intent.expired(s.now()) {
		return Intent{}, false
	}
	return intent, true
}

// Cancel drops the staged intent. It reports whether one was live.
func (s *Store) Cancel(userId int64) bool {
	_, ok := s.Take(userId)
	if ok {
		zap.L().Debug("Trade intent cancelled", zap.Int64("user_id", userId))
	}
	return ok
}

func (s *Store) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.intents)
}

// Sweep removes expired intents and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mutex.Lock()
	now := s.now()
	cleaned := 0
	for userId, intent := range s.intents {
		if intent.expired(now) {
			delete(s.intents, userId)
			cleaned++
		}
	}
	remaining := len(s.intents)
	s.mutex.Unlock()

	s.metrics.SetSessions(remaining)
	if cleaned > 0 {
		zap.L().Debug("Cleaned up expired trade intents",
			zap.Int("cleaned", cleaned),
			zap.Int("remaining", remaining))
	}
	return cleaned
}

// Start runs the sweep loop every interval until Stop is called or ctx is done.
func (s *Store) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.ttl / 2
	}
	s.startOnce.Do(func() {
		go s.cleanupLoop(ctx, interval)
	})
}

// Stop halts the sweep loop and waits for it to exit. It is a no-op if the loop
// was never started.
func (s *Store) Stop() {
	started := true
	s.startOnce.Do(func() {
		started = false
	})
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	if started {
		<-s.doneChan
	}
}

func (s *Store) cleanupLoop(ctx context.Context, interval time.Duration) {
	defer close(s.doneChan)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}
