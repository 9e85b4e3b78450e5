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

package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Ticker is the function the scheduler drives; *Engine satisfies it.
type Ticker interface {
	Tick(ctx context.Context) error
}

// Scheduler invokes Tick on a fixed interval. A tick that is still running when the
// next one is due causes that next one to be skipped; there is no catch-up.
type Scheduler struct {
	ticker   Ticker
	interval time.Duration
	timeout  time.Duration
	cron     *cron.Cron

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewScheduler(ticker Ticker, interval time.Duration) *Scheduler {
	logger := cronLogger{}
	timeout := interval
	if timeout <= 0 || timeout > time.Minute {
		timeout = time.Minute
	}
	return &Scheduler{
		ticker:   ticker,
		interval: interval,
		timeout:  timeout,
		cron: cron.New(cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		)),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if s.interval < time.Second {
		return fmt.Errorf("tick interval must be at least 1s, got %v", s.interval)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(s.RunOnce))
	s.cron.Start()
	s.running = true

	zap.L().Info("Market scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts scheduling and waits for a tick in progress to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	cancel()
	<-done.Done()

	zap.L().Info("Market scheduler stopped")
}

// RunOnce performs a single tick with a bounded timeout. Failures are logged and
// swallowed so the schedule continues.
func (s *Scheduler) RunOnce() {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	if err := s.ticker.Tick(ctx); err != nil {
		zap.L().Warn("Scheduled market tick failed", zap.Error(err))
	}
}

// cronLogger routes robfig/cron's logging through zap
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	zap.L().Sugar().Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	zap.L().Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
