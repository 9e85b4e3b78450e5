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

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"token-exchange-go/internal/common"
	"token-exchange-go/internal/config"
	"token-exchange-go/internal/market"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func newMetricsServer(addr string, services *common.Services) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", services.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := services.Exchange.HealthCheck(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func main() {
	tickNow := flag.Bool("tick-now", false, "Run one market tick immediately on startup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = common.InitializeLogger(false)
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Server.LogDevelopment)
	defer loggerCleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zap.L().Info("Starting token exchange market",
		zap.Duration("tick_interval", cfg.Market.TickInterval),
		zap.String("policy", cfg.Market.Policy),
		zap.String("metrics_addr", cfg.Server.MetricsAddr))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	scheduler := market.NewScheduler(services.Engine, cfg.Market.TickInterval)
	if *tickNow {
		scheduler.RunOnce()
	}
	if err := scheduler.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start market scheduler", zap.Error(err))
	}

	server := newMetricsServer(cfg.Server.MetricsAddr, services)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("Shutdown signal received, stopping market...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		scheduler.Stop()
		return server.Shutdown(shutdownCtx)
	})

	zap.L().Info("Market running, press Ctrl+C to stop")
	if err := g.Wait(); err != nil {
		zap.L().Error("Market stopped with error", zap.Error(err))
		return
	}
	zap.L().Info("Market stopped gracefully")
}
