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

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "exchange"

// Metrics holds the collectors shared by the market, trade and payment services.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	MarketTicks        *prometheus.CounterVec
	MarketTickDuration prometheus.Histogram
	TokenPrice         *prometheus.GaugeVec
	Trades             *prometheus.CounterVec
	TradeVolume        *prometheus.CounterVec
	Transactions       *prometheus.CounterVec
	GiftRedemptions    *prometheus.CounterVec
	Sessions           prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		MarketTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "ticks_total",
			Help:      "Scheduled price updates by result.",
		}, []string{"result"}),
		MarketTickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "tick_duration_seconds",
			Help:      "Time spent applying one price update across the catalog.",
			Buckets:   prometheus.DefBuckets,
		}),
		TokenPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "token_price",
			Help:      "Current token price.",
		}, []string{"symbol"}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "executions_total",
			Help:      "Trade attempts by direction and result code.",
		}, []string{"direction", "code"}),
		TradeVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "volume_fiat_total",
			Help:      "Fiat value of executed trades.",
		}, []string{"direction"}),
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "transactions_total",
			Help:      "Deposit and withdraw lifecycle events.",
		}, []string{"type", "event"}),
		GiftRedemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "giftcode",
			Name:      "redemptions_total",
			Help:      "Gift code redemptions by result code.",
		}, []string{"code"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Staged trade sessions awaiting confirmation.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.MarketTicks,
		m.MarketTickDuration,
		m.TokenPrice,
		m.Trades,
		m.TradeVolume,
		m.Transactions,
		m.GiftRedemptions,
		m.Sessions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTick(result string, seconds float64) {
	if m == nil {
		return
	}
	m.MarketTicks.WithLabelValues(result).Inc()
	m.MarketTickDuration.Observe(seconds)
}

func (m *Metrics) SetPrice(symbol string, price float64) {
	if m == nil {
		return
	}
	m.TokenPrice.WithLabelValues(symbol).Set(price)
}

func (m *Metrics) ObserveTrade(direction, code string, volume float64) {
	if m == nil {
		return
	}
	m.Trades.WithLabelValues(direction, code).Inc()
	if volume > 0 {
		m.TradeVolume.WithLabelValues(direction).Add(volume)
	}
}

func (m *Metrics) ObserveTransaction(txType, event string) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(txType, event).Inc()
}

func (m *Metrics) ObserveRedemption(code string) {
	if m == nil {
		return
	}
	m.GiftRedemptions.WithLabelValues(code).Inc()
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.Sessions.Set(float64(n))
}
