// Package metrics exposes the monitor's Prometheus collectors.
//
// Registers:
//
//	arbwatch_quote_failures_total{ticker}
//	arbwatch_pairs_evaluated_total{symbol}
//	arbwatch_pairs_discarded_total{symbol,reason}
//	arbwatch_opportunities_reported_total{symbol,free_money}
//	arbwatch_messages_delivered_total{kind}
//	arbwatch_cycles_total, arbwatch_cycle_duration_seconds
//	arbwatch_trades_executed_total{symbol}, arbwatch_ledger_capital_usd
//	go_* and process_* system metrics
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/arbwatch/internal/arbitrage"
	"github.com/alanyoungcy/arbwatch/internal/domain"
)

const namespace = "arbwatch"

// Metrics owns a private registry so that several instances can coexist in
// tests.
type Metrics struct {
	registry *prometheus.Registry

	quoteFailures  *prometheus.CounterVec
	pairsEvaluated *prometheus.CounterVec
	pairsDiscarded *prometheus.CounterVec
	reported       *prometheus.CounterVec
	delivered      *prometheus.CounterVec
	cycles         prometheus.Counter
	cycleDuration  prometheus.Histogram
	trades         *prometheus.CounterVec
	capital        prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		quoteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_failures_total",
			Help:      "Quotes that could not be fetched, by ticker",
		}, []string{"ticker"}),
		pairsEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_evaluated_total",
			Help:      "Venue pairs priced, by symbol",
		}, []string{"symbol"}),
		pairsDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_discarded_total",
			Help:      "Venue pairs dropped before reporting, by symbol and reason",
		}, []string{"symbol", "reason"}),
		reported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_reported_total",
			Help:      "Opportunities that passed de-duplication",
		}, []string{"symbol", "free_money"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_delivered_total",
			Help:      "Messages handed to the notifier, by kind",
		}, []string{"kind"}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed scan cycles",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Scan cycle duration",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_executed_total",
			Help:      "Simulated trades opened, by symbol",
		}, []string{"symbol"}),
		capital: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_capital_usd",
			Help:      "Current simulated capital",
		}),
	}

	m.registry.MustRegister(
		m.quoteFailures,
		m.pairsEvaluated,
		m.pairsDiscarded,
		m.reported,
		m.delivered,
		m.cycles,
		m.cycleDuration,
		m.trades,
		m.capital,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) QuoteFailed(ticker string)   { m.quoteFailures.WithLabelValues(ticker).Inc() }
func (m *Metrics) PairEvaluated(symbol string) { m.pairsEvaluated.WithLabelValues(symbol).Inc() }

func (m *Metrics) PairDiscarded(symbol, reason string) {
	m.pairsDiscarded.WithLabelValues(symbol, reason).Inc()
}

// OpportunityReported counts an opportunity accepted for reporting.
func (m *Metrics) OpportunityReported(opp domain.Opportunity) {
	m.reported.WithLabelValues(opp.Symbol, strconv.FormatBool(opp.IsFreeMoney)).Inc()
}

// MessageDelivered counts a message of the given kind handed to the
// notifier.
func (m *Metrics) MessageDelivered(kind string) { m.delivered.WithLabelValues(kind).Inc() }

// CycleCompleted records one scan cycle.
func (m *Metrics) CycleCompleted(d time.Duration) {
	m.cycles.Inc()
	m.cycleDuration.Observe(d.Seconds())
}

// TradeExecuted records a simulated trade and the capital after it.
func (m *Metrics) TradeExecuted(symbol string, capital float64) {
	m.trades.WithLabelValues(symbol).Inc()
	m.capital.Set(capital)
}

// SetCapital reports the ledger's current capital.
func (m *Metrics) SetCapital(capital float64) { m.capital.Set(capital) }

var _ arbitrage.Recorder = (*Metrics)(nil)
