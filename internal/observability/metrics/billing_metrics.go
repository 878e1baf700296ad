// Package metrics exposes prometheus collectors for the billing engine.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config labels every collector with the service identity.
type Config struct {
	ServiceName string
	Environment string
}

// BillingMetrics groups the engine's collectors.
type BillingMetrics struct {
	sessionsBilled    *prometheus.CounterVec
	webhookEvents     *prometheus.CounterVec
	payoutCommits     *prometheus.CounterVec
	cdrResults        *prometheus.CounterVec
	processorLatency  *prometheus.HistogramVec
	paymentTransition *prometheus.CounterVec
}

var (
	billingMetricsOnce sync.Once
	billingMetrics     *BillingMetrics
)

// Billing returns the process-wide collector set.
func Billing() *BillingMetrics {
	return BillingWithConfig(Config{})
}

func BillingWithConfig(cfg Config) *BillingMetrics {
	billingMetricsOnce.Do(func() {
		billingMetrics = newBillingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return billingMetrics
}

func ResetBillingMetricsForTest() {
	billingMetricsOnce = sync.Once{}
	billingMetrics = nil
}

func newBillingMetrics(registerer prometheus.Registerer, cfg Config) *BillingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "gridfare"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	sessionsBilled := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "gridfare_sessions_billed_total",
			Help:        "Charging sessions whose monetary outcome was frozen.",
			ConstLabels: constLabels,
		},
		[]string{"currency"},
	)

	webhookEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "gridfare_payment_webhook_events_total",
			Help:        "Payment webhook events by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"outcome"}, // processed | duplicate | unknown_intent | invalid
	)

	payoutCommits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "gridfare_payout_commits_total",
			Help:        "Payout statement commit attempts by result.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // committed | duplicate_period | empty
	)

	cdrResults := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "gridfare_cdr_reconciliations_total",
			Help:        "Roaming CDR reconciliation outcomes.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // matched | disputed | rejected
	)

	processorLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "gridfare_processor_call_seconds",
			Help:        "Latency of outbound payment processor calls.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"operation", "result"}, // create_hold|capture|cancel, ok|error
	)

	paymentTransition := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "gridfare_payment_transitions_total",
			Help:        "Payment state machine transitions applied.",
			ConstLabels: constLabels,
		},
		[]string{"to"},
	)

	registerer.MustRegister(
		sessionsBilled,
		webhookEvents,
		payoutCommits,
		cdrResults,
		processorLatency,
		paymentTransition,
	)

	return &BillingMetrics{
		sessionsBilled:    sessionsBilled,
		webhookEvents:     webhookEvents,
		payoutCommits:     payoutCommits,
		cdrResults:        cdrResults,
		processorLatency:  processorLatency,
		paymentTransition: paymentTransition,
	}
}

func (m *BillingMetrics) IncSessionBilled(currency string) {
	if m == nil {
		return
	}
	m.sessionsBilled.WithLabelValues(currency).Inc()
}

func (m *BillingMetrics) IncWebhookEvent(outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(outcome).Inc()
}

func (m *BillingMetrics) IncPayoutCommit(result string) {
	if m == nil {
		return
	}
	m.payoutCommits.WithLabelValues(result).Inc()
}

func (m *BillingMetrics) IncCDRResult(result string) {
	if m == nil {
		return
	}
	m.cdrResults.WithLabelValues(result).Inc()
}

func (m *BillingMetrics) ObserveProcessorCall(operation, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.processorLatency.WithLabelValues(operation, result).Observe(elapsed.Seconds())
}

func (m *BillingMetrics) IncPaymentTransition(to string) {
	if m == nil {
		return
	}
	m.paymentTransition.WithLabelValues(to).Inc()
}
