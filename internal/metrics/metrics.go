// Package metrics exposes Prometheus collectors that report bot activity.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "copilot"

// Metrics groups the collectors shared by the dispatcher and the reminder
// scheduler. A nil *Metrics is valid and records nothing.
type Metrics struct {
	messages         *prometheus.CounterVec
	intents          *prometheus.CounterVec
	maskedFailures   *prometheus.CounterVec
	remindersAdded   prometheus.Counter
	remindersFired   prometheus.Counter
	remindersFailed  prometheus.Counter
	remindersPending prometheus.Gauge
	handlerDurations *prometheus.HistogramVec
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the package-level instance registered with the global
// Prometheus registry. Collectors are created once so repeated calls do not
// panic on duplicate registration.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew constructs a Metrics instance and registers it with reg.
// Registration errors panic, mirroring promauto.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_messages_total",
			Help:      "Inbound messages by modality.",
		}, []string{"modality"}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Classified intents by kind.",
		}, []string{"kind"}),
		maskedFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "masked_provider_failures_total",
			Help:      "Provider failures replaced by a fallback answer.",
		}, []string{"provider"}),
		remindersAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "scheduled_total",
			Help:      "Reminders added to the store.",
		}),
		remindersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "fired_total",
			Help:      "Reminders delivered and removed.",
		}),
		remindersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "delivery_failures_total",
			Help:      "Reminder deliveries that failed and will be retried.",
		}),
		remindersPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "pending",
			Help:      "Reminders currently held in memory.",
		}),
		handlerDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Time spent handling one inbound message.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"modality", "status"}),
	}

	reg.MustRegister(
		m.messages,
		m.intents,
		m.maskedFailures,
		m.remindersAdded,
		m.remindersFired,
		m.remindersFailed,
		m.remindersPending,
		m.handlerDurations,
	)
	return m
}

// ObserveMessage counts one inbound message.
func (m *Metrics) ObserveMessage(modality string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(modality).Inc()
}

// ObserveIntent counts one classification result.
func (m *Metrics) ObserveIntent(kind string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(kind).Inc()
}

// ObserveMaskedFailure counts a provider error hidden behind a fallback answer.
func (m *Metrics) ObserveMaskedFailure(provider string) {
	if m == nil {
		return
	}
	m.maskedFailures.WithLabelValues(provider).Inc()
}

// ObserveHandler records how long one message took.
func (m *Metrics) ObserveHandler(modality string, err error, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.handlerDurations.WithLabelValues(modality, status).Observe(seconds)
}

// ReminderAdded counts a scheduled reminder.
func (m *Metrics) ReminderAdded() {
	if m == nil {
		return
	}
	m.remindersAdded.Inc()
}

// ReminderFired counts a delivered reminder.
func (m *Metrics) ReminderFired() {
	if m == nil {
		return
	}
	m.remindersFired.Inc()
}

// ReminderFailed counts a failed delivery attempt.
func (m *Metrics) ReminderFailed() {
	if m == nil {
		return
	}
	m.remindersFailed.Inc()
}

// SetPending reports the number of reminders in the store.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.remindersPending.Set(float64(n))
}
