package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNew(reg)

	m.ObserveMessage("text")
	m.ObserveMessage("text")
	m.ObserveIntent("search")
	m.ObserveMaskedFailure("search")
	m.ReminderAdded()
	m.ReminderFired()
	m.ReminderFailed()
	m.SetPending(3)
	m.ObserveHandler("voice", errors.New("boom"), 0.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messages.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.intents.WithLabelValues("search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.maskedFailures.WithLabelValues("search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remindersAdded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remindersFired))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remindersFailed))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.remindersPending))

	n, err := testutil.GatherAndCount(reg, "copilot_handler_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveMessage("text")
		m.ObserveIntent("chat")
		m.ObserveMaskedFailure("search")
		m.ObserveHandler("text", nil, 1)
		m.ReminderAdded()
		m.ReminderFired()
		m.ReminderFailed()
		m.SetPending(1)
	})
}

func TestMustNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustNew(reg)
	assert.Panics(t, func() { MustNew(reg) })
}
