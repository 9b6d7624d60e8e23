package metrics

import (
	"errors"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustRegister_CurriesServiceLabel(t *testing.T) {
	MustRegister("test-svc")
	MustRegister("test-svc")

	c := AuthAttemptsTotal.WithLabelValues("otp", "ok")
	c.Inc()

	var m dto.Metric
	require.NoError(t, c.Write(&m))
	assert.Equal(t, 1.0, m.GetCounter().GetValue())

	labels := map[string]string{}
	for _, l := range m.GetLabel() {
		labels[l.GetName()] = l.GetValue()
	}
	assert.Equal(t, "test-svc", labels["service"])
}

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "error", Result(errors.New("x")))
}
