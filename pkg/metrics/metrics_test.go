package metrics

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/junbin-yang/microcoap-go/pkg/coap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{&coap.OptionError{Number: coap.IfMatch}, "unsupported_option"},
		{fmt.Errorf("offset 46: %w", coap.ErrFormat), "format"},
		{coap.ErrVersion, "version"},
		{coap.ErrTokenLength, "token_length"},
		{coap.ErrTruncated, "truncated"},
		{errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err))
	}
}

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Frame(true)
	m.Frame(true)
	m.Frame(false)
	m.DecodeError(coap.ErrFormat)
	m.Response(coap.Acknowledgement, 53)
	m.SendError()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesDiscarded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeErrors.WithLabelValues("format")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SendErrors))

	expected := `
# HELP coap_responses_total Responses sent, by message type
# TYPE coap_responses_total counter
coap_responses_total{type="Acknowledgement"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "coap_responses_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ResponseBytes))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Frame(true)
		m.DecodeError(coap.ErrFormat)
		m.Response(coap.Confirmable, 1)
		m.SendError()
	})
}
