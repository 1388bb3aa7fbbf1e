// Package metrics 提供CoAP应答服务的Prometheus指标
package metrics

import (
	"errors"

	"github.com/junbin-yang/microcoap-go/pkg/coap"
	"github.com/junbin-yang/microcoap-go/pkg/netstack"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coap"

// Metrics 应答循环使用的全部指标。nil *Metrics 的方法均为空操作。
type Metrics struct {
	FramesReceived  prometheus.Counter
	FramesDiscarded prometheus.Counter
	DecodeErrors    *prometheus.CounterVec
	Responses       *prometheus.CounterVec
	SendErrors      prometheus.Counter
	ResponseBytes   prometheus.Histogram
}

// New 在reg上注册指标，reg为nil时使用prometheus.DefaultRegisterer
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		FramesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames addressed to the CoAP port",
		}),
		FramesDiscarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_discarded_total",
			Help:      "Frames dropped because they were not IPv4/UDP to the CoAP port",
		}),
		DecodeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Requests dropped during decoding",
		}, []string{"kind"}),
		Responses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses sent, by message type",
		}, []string{"type"}),
		SendErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Responses the transport failed to send",
		}),
		ResponseBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_bytes",
			Help:      "Size of response frames in bytes",
			Buckets:   []float64{64, 128, 256, 512, 1024, 1500},
		}),
	}
}

// Frame 对应Decoder.OnFrame回调
func (m *Metrics) Frame(accepted bool) {
	if m == nil {
		return
	}
	if accepted {
		m.FramesReceived.Inc()
	} else {
		m.FramesDiscarded.Inc()
	}
}

func (m *Metrics) DecodeError(err error) {
	if m == nil {
		return
	}
	m.DecodeErrors.WithLabelValues(ErrorKind(err)).Inc()
}

func (m *Metrics) Response(typ coap.Type, size int) {
	if m == nil {
		return
	}
	m.Responses.WithLabelValues(typ.String()).Inc()
	m.ResponseBytes.Observe(float64(size))
}

func (m *Metrics) SendError() {
	if m == nil {
		return
	}
	m.SendErrors.Inc()
}

// ErrorKind 将解码错误映射为标签值
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, coap.ErrUnsupportedOption):
		return "unsupported_option"
	case errors.Is(err, coap.ErrFormat):
		return "format"
	case errors.Is(err, coap.ErrVersion):
		return "version"
	case errors.Is(err, coap.ErrTokenLength):
		return "token_length"
	case errors.Is(err, coap.ErrTruncated):
		return "truncated"
	case errors.Is(err, netstack.ErrNotUDP):
		return "not_udp"
	}
	return "other"
}
