// Package responder 实现单缓冲区的请求/应答循环：
// 每次交互复用同一个帧缓冲区，先原地解码请求，再原地改写为应答并发送。
package responder

import (
	"context"
	"errors"

	"github.com/junbin-yang/microcoap-go/pkg/coap"
	"github.com/junbin-yang/microcoap-go/pkg/metrics"
	"github.com/junbin-yang/microcoap-go/pkg/netstack"
	log "github.com/junbin-yang/microcoap-go/pkg/utils/logger"
)

const DefaultBufferSize = 1500

// PayloadFunc 根据请求选择应答负载，msg仅在调用期间有效
type PayloadFunc func(msg *coap.Message) []byte

type Server struct {
	Decoder *coap.Decoder
	Encoder *coap.Encoder
	// Payload 固定应答负载，Handler非空时被忽略
	Payload []byte
	Handler PayloadFunc
	Metrics *metrics.Metrics

	buf []byte
}

func New(tr netstack.Transport, dev netstack.Device, port uint16, bufferSize int, m *metrics.Metrics) *Server {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	dec := coap.NewDecoder(tr, port)
	dec.OnFrame = m.Frame
	return &Server{
		Decoder: dec,
		Encoder: coap.NewEncoder(dev, tr),
		Metrics: m,
		buf:     make([]byte, bufferSize),
	}
}

// ServeOnce 完成一次交互：等待请求、解码、生成应答并发送
func (s *Server) ServeOnce(ctx context.Context) error {
	if s.buf == nil {
		s.buf = make([]byte, DefaultBufferSize)
	}
	msg, err := s.Decoder.Receive(ctx, s.buf)
	if err != nil {
		if isDecodeError(err) {
			s.Metrics.DecodeError(err)
		}
		return err
	}
	coap.LogMessage("[RESPONDER] 请求", msg)

	payload := s.Payload
	if s.Handler != nil {
		payload = s.Handler(msg)
	}
	n, err := s.Encoder.Respond(s.buf, msg, payload)
	if err != nil {
		if errors.Is(err, coap.ErrTransportSend) {
			s.Metrics.SendError()
		}
		return err
	}
	s.Metrics.Response(msg.Header.Type, n)
	coap.LogMessage("[RESPONDER] 应答", msg)
	return nil
}

// Serve 循环处理请求。单次交互失败只丢弃该交互；
// ctx结束或Transport不可用时返回。
func (s *Server) Serve(ctx context.Context) error {
	log.Infof("[RESPONDER] 开始服务, 端口 %d", s.Decoder.Port)
	for {
		err := s.ServeOnce(ctx)
		if err == nil {
			continue
		}
		if Dropped(err) {
			log.Warnf("[RESPONDER] 丢弃本次交互: %v", err)
			continue
		}
		if ctx.Err() != nil {
			log.Infof("[RESPONDER] 服务停止")
			return ctx.Err()
		}
		log.Errorf("[RESPONDER] 传输层错误, 服务退出: %v", err)
		return err
	}
}

// Dropped 判断错误是否只影响单次交互
func Dropped(err error) bool {
	return isDecodeError(err) ||
		errors.Is(err, coap.ErrTransportSend) ||
		errors.Is(err, coap.ErrBufferTooSmall) ||
		errors.Is(err, netstack.ErrFrameTooLarge)
}

func isDecodeError(err error) bool {
	for _, target := range []error{
		coap.ErrFormat, coap.ErrUnsupportedOption, coap.ErrVersion,
		coap.ErrTokenLength, coap.ErrTruncated, netstack.ErrNotUDP,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
