package coap

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/junbin-yang/microcoap-go/pkg/netstack"
	log "github.com/junbin-yang/microcoap-go/pkg/utils/logger"
)

// Decode 解析一个完整的以太网/IPv4/UDP/CoAP帧。
// 扫描边界由IPv4总长度决定；遇到不支持的选项或格式错误时整条消息作废。
func Decode(frame []byte) (*Message, error) {
	f, err := netstack.NewFrame(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if !f.IsIPv4UDP() {
		return nil, netstack.ErrNotUDP
	}
	end := f.End()
	off := Offset
	if end-off < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes after udp header", ErrTruncated, end-off)
	}

	h := Header{
		Version:     frame[off] >> 6,
		Type:        Type(frame[off] >> 4 & 0x3),
		TokenLength: frame[off] & 0x0f,
		Code:        Code(frame[off+1]),
		MessageID:   binary.BigEndian.Uint16(frame[off+2 : off+4]),
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if h.TokenLength > MaxTokenLength {
		return nil, fmt.Errorf("%w: %d", ErrTokenLength, h.TokenLength)
	}
	off += HeaderSize

	tkl := int(h.TokenLength)
	if off+tkl > end {
		return nil, fmt.Errorf("%w: token", ErrTruncated)
	}
	msg := &Message{
		Route:  f.Route(),
		Header: h,
		Token:  frame[off : off+tkl : off+tkl],
	}
	off += tkl

	off, err = decodeOptions(frame[:end], off, &msg.Options)
	if err != nil {
		return nil, err
	}
	if off < end && frame[off] == PayloadMarker {
		// 负载标记后必须至少有一个字节
		if off+1 == end {
			return nil, fmt.Errorf("%w: payload marker at offset %d without payload", ErrFormat, off)
		}
		msg.Payload = frame[off+1 : end : end]
	}
	return msg, nil
}

// decodeOptions 从off开始逐个解析选项，直到负载标记或边界，返回停止位置
func decodeOptions(b []byte, off int, opts *Options) (int, error) {
	var number uint32
	for off < len(b) && b[off] != PayloadMarker {
		delta, length, n, err := DecodeOptionHeader(b[off:])
		if err != nil {
			return off, fmt.Errorf("offset %d: %w", off, err)
		}
		number += delta
		if number > 0xffff {
			return off, fmt.Errorf("%w: option number %d overflows", ErrFormat, number)
		}
		id := OptionID(number)
		if !Supported(id) {
			return off, &OptionError{Number: id, Offset: off}
		}

		start := off + n
		if uint32(len(b)-start) < length {
			return off, fmt.Errorf("%w: option %s value needs %d bytes, %d left", ErrTruncated, id, length, len(b)-start)
		}
		stop := start + int(length)
		opts.set(id, b[start:stop:stop])
		off = stop
	}
	return off, nil
}

// Decoder 在Transport上等待发往Port的请求
type Decoder struct {
	Transport netstack.Transport
	Port      uint16

	// OnFrame 每收到一帧时回调，accepted表示目的端口匹配
	OnFrame func(accepted bool)
}

func NewDecoder(tr netstack.Transport, port uint16) *Decoder {
	return &Decoder{Transport: tr, Port: port}
}

// Receive 阻塞轮询Transport，丢弃非IPv4/UDP或目的端口不符的帧，
// 直到收到匹配的帧并完成解码。只在ctx结束或Transport出错时提前返回。
// 返回的Message引用frame，frame被复用后即失效。
func (d *Decoder) Receive(ctx context.Context, frame []byte) (*Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := d.Transport.Receive(frame)
		if errors.Is(err, netstack.ErrNoFrame) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !d.accept(frame[:n]) {
			d.notify(false)
			continue
		}
		d.notify(true)

		msg, err := Decode(frame[:n])
		if err != nil {
			log.Errorf("[COAP] 解码失败: %v", err)
			return nil, err
		}
		log.Debugf("[COAP] 收到请求 %s, %d bytes", msg.Route, n)
		return msg, nil
	}
}

func (d *Decoder) accept(frame []byte) bool {
	f, err := netstack.NewFrame(frame)
	if err != nil || !f.IsIPv4UDP() {
		return false
	}
	return f.UDP().DestinationPort() == d.Port
}

func (d *Decoder) notify(accepted bool) {
	if d.OnFrame != nil {
		d.OnFrame(accepted)
	}
}
