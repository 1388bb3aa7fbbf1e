package coap

import (
	"encoding/binary"
	"fmt"

	"github.com/junbin-yang/microcoap-go/pkg/netstack"
	log "github.com/junbin-yang/microcoap-go/pkg/utils/logger"
)

// ResponseIdent 应答帧使用的固定IPv4标识
const ResponseIdent = 0xdeee

// Encoder 在请求所在的帧缓冲区上原地生成应答
type Encoder struct {
	// Device 本设备地址，零值字段沿用请求的目的地址
	Device    netstack.Device
	Transport netstack.Transport
}

func NewEncoder(dev netstack.Device, tr netstack.Transport) *Encoder {
	return &Encoder{Device: dev, Transport: tr}
}

// EncodeResponse 将msg改写为应答并写入frame，返回帧总长度：
// 交换收发地址，CON改为ACK，应答码置为2.05 Content，清空选项，
// Token保持原位，其后写入负载标记与payload，最后重算长度与校验和。
// 调用后msg原有的选项视图失效，Token、Payload指向新写入的位置。
func (e *Encoder) EncodeResponse(frame []byte, msg *Message, payload []byte) (int, error) {
	f, err := netstack.NewFrame(frame)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBufferTooSmall, err)
	}
	tkl := len(msg.Token)
	if tkl > MaxTokenLength {
		return 0, fmt.Errorf("%w: %d", ErrTokenLength, tkl)
	}
	total := Offset + HeaderSize + tkl
	if len(payload) > 0 {
		total += 1 + len(payload)
	}
	if total > len(frame) || total-netstack.EthernetHeaderSize > 0xffff {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, total, len(frame))
	}

	if !f.IsIPv4UDP() {
		// 独立副本写入新缓冲区时补齐三层头部
		f.InitHeaders()
	}
	msg.Route = msg.Route.Reply(e.Device)
	f.SetRoute(msg.Route)

	if msg.Header.Type == Confirmable {
		msg.Header.Type = Acknowledgement
	}
	msg.Header.Version = Version
	msg.Header.Code = Content
	msg.Header.TokenLength = uint8(tkl)
	msg.Options.Reset()

	off := Offset
	frame[off] = msg.Header.Version<<6 | byte(msg.Header.Type&0x3)<<4 | msg.Header.TokenLength
	frame[off+1] = byte(msg.Header.Code)
	binary.BigEndian.PutUint16(frame[off+2:off+4], msg.Header.MessageID)
	off += HeaderSize

	copy(frame[off:off+tkl], msg.Token)
	msg.Token = frame[off : off+tkl : off+tkl]
	off += tkl

	msg.Payload = nil
	if len(payload) > 0 {
		frame[off] = PayloadMarker
		off++
		copy(frame[off:], payload)
		msg.Payload = frame[off : off+len(payload) : off+len(payload)]
		off += len(payload)
	}

	if err := f.Finalize(off, ResponseIdent); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBufferTooSmall, err)
	}
	return off, nil
}

// Respond 生成应答并交给Transport发送。发送失败视为本次交互失败，不重试。
func (e *Encoder) Respond(frame []byte, msg *Message, payload []byte) (int, error) {
	n, err := e.EncodeResponse(frame, msg, payload)
	if err != nil {
		log.Errorf("[COAP] 构造应答失败: %v", err)
		return 0, err
	}
	if e.Transport == nil {
		return n, fmt.Errorf("%w: no transport", ErrTransportSend)
	}
	if err := e.Transport.Send(frame[:n]); err != nil {
		log.Error("[COAP] 发送应答失败", log.GetError(err))
		return n, fmt.Errorf("%w: %w", ErrTransportSend, err)
	}
	log.Debugf("[COAP] 应答已发送 %s, %d bytes", msg.Route, n)
	return n, nil
}
