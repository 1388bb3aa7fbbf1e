// Package coap 实现受限设备上的CoAP(RFC 7252)请求解码与应答编码。
//
// 请求与应答共用同一个帧缓冲区：Decode得到的Message中Token、选项值、
// Payload均为缓冲区切片，只在下一次接收或EncodeResponse覆盖缓冲区之前有效。
// 需要跨越缓冲区复用保存消息时，先调用Message.Clone取得独立副本。
package coap

import "github.com/junbin-yang/microcoap-go/pkg/netstack"

const (
	Version        = 1
	HeaderSize     = 4
	MaxTokenLength = 8
	PayloadMarker  = 0xFF
	DefaultPort    = 5683

	// Offset CoAP头部在以太网帧中的偏移
	Offset = netstack.HeaderSize
)

// Type 消息类型
type Type uint8

const (
	Confirmable     Type = 0
	NonConfirmable  Type = 1
	Acknowledgement Type = 2
	Reset           Type = 3
)

// Code 请求方法或应答码，编码为 class<<5 | detail
type Code uint8

// NewCode 由class.detail构造Code
func NewCode(class, detail uint8) Code {
	return Code((class&0x7)<<5 | detail&0x1f)
}

func (c Code) Class() uint8  { return uint8(c) >> 5 }
func (c Code) Detail() uint8 { return uint8(c) & 0x1f }

// IsRequest 0.01~0.31为请求方法
func (c Code) IsRequest() bool { return c.Class() == 0 && c != Empty }

const (
	Empty  Code = 0<<5 | 0
	GET    Code = 0<<5 | 1
	POST   Code = 0<<5 | 2
	PUT    Code = 0<<5 | 3
	DELETE Code = 0<<5 | 4

	Created Code = 2<<5 | 1
	Deleted Code = 2<<5 | 2
	Valid   Code = 2<<5 | 3
	Changed Code = 2<<5 | 4
	Content Code = 2<<5 | 5

	BadRequest               Code = 4<<5 | 0
	Unauthorized             Code = 4<<5 | 1
	BadOption                Code = 4<<5 | 2
	Forbidden                Code = 4<<5 | 3
	NotFound                 Code = 4<<5 | 4
	MethodNotAllowed         Code = 4<<5 | 5
	NotAcceptable            Code = 4<<5 | 6
	PreconditionFailed       Code = 4<<5 | 12
	RequestEntityTooLarge    Code = 4<<5 | 13
	UnsupportedContentFormat Code = 4<<5 | 15

	InternalServerError  Code = 5<<5 | 0
	NotImplemented       Code = 5<<5 | 1
	BadGateway           Code = 5<<5 | 2
	ServiceUnavailable   Code = 5<<5 | 3
	GatewayTimeout       Code = 5<<5 | 4
	ProxyingNotSupported Code = 5<<5 | 5
)

// OptionID 选项编号
type OptionID uint16

const (
	IfMatch       OptionID = 1
	URIHost       OptionID = 3
	ETag          OptionID = 4
	IfNoneMatch   OptionID = 5
	URIPort       OptionID = 7
	LocationPath  OptionID = 8
	URIPath       OptionID = 11
	ContentFormat OptionID = 12
	MaxAge        OptionID = 14
	URIQuery      OptionID = 15
	Accept        OptionID = 17
	LocationQuery OptionID = 20
	ProxyURI      OptionID = 35
	ProxyScheme   OptionID = 39
	Size1         OptionID = 60
)

// Header CoAP固定4字节头部
type Header struct {
	Version     uint8
	Type        Type
	TokenLength uint8
	Code        Code
	MessageID   uint16
}
