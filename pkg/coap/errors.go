package coap

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat 选项delta/length出现保留值15等格式错误
	ErrFormat = errors.New("coap: message format error")
	// ErrUnsupportedOption 选项编号不在支持范围内
	ErrUnsupportedOption = errors.New("coap: option not supported")
	// ErrTransportSend 应答帧发送失败
	ErrTransportSend = errors.New("coap: transport send failed")

	ErrVersion        = errors.New("coap: unsupported version")
	ErrTokenLength    = errors.New("coap: invalid token length")
	ErrTruncated      = errors.New("coap: truncated message")
	ErrBufferTooSmall = errors.New("coap: buffer too small")
)

// OptionError 遇到不支持的选项时返回，errors.Is(err, ErrUnsupportedOption)为真
type OptionError struct {
	Number OptionID
	Offset int
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("coap: option %s (%d) not supported at offset %d", e.Number, uint16(e.Number), e.Offset)
}

func (e *OptionError) Unwrap() error { return ErrUnsupportedOption }
