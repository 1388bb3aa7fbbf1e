package coap

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// 选项delta/length半字节扩展规则
const (
	nibbleExt8     = 13
	nibbleExt16    = 14
	nibbleReserved = 15

	ext8Base  = 13
	ext16Base = 269

	// MaxExtendedValue 两字节扩展所能表示的最大值
	MaxExtendedValue = ext16Base + 0xffff
)

// DecodeOptionHeader 解析一个选项的头部字节及其扩展字节，
// 返回delta、值长度以及头部占用的字节数n（不含选项值）
func DecodeOptionHeader(b []byte) (delta, length uint32, n int, err error) {
	if len(b) == 0 {
		return 0, 0, 0, ErrTruncated
	}
	n = 1
	delta, n, err = extendNibble(b, b[0]>>4, n, "delta")
	if err != nil {
		return 0, 0, n, err
	}
	length, n, err = extendNibble(b, b[0]&0x0f, n, "length")
	if err != nil {
		return 0, 0, n, err
	}
	return delta, length, n, nil
}

func extendNibble(b []byte, nibble byte, n int, field string) (uint32, int, error) {
	switch nibble {
	case nibbleExt8:
		if len(b) < n+1 {
			return 0, n, fmt.Errorf("%w: option %s extension", ErrTruncated, field)
		}
		return uint32(b[n]) + ext8Base, n + 1, nil
	case nibbleExt16:
		if len(b) < n+2 {
			return 0, n, fmt.Errorf("%w: option %s extension", ErrTruncated, field)
		}
		return uint32(binary.BigEndian.Uint16(b[n:n+2])) + ext16Base, n + 2, nil
	case nibbleReserved:
		// 15只允许作为负载标记0xFF整体出现
		return 0, n, fmt.Errorf("%w: reserved value 15 in option %s", ErrFormat, field)
	default:
		return uint32(nibble), n, nil
	}
}

// AppendOptionHeader 将delta与length编码后追加到dst
func AppendOptionHeader(dst []byte, delta, length uint32) ([]byte, error) {
	dn, dext, err := splitNibble(delta)
	if err != nil {
		return dst, fmt.Errorf("option delta: %w", err)
	}
	ln, lext, err := splitNibble(length)
	if err != nil {
		return dst, fmt.Errorf("option length: %w", err)
	}
	dst = append(dst, dn<<4|ln)
	dst = append(dst, dext...)
	return append(dst, lext...), nil
}

func splitNibble(v uint32) (byte, []byte, error) {
	switch {
	case v < ext8Base:
		return byte(v), nil, nil
	case v < ext16Base:
		return nibbleExt8, []byte{byte(v - ext8Base)}, nil
	case v <= MaxExtendedValue:
		ext := make([]byte, 2)
		binary.BigEndian.PutUint16(ext, uint16(v-ext16Base))
		return nibbleExt16, ext, nil
	default:
		return 0, nil, fmt.Errorf("%w: value %d exceeds %d", ErrFormat, v, MaxExtendedValue)
	}
}

// RawOption 编码用的选项
type RawOption struct {
	ID    OptionID
	Value []byte
}

// AppendMessage 编码一条完整的CoAP消息（头部、Token、选项、负载）并追加到dst。
// 选项按编号升序写入；用于构造请求，应答路径不经过这里。
func AppendMessage(dst []byte, h Header, token []byte, opts []RawOption, payload []byte) ([]byte, error) {
	if len(token) > MaxTokenLength {
		return dst, fmt.Errorf("%w: %d", ErrTokenLength, len(token))
	}
	dst = append(dst,
		Version<<6|byte(h.Type&0x3)<<4|byte(len(token)),
		byte(h.Code),
		byte(h.MessageID>>8), byte(h.MessageID),
	)
	dst = append(dst, token...)

	sorted := make([]RawOption, len(opts))
	copy(sorted, opts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var prev OptionID
	var err error
	for _, o := range sorted {
		dst, err = AppendOptionHeader(dst, uint32(o.ID-prev), uint32(len(o.Value)))
		if err != nil {
			return dst, err
		}
		dst = append(dst, o.Value...)
		prev = o.ID
	}
	if len(payload) > 0 {
		dst = append(dst, PayloadMarker)
		dst = append(dst, payload...)
	}
	return dst, nil
}
