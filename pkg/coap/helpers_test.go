package coap

import (
	"testing"

	"github.com/junbin-yang/microcoap-go/pkg/netstack"
	"github.com/stretchr/testify/require"
)

var reqRoute = netstack.Route{
	SrcMAC:  [6]byte{0xaa, 0xbb, 0xcc, 0x00, 0x00, 0x01},
	DstMAC:  [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x10},
	SrcIP:   [4]byte{192, 168, 1, 20},
	DstIP:   [4]byte{192, 168, 1, 10},
	SrcPort: 50000,
	DstPort: DefaultPort,
}

const testBufferSize = 1500

// requestFrame 将CoAP字节封装进完整的以太网帧，返回整个工作缓冲区
func requestFrame(t *testing.T, coapBytes []byte) []byte {
	t.Helper()
	return requestFrameTo(t, reqRoute, coapBytes)
}

func requestFrameTo(t *testing.T, r netstack.Route, coapBytes []byte) []byte {
	t.Helper()
	buf := make([]byte, testBufferSize)
	copy(buf[Offset:], coapBytes)
	_, err := netstack.Encapsulate(buf, r, len(coapBytes), 7)
	require.NoError(t, err)
	return buf
}

func buildRequest(t *testing.T, typ Type, code Code, token []byte, opts []RawOption, payload []byte) []byte {
	t.Helper()
	raw, err := AppendMessage(nil, Header{Type: typ, Code: code, MessageID: 0x1234}, token, opts, payload)
	require.NoError(t, err)
	return raw
}
