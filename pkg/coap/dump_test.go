package coap

import (
	"bytes"
	"testing"

	log "github.com/junbin-yang/microcoap-go/pkg/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeString(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{GET, "GET"},
		{DELETE, "DELETE"},
		{Empty, "EMPTY"},
		{Content, "2.05 Content"},
		{NotFound, "4.04 Not Found"},
		{ProxyingNotSupported, "5.05 Proxying Not Supported"},
		{NewCode(0, 7), "0.07"},
		{NewCode(2, 31), "2.31"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.String())
	}
	assert.Equal(t, Code(0x45), Content)
	assert.True(t, POST.IsRequest())
	assert.False(t, Empty.IsRequest())
	assert.False(t, Content.IsRequest())
}

func TestTypeAndOptionString(t *testing.T) {
	assert.Equal(t, "Acknowledgement", Acknowledgement.String())
	assert.Equal(t, "Type(7)", Type(7).String())
	assert.Equal(t, "Uri-Path", URIPath.String())
	assert.Equal(t, "Option(6)", OptionID(6).String())
}

func TestOptionUint(t *testing.T) {
	assert.Equal(t, uint32(0), Option{}.Uint())
	assert.Equal(t, uint32(0x0102), Option{Value: []byte{1, 2}}.Uint())
	assert.False(t, Option{}.Present())

	var opts Options
	_, ok := opts.Get(IfMatch)
	assert.False(t, ok)
	opts.set(Accept, []byte{50})
	got, ok := opts.Get(Accept)
	assert.True(t, ok)
	assert.Equal(t, uint32(50), got.Uint())
	opts.Reset()
	assert.Equal(t, Options{}, opts)
}

func TestLogMessageNil(t *testing.T) {
	assert.NotPanics(t, func() {
		LogMessage("nil", nil)
		LogMessage("msg", &Message{Token: []byte{1}, Options: Options{URIPath: Option{Value: []byte("a")}}, Payload: []byte("p")})
	})
}

func TestLogMessageFields(t *testing.T) {
	prev := log.Default()
	t.Cleanup(func() { log.ReplaceDefault(prev) })
	var buf bytes.Buffer
	log.ReplaceDefault(log.New(&buf, log.DebugLevel))

	raw := buildRequest(t, Confirmable, POST, []byte{0x3a}, []RawOption{
		{ID: URIPath, Value: []byte("temp")},
		{ID: ContentFormat, Value: []byte{50}},
		{ID: URIQuery, Value: []byte{0xff, 0xfe}},
	}, []byte("body"))
	msg, err := Decode(requestFrame(t, raw))
	require.NoError(t, err)

	LogMessage("[TEST] 请求", msg)
	out := buf.String()
	assert.Contains(t, out, "[TEST] 请求")
	assert.Contains(t, out, `"type": "Confirmable"`)
	assert.Contains(t, out, `"code": "POST"`)
	assert.Contains(t, out, `"mid": 4660`)
	assert.Contains(t, out, `"token": "3a"`)
	assert.Contains(t, out, `"Uri-Path": "temp"`)
	assert.Contains(t, out, `"Content-Format": "50"`)
	// 非UTF-8的查询串以十六进制输出
	assert.Contains(t, out, `"Uri-Query": "fffe"`)
	assert.Contains(t, out, `"payload": 4`)
	assert.NotContains(t, out, "Accept")

	buf.Reset()
	log.SetLevel(log.InfoLevel)
	LogMessage("[TEST] 隐藏", msg)
	assert.Empty(t, buf.String())
}
