package coap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionHeaderRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 12, 13, 268, 269, 270, 65548, MaxExtendedValue}
	for _, delta := range values {
		for _, length := range []uint32{0, 12, 13, 269} {
			enc, err := AppendOptionHeader(nil, delta, length)
			require.NoError(t, err)

			d, l, n, err := DecodeOptionHeader(enc)
			require.NoError(t, err, "delta=%d length=%d", delta, length)
			assert.Equal(t, delta, d)
			assert.Equal(t, length, l)
			assert.Equal(t, len(enc), n)
		}
	}
}

func TestOptionHeaderEncodingForm(t *testing.T) {
	tests := []struct {
		delta uint32
		want  []byte
	}{
		{0, []byte{0x00}},
		{12, []byte{0xc0}},
		{13, []byte{0xd0, 0x00}},
		{268, []byte{0xd0, 0xff}},
		{269, []byte{0xe0, 0x00, 0x00}},
		{270, []byte{0xe0, 0x00, 0x01}},
		{65548, []byte{0xe0, 0xfe, 0xff}},
	}
	for _, tt := range tests {
		got, err := AppendOptionHeader(nil, tt.delta, 0)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "delta %d", tt.delta)
	}
}

func TestOptionHeaderReservedNibble(t *testing.T) {
	for _, b := range [][]byte{
		{0xf0},             // delta 15
		{0xf5, 1, 2, 3},    // delta 15, length 5
		{0x1f},             // length 15
		{0xdf, 0x00},       // delta 13 ext, length 15
		{0xef, 0x00, 0x01}, // delta 14 ext, length 15
	} {
		_, _, _, err := DecodeOptionHeader(b)
		assert.ErrorIs(t, err, ErrFormat, "% x", b)
	}
}

func TestOptionHeaderTruncatedExtension(t *testing.T) {
	for _, b := range [][]byte{
		{},
		{0xd0},
		{0xe0, 0x01},
		{0x0d},
		{0x0e, 0x00},
		{0xdd, 0x01},
	} {
		_, _, _, err := DecodeOptionHeader(b)
		assert.ErrorIs(t, err, ErrTruncated, "% x", b)
	}
}

func TestAppendOptionHeaderOverflow(t *testing.T) {
	_, err := AppendOptionHeader(nil, MaxExtendedValue+1, 0)
	assert.ErrorIs(t, err, ErrFormat)
	_, err = AppendOptionHeader(nil, 0, MaxExtendedValue+1)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestAppendMessageSortsOptions(t *testing.T) {
	raw, err := AppendMessage(nil, Header{Type: Confirmable, Code: GET, MessageID: 1}, []byte{0x3a},
		[]RawOption{
			{ID: Accept, Value: []byte{50}},
			{ID: URIPath, Value: []byte("a")},
		}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x41, 0x01, 0x00, 0x01, 0x3a,
		0xb1, 'a', // delta 11
		0x61, 50, // delta 6
	}, raw)

	_, err = AppendMessage(nil, Header{}, make([]byte, 9), nil, nil)
	assert.ErrorIs(t, err, ErrTokenLength)
}
