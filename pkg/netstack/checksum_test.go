package netstack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		seed uint16
		data []byte
		want uint16
	}{
		{"rfc1071 example", 0, []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7}, 0xddf2},
		{"empty", 0, nil, 0},
		{"seed only", 0x1234, nil, 0x1234},
		{"odd trailing byte is high byte", 0, []byte{0x01}, 0x0100},
		{"odd length", 0, []byte{0x12, 0x34, 0x56}, 0x1234 + 0x5600},
		{"end-around carry", 0xffff, []byte{0x00, 0x01}, 0x0001},
		{"zero filled", 0, make([]byte, 64), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(tt.seed, tt.data))
		})
	}
}

func TestChecksumChaining(t *testing.T) {
	data := []byte{0x45, 0x00, 0x00, 0x73, 0x00, 0x00, 0x40, 0x00, 0x40, 0x11}
	whole := Checksum(0, data)
	split := Checksum(Checksum(0, data[:4]), data[4:])
	assert.Equal(t, whole, split)
}

func TestIPv4HeaderChecksumKnownVector(t *testing.T) {
	hdr := []byte{
		0x45, 0x00, 0x00, 0x73, 0x00, 0x00, 0x40, 0x00, 0x40, 0x11,
		0x00, 0x00, // checksum
		0xc0, 0xa8, 0x00, 0x01, 0xc0, 0xa8, 0x00, 0xc7,
	}
	assert.Equal(t, uint16(0xb861), ^Checksum(0, hdr))

	hdr[10], hdr[11] = 0xb8, 0x61
	// 含校验和的头部累加结果应为全1
	assert.Equal(t, uint16(0xffff), Checksum(0, hdr))
}

func TestPseudoHeaderSeed(t *testing.T) {
	src := [4]byte{192, 168, 0, 1}
	dst := [4]byte{192, 168, 0, 199}
	manual := Checksum(0, []byte{
		192, 168, 0, 1,
		192, 168, 0, 199,
		0x00, ProtocolUDP,
		0x00, 0x1f,
	})
	require.Equal(t, manual, PseudoHeaderSeed(src, dst, 0x1f))
}
