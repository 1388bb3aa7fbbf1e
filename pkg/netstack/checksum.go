package netstack

import "encoding/binary"

// Checksum 计算RFC 1071反码和（未取反）。
// data按大端16位字累加，奇数长度时最后一个字节作为高位补零。
// 返回值可作为下一段数据的seed继续累加，最终由调用方取反。
func Checksum(seed uint16, data []byte) uint16 {
	sum := uint32(seed)
	n := len(data) &^ 1
	for i := 0; i < n; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(data[i : i+2]))
	}
	if len(data)&1 != 0 {
		sum += uint32(data[len(data)-1]) << 8
	}
	return fold(sum)
}

// PseudoHeaderSeed 计算UDP伪首部的累加和：协议号 + UDP长度 + 源/目的地址
func PseudoHeaderSeed(src, dst [4]byte, udpLength uint16) uint16 {
	seed := fold(uint32(ProtocolUDP) + uint32(udpLength))
	seed = Checksum(seed, src[:])
	return Checksum(seed, dst[:])
}

func fold(sum uint32) uint16 {
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return uint16(sum)
}
