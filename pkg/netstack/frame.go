// Package netstack 提供以太网/IPv4/UDP帧的原地读写视图、校验和计算，
// 以及CoAP编解码所依赖的收发接口。
package netstack

import (
	"encoding/binary"
	"fmt"
	"net"
)

// 各层头部长度（不含IPv4选项、VLAN标签）
const (
	EthernetHeaderSize = 14
	IPv4HeaderSize     = 20
	UDPHeaderSize      = 8
	HeaderSize         = EthernetHeaderSize + IPv4HeaderSize + UDPHeaderSize

	EtherTypeIPv4 = 0x0800
	ProtocolUDP   = 17
	DefaultTTL    = 64
	ipv4Version   = 4
)

// EthFrame 以太网头部视图
type EthFrame struct {
	buf []byte
}

func (e EthFrame) Destination() *[6]byte { return (*[6]byte)(e.buf[0:6]) }
func (e EthFrame) Source() *[6]byte      { return (*[6]byte)(e.buf[6:12]) }

func (e EthFrame) EtherType() uint16 { return binary.BigEndian.Uint16(e.buf[12:14]) }

func (e EthFrame) SetEtherType(t uint16) { binary.BigEndian.PutUint16(e.buf[12:14], t) }

// IPv4Frame IPv4头部视图，固定20字节头部
type IPv4Frame struct {
	buf []byte
}

func (i IPv4Frame) Version() uint8 { return i.buf[0] >> 4 }

// IHL 头部长度，单位4字节
func (i IPv4Frame) IHL() uint8 { return i.buf[0] & 0x0f }

func (i IPv4Frame) SetVersionAndIHL(version, ihl uint8) { i.buf[0] = version<<4 | ihl&0x0f }

// TotalLength IPv4总长度（头部+数据）
func (i IPv4Frame) TotalLength() uint16 { return binary.BigEndian.Uint16(i.buf[2:4]) }

func (i IPv4Frame) SetTotalLength(l uint16) { binary.BigEndian.PutUint16(i.buf[2:4], l) }

func (i IPv4Frame) ID() uint16 { return binary.BigEndian.Uint16(i.buf[4:6]) }

func (i IPv4Frame) SetID(id uint16) { binary.BigEndian.PutUint16(i.buf[4:6], id) }

func (i IPv4Frame) TTL() uint8 { return i.buf[8] }

func (i IPv4Frame) SetTTL(ttl uint8) { i.buf[8] = ttl }

func (i IPv4Frame) Protocol() uint8 { return i.buf[9] }

func (i IPv4Frame) SetProtocol(p uint8) { i.buf[9] = p }

func (i IPv4Frame) CRC() uint16 { return binary.BigEndian.Uint16(i.buf[10:12]) }

func (i IPv4Frame) SetCRC(c uint16) { binary.BigEndian.PutUint16(i.buf[10:12], c) }

func (i IPv4Frame) SourceAddr() *[4]byte      { return (*[4]byte)(i.buf[12:16]) }
func (i IPv4Frame) DestinationAddr() *[4]byte { return (*[4]byte)(i.buf[16:20]) }

// Header 返回20字节头部
func (i IPv4Frame) Header() []byte { return i.buf[:IPv4HeaderSize] }

// UDPFrame UDP头部及数据视图
type UDPFrame struct {
	buf []byte
}

func (u UDPFrame) SourcePort() uint16 { return binary.BigEndian.Uint16(u.buf[0:2]) }

func (u UDPFrame) SetSourcePort(p uint16) { binary.BigEndian.PutUint16(u.buf[0:2], p) }

func (u UDPFrame) DestinationPort() uint16 { return binary.BigEndian.Uint16(u.buf[2:4]) }

func (u UDPFrame) SetDestinationPort(p uint16) { binary.BigEndian.PutUint16(u.buf[2:4], p) }

// Length UDP长度（头部+数据）
func (u UDPFrame) Length() uint16 { return binary.BigEndian.Uint16(u.buf[4:6]) }

func (u UDPFrame) SetLength(l uint16) { binary.BigEndian.PutUint16(u.buf[4:6], l) }

func (u UDPFrame) CRC() uint16 { return binary.BigEndian.Uint16(u.buf[6:8]) }

func (u UDPFrame) SetCRC(c uint16) { binary.BigEndian.PutUint16(u.buf[6:8], c) }

// segment 返回UDP头部+数据，长度按Length截断到缓冲区范围内
func (u UDPFrame) segment() []byte {
	l := int(u.Length())
	if l < UDPHeaderSize || l > len(u.buf) {
		l = len(u.buf)
	}
	return u.buf[:l]
}

// Payload 返回UDP数据部分
func (u UDPFrame) Payload() []byte { return u.segment()[UDPHeaderSize:] }

// Frame 完整的以太网帧，首字节为目的MAC
type Frame struct {
	buf []byte
}

// NewFrame 包装buf，buf至少包含以太网/IPv4/UDP三层头部
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < HeaderSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(buf))
	}
	return Frame{buf: buf}, nil
}

func (f Frame) Eth() EthFrame   { return EthFrame{buf: f.buf[:EthernetHeaderSize]} }
func (f Frame) IPv4() IPv4Frame { return IPv4Frame{buf: f.buf[EthernetHeaderSize:]} }
func (f Frame) UDP() UDPFrame   { return UDPFrame{buf: f.buf[EthernetHeaderSize+IPv4HeaderSize:]} }

// IsIPv4UDP 判断是否为IPv4承载的UDP报文。
// 各层按固定偏移解析，带选项的IPv4头部（IHL>5）同样视为不匹配。
func (f Frame) IsIPv4UDP() bool {
	return f.Eth().EtherType() == EtherTypeIPv4 &&
		f.IPv4().Version() == ipv4Version &&
		f.IPv4().IHL() == IPv4HeaderSize/4 &&
		f.IPv4().Protocol() == ProtocolUDP
}

// End 根据IPv4总长度计算帧的有效结尾，超出缓冲区时截断
func (f Frame) End() int {
	end := EthernetHeaderSize + int(f.IPv4().TotalLength())
	if end > len(f.buf) || end < HeaderSize {
		end = len(f.buf)
	}
	return end
}

// Route 读取帧中的收发地址
func (f Frame) Route() Route {
	var r Route
	eth, ip, udp := f.Eth(), f.IPv4(), f.UDP()
	r.DstMAC = *eth.Destination()
	r.SrcMAC = *eth.Source()
	r.SrcIP = *ip.SourceAddr()
	r.DstIP = *ip.DestinationAddr()
	r.SrcPort = udp.SourcePort()
	r.DstPort = udp.DestinationPort()
	return r
}

// SetRoute 将地址写回帧
func (f Frame) SetRoute(r Route) {
	eth, ip, udp := f.Eth(), f.IPv4(), f.UDP()
	*eth.Destination() = r.DstMAC
	*eth.Source() = r.SrcMAC
	*ip.SourceAddr() = r.SrcIP
	*ip.DestinationAddr() = r.DstIP
	udp.SetSourcePort(r.SrcPort)
	udp.SetDestinationPort(r.DstPort)
}

// InitHeaders 填写以太网类型、IPv4版本/头长、TTL与协议号
func (f Frame) InitHeaders() {
	f.Eth().SetEtherType(EtherTypeIPv4)
	ip := f.IPv4()
	ip.SetVersionAndIHL(ipv4Version, IPv4HeaderSize/4)
	ip.buf[1] = 0
	binary.BigEndian.PutUint16(ip.buf[6:8], 0)
	ip.SetTTL(DefaultTTL)
	ip.SetProtocol(ProtocolUDP)
}

// Finalize 按帧总长度total重写UDP/IPv4长度、IPv4标识，并重算两个校验和。
// 计算时校验和字段先置零，结果取反后写回。
func (f Frame) Finalize(total int, ident uint16) error {
	if total < HeaderSize || total > len(f.buf) || total-EthernetHeaderSize > 0xffff {
		return fmt.Errorf("%w: total length %d", ErrFrameTooLarge, total)
	}
	ip, udp := f.IPv4(), f.UDP()
	udpLen := uint16(total - EthernetHeaderSize - IPv4HeaderSize)
	udp.SetLength(udpLen)
	ip.SetTotalLength(uint16(total - EthernetHeaderSize))
	ip.SetID(ident)

	udp.SetCRC(0)
	ip.SetCRC(0)
	udp.SetCRC(udpChecksum(ip, udp))
	ip.SetCRC(^Checksum(0, ip.Header()))
	return nil
}

func udpChecksum(ip IPv4Frame, udp UDPFrame) uint16 {
	seg := udp.segment()
	seed := PseudoHeaderSeed(*ip.SourceAddr(), *ip.DestinationAddr(), uint16(len(seg)))
	c := ^Checksum(seed, seg)
	if c == 0 {
		// RFC 768: 全零表示未计算校验和
		c = 0xffff
	}
	return c
}

// VerifyIPv4 将校验和字段置零重算，与帧中已有值比较后恢复原值
func (f Frame) VerifyIPv4() bool {
	ip := f.IPv4()
	stored := ip.CRC()
	ip.SetCRC(0)
	calc := ^Checksum(0, ip.Header())
	ip.SetCRC(stored)
	return calc == stored
}

// VerifyUDP 同VerifyIPv4，针对UDP校验和
func (f Frame) VerifyUDP() bool {
	ip, udp := f.IPv4(), f.UDP()
	stored := udp.CRC()
	udp.SetCRC(0)
	calc := udpChecksum(ip, udp)
	udp.SetCRC(stored)
	return calc == stored
}

// Encapsulate 为已写入frame[HeaderSize:]的dataLen字节数据补齐三层头部，返回帧总长度
func Encapsulate(frame []byte, r Route, dataLen int, ident uint16) (int, error) {
	f, err := NewFrame(frame)
	if err != nil {
		return 0, err
	}
	total := HeaderSize + dataLen
	f.InitHeaders()
	f.SetRoute(r)
	if err := f.Finalize(total, ident); err != nil {
		return 0, err
	}
	return total, nil
}

// Route 一次UDP交互的链路层/网络层/传输层地址
type Route struct {
	SrcMAC, DstMAC   [6]byte
	SrcIP, DstIP     [4]byte
	SrcPort, DstPort uint16
}

// Reply 生成应答方向的地址：目的地址取请求源地址，源地址优先使用设备自身地址，
// 设备地址未配置时沿用请求的目的地址
func (r Route) Reply(dev Device) Route {
	reply := Route{
		DstMAC:  r.SrcMAC,
		DstIP:   r.SrcIP,
		SrcMAC:  r.DstMAC,
		SrcIP:   r.DstIP,
		SrcPort: r.DstPort,
		DstPort: r.SrcPort,
	}
	if dev.MAC != ([6]byte{}) {
		reply.SrcMAC = dev.MAC
	}
	if dev.IP != ([4]byte{}) {
		reply.SrcIP = dev.IP
	}
	return reply
}

func (r Route) String() string {
	return fmt.Sprintf("%s:%d(%s) -> %s:%d(%s)",
		net.IP(r.SrcIP[:]), r.SrcPort, net.HardwareAddr(r.SrcMAC[:]),
		net.IP(r.DstIP[:]), r.DstPort, net.HardwareAddr(r.DstMAC[:]))
}

// Device 本设备的链路层与网络层地址
type Device struct {
	MAC [6]byte
	IP  [4]byte
}

func (d Device) IsZero() bool { return d == Device{} }

// ParseDevice 解析MAC与IPv4字符串，空字符串对应字段保持为零
func ParseDevice(mac, ip string) (Device, error) {
	var dev Device
	if mac != "" {
		hw, err := net.ParseMAC(mac)
		if err != nil || len(hw) != 6 {
			return Device{}, fmt.Errorf("%w: mac %q", ErrInvalidAddr, mac)
		}
		copy(dev.MAC[:], hw)
	}
	if ip != "" {
		v4 := net.ParseIP(ip).To4()
		if v4 == nil {
			return Device{}, fmt.Errorf("%w: ipv4 %q", ErrInvalidAddr, ip)
		}
		copy(dev.IP[:], v4)
	}
	return dev, nil
}
