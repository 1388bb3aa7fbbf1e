package netstack

import (
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/ipv4"
)

// UDPTransport 以内核UDP套接字模拟链路层：
// 收到的数据报被补齐为以太网/IPv4/UDP帧，发送时再从帧中取出UDP数据按路由发出
type UDPTransport struct {
	conn  *net.UDPConn
	pc    *ipv4.PacketConn
	local *net.UDPAddr
	dev   Device
	poll  time.Duration
	ident uint16
}

// ListenUDP 绑定addr（如"0.0.0.0:5683"）。poll>0时每次Receive最多阻塞poll，
// 超时返回ErrNoFrame，便于上层轮询检查退出条件
func ListenUDP(addr string, dev Device, poll time.Duration) (*UDPTransport, error) {
	laddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddr, err)
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, err
	}
	pc := ipv4.NewPacketConn(conn)
	// 需要拿到请求的目的地址，应答才能从同一地址发出
	if err := pc.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true); err != nil {
		conn.Close()
		return nil, err
	}
	return &UDPTransport{
		conn:  conn,
		pc:    pc,
		local: conn.LocalAddr().(*net.UDPAddr),
		dev:   dev,
		poll:  poll,
	}, nil
}

func (t *UDPTransport) LocalAddr() *net.UDPAddr { return t.local }

func (t *UDPTransport) Receive(frame []byte) (int, error) {
	if len(frame) <= HeaderSize {
		return 0, fmt.Errorf("%w: buffer %d bytes", ErrShortFrame, len(frame))
	}
	if t.poll > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.poll)); err != nil {
			return 0, err
		}
	}
	n, cm, src, err := t.pc.ReadFrom(frame[HeaderSize:])
	if err != nil {
		var ne net.Error
		switch {
		case errors.As(err, &ne) && ne.Timeout():
			return 0, ErrNoFrame
		case errors.Is(err, net.ErrClosed):
			return 0, ErrClosed
		}
		return 0, err
	}
	if n == len(frame)-HeaderSize {
		// 填满缓冲区的报文无法与被内核截断的报文区分，一并丢弃
		return 0, fmt.Errorf("%w: datagram fills %d byte buffer", ErrFrameTooLarge, len(frame))
	}
	peer, ok := src.(*net.UDPAddr)
	if !ok || peer.IP.To4() == nil {
		return 0, ErrNoFrame
	}

	r := Route{
		DstMAC:  t.dev.MAC,
		DstIP:   t.dev.IP,
		SrcPort: uint16(peer.Port),
		DstPort: uint16(t.local.Port),
	}
	copy(r.SrcIP[:], peer.IP.To4())
	r.SrcMAC = peerMAC(r.SrcIP)
	if cm != nil && cm.Dst.To4() != nil {
		copy(r.DstIP[:], cm.Dst.To4())
	}
	t.ident++
	return Encapsulate(frame, r, n, t.ident)
}

func (t *UDPTransport) Send(frame []byte) error {
	f, err := NewFrame(frame)
	if err != nil {
		return err
	}
	if !f.IsIPv4UDP() {
		return ErrNotUDP
	}
	r := f.Route()
	dst := &net.UDPAddr{
		IP:   net.IPv4(r.DstIP[0], r.DstIP[1], r.DstIP[2], r.DstIP[3]),
		Port: int(r.DstPort),
	}
	var cm *ipv4.ControlMessage
	if r.SrcIP != ([4]byte{}) {
		cm = &ipv4.ControlMessage{Src: net.IPv4(r.SrcIP[0], r.SrcIP[1], r.SrcIP[2], r.SrcIP[3])}
	}
	_, err = t.pc.WriteTo(f.UDP().Payload(), cm, dst)
	return err
}

func (t *UDPTransport) Close() error {
	return t.conn.Close()
}

// peerMAC 内核套接字拿不到对端MAC，用本地管理地址02:00:<ip>占位
func peerMAC(ip [4]byte) [6]byte {
	return [6]byte{0x02, 0x00, ip[0], ip[1], ip[2], ip[3]}
}
