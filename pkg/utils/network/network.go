// Package network 查询本机网络接口的链路层与IPv4地址
package network

import (
	"errors"
	"fmt"
	"net"
)

var ErrNoInterface = errors.New("network: no usable interface")

// InterfaceInfo 网络接口信息，Addresses与Masks一一对应
type InterfaceInfo struct {
	Name      string
	Index     int
	MAC       net.HardwareAddr
	Flags     net.Flags
	Addresses []net.IP
	Masks     []net.IPMask
}

// FirstIPv4 返回接口上第一个IPv4地址及其掩码
func (i *InterfaceInfo) FirstIPv4() (net.IP, net.IPMask, bool) {
	for n, addr := range i.Addresses {
		if v4 := addr.To4(); v4 != nil {
			mask := i.Masks[n]
			if len(mask) == net.IPv6len {
				mask = mask[12:]
			}
			return v4, mask, true
		}
	}
	return nil, nil, false
}

func (i *InterfaceInfo) usable() bool {
	return i.Flags&net.FlagUp != 0 && i.Flags&net.FlagLoopback == 0 && len(i.MAC) == 6
}

func fromNet(ifc net.Interface) (*InterfaceInfo, error) {
	info := &InterfaceInfo{Name: ifc.Name, Index: ifc.Index, MAC: ifc.HardwareAddr, Flags: ifc.Flags}
	addrs, err := ifc.Addrs()
	if err != nil {
		return nil, fmt.Errorf("读取接口%s地址失败: %w", ifc.Name, err)
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok {
			info.Addresses = append(info.Addresses, ipn.IP)
			info.Masks = append(info.Masks, ipn.Mask)
		}
	}
	return info, nil
}

// GetInterface 按名称查询接口
func GetInterface(name string) (*InterfaceInfo, error) {
	ifc, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("接口%s不存在: %w", name, err)
	}
	return fromNet(*ifc)
}

// GetDefaultInterface 返回第一个已启用、非回环、带MAC与IPv4地址的接口
func GetDefaultInterface() (*InterfaceInfo, error) {
	ifcs, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for _, ifc := range ifcs {
		info, err := fromNet(ifc)
		if err != nil || !info.usable() {
			continue
		}
		if _, _, ok := info.FirstIPv4(); ok {
			return info, nil
		}
	}
	return nil, ErrNoInterface
}
