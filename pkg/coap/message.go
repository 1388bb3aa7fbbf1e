package coap

import "github.com/junbin-yang/microcoap-go/pkg/netstack"

// Option 单个已识别选项，Value为空表示未出现
type Option struct {
	Value []byte
}

func (o Option) Len() int      { return len(o.Value) }
func (o Option) Present() bool { return len(o.Value) > 0 }

// Uint 将选项值按大端无符号整数解析（Content-Format、Accept）
func (o Option) Uint() uint32 {
	var v uint32
	for _, b := range o.Value {
		v = v<<8 | uint32(b)
	}
	return v
}

// Options 支持的四个选项槽位，每个槽位最多保存一次出现（后出现者覆盖）
type Options struct {
	URIPath       Option
	URIQuery      Option
	ContentFormat Option
	Accept        Option
}

// Supported 判断选项编号是否可被解码
func Supported(id OptionID) bool {
	switch id {
	case URIPath, URIQuery, ContentFormat, Accept:
		return true
	}
	return false
}

func (o *Options) slot(id OptionID) *Option {
	switch id {
	case URIPath:
		return &o.URIPath
	case URIQuery:
		return &o.URIQuery
	case ContentFormat:
		return &o.ContentFormat
	case Accept:
		return &o.Accept
	}
	return nil
}

// Get 返回对应槽位；不支持的编号返回false
func (o *Options) Get(id OptionID) (Option, bool) {
	s := o.slot(id)
	if s == nil {
		return Option{}, false
	}
	return *s, true
}

func (o *Options) set(id OptionID, value []byte) bool {
	s := o.slot(id)
	if s == nil {
		return false
	}
	s.Value = value
	return true
}

// Reset 清空全部槽位
func (o *Options) Reset() { *o = Options{} }

// Message 一次交互中的CoAP消息及其所在的UDP路由
type Message struct {
	Route   netstack.Route
	Header  Header
	Token   []byte
	Options Options
	Payload []byte
}

// Clone 返回独立于帧缓冲区的副本
func (m *Message) Clone() *Message {
	c := *m
	c.Token = cloneBytes(m.Token)
	c.Options.URIPath.Value = cloneBytes(m.Options.URIPath.Value)
	c.Options.URIQuery.Value = cloneBytes(m.Options.URIQuery.Value)
	c.Options.ContentFormat.Value = cloneBytes(m.Options.ContentFormat.Value)
	c.Options.Accept.Value = cloneBytes(m.Options.Accept.Value)
	c.Payload = cloneBytes(m.Payload)
	return &c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}
