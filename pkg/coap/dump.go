package coap

import (
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	log "github.com/junbin-yang/microcoap-go/pkg/utils/logger"
)

func (t Type) String() string {
	switch t {
	case Confirmable:
		return "Confirmable"
	case NonConfirmable:
		return "Non-confirmable"
	case Acknowledgement:
		return "Acknowledgement"
	case Reset:
		return "Reset"
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

var codeNames = map[Code]string{
	Empty:                    "EMPTY",
	GET:                      "GET",
	POST:                     "POST",
	PUT:                      "PUT",
	DELETE:                   "DELETE",
	Created:                  "Created",
	Deleted:                  "Deleted",
	Valid:                    "Valid",
	Changed:                  "Changed",
	Content:                  "Content",
	BadRequest:               "Bad Request",
	Unauthorized:             "Unauthorized",
	BadOption:                "Bad Option",
	Forbidden:                "Forbidden",
	NotFound:                 "Not Found",
	MethodNotAllowed:         "Method Not Allowed",
	NotAcceptable:            "Not Acceptable",
	PreconditionFailed:       "Precondition Failed",
	RequestEntityTooLarge:    "Request Entity Too Large",
	UnsupportedContentFormat: "Unsupported Content-Format",
	InternalServerError:      "Internal Server Error",
	NotImplemented:           "Not Implemented",
	BadGateway:               "Bad Gateway",
	ServiceUnavailable:       "Service Unavailable",
	GatewayTimeout:           "Gateway Timeout",
	ProxyingNotSupported:     "Proxying Not Supported",
}

// String 请求方法返回方法名，其余返回"c.dd 名称"
func (c Code) String() string {
	name, ok := codeNames[c]
	if c.Class() == 0 {
		if ok {
			return name
		}
		return fmt.Sprintf("0.%02d", c.Detail())
	}
	if ok {
		return fmt.Sprintf("%d.%02d %s", c.Class(), c.Detail(), name)
	}
	return fmt.Sprintf("%d.%02d", c.Class(), c.Detail())
}

var optionNames = map[OptionID]string{
	IfMatch:       "If-Match",
	URIHost:       "Uri-Host",
	ETag:          "ETag",
	IfNoneMatch:   "If-None-Match",
	URIPort:       "Uri-Port",
	LocationPath:  "Location-Path",
	URIPath:       "Uri-Path",
	ContentFormat: "Content-Format",
	MaxAge:        "Max-Age",
	URIQuery:      "Uri-Query",
	Accept:        "Accept",
	LocationQuery: "Location-Query",
	ProxyURI:      "Proxy-Uri",
	ProxyScheme:   "Proxy-Scheme",
	Size1:         "Size1",
}

func (id OptionID) String() string {
	if name, ok := optionNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Option(%d)", uint16(id))
}

// LogMessage 以debug级别输出消息摘要
func LogMessage(prefix string, msg *Message) {
	if msg == nil {
		return
	}
	fields := []log.Field{
		log.Stringer("type", msg.Header.Type),
		log.Stringer("code", msg.Header.Code),
		log.Uint16("mid", msg.Header.MessageID),
	}
	if len(msg.Token) > 0 {
		fields = append(fields, log.String("token", hex.EncodeToString(msg.Token)))
	}
	for _, id := range []OptionID{URIPath, ContentFormat, URIQuery, Accept} {
		opt, _ := msg.Options.Get(id)
		if opt.Present() {
			fields = append(fields, log.String(id.String(), optionText(id, opt)))
		}
	}
	if len(msg.Payload) > 0 {
		fields = append(fields, log.Int("payload", len(msg.Payload)))
	}
	log.Debug(prefix, fields...)
}

func optionText(id OptionID, opt Option) string {
	switch id {
	case URIPath, URIQuery:
		if utf8.Valid(opt.Value) {
			return string(opt.Value)
		}
	case ContentFormat, Accept:
		return fmt.Sprintf("%d", opt.Uint())
	}
	return hex.EncodeToString(opt.Value)
}
