package netstack

import "errors"

var (
	ErrNoFrame       = errors.New("netstack: no frame available")
	ErrShortFrame    = errors.New("netstack: frame too short")
	ErrFrameTooLarge = errors.New("netstack: frame exceeds buffer")
	ErrNotUDP        = errors.New("netstack: not an IPv4/UDP frame")
	ErrClosed        = errors.New("netstack: transport closed")
	ErrInvalidAddr   = errors.New("netstack: invalid address")
)
