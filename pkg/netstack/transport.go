package netstack

import (
	"sync"
	"time"
)

// Transport 链路层收发接口，一次收发一整个以太网帧
type Transport interface {
	// Receive 读取一帧到frame并返回帧长度，暂无数据时返回ErrNoFrame
	Receive(frame []byte) (int, error)
	// Send 发送frame中的完整帧
	Send(frame []byte) error
}

// MemTransport 内存中的帧队列，用于测试与离线演练。
// 队列为空时Receive最多等待Poll，行为与带读超时的UDPTransport一致
type MemTransport struct {
	Poll time.Duration

	mu      sync.Mutex
	inbox   [][]byte
	sent    [][]byte
	sendErr error
	closed  bool
	notify  chan struct{}
}

const defaultMemPoll = 10 * time.Millisecond

func NewMemTransport() *MemTransport {
	return &MemTransport{Poll: defaultMemPoll, notify: make(chan struct{}, 1)}
}

// Push 投递一帧，供下一次Receive读取
func (t *MemTransport) Push(frame []byte) {
	t.mu.Lock()
	t.inbox = append(t.inbox, append([]byte(nil), frame...))
	t.mu.Unlock()
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

func (t *MemTransport) Receive(frame []byte) (int, error) {
	t.mu.Lock()
	empty, closed := len(t.inbox) == 0, t.closed
	t.mu.Unlock()
	if empty && !closed && t.Poll > 0 {
		select {
		case <-t.notify:
		case <-time.After(t.Poll):
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.inbox) == 0 {
		if t.closed {
			return 0, ErrClosed
		}
		return 0, ErrNoFrame
	}
	next := t.inbox[0]
	t.inbox = t.inbox[1:]
	if len(next) > len(frame) {
		return 0, ErrFrameTooLarge
	}
	return copy(frame, next), nil
}

func (t *MemTransport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, append([]byte(nil), frame...))
	return nil
}

// FailSend 之后的Send均返回err，传nil恢复
func (t *MemTransport) FailSend(err error) {
	t.mu.Lock()
	t.sendErr = err
	t.mu.Unlock()
}

// Sent 返回已发送帧的副本
func (t *MemTransport) Sent() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.sent))
	copy(out, t.sent)
	return out
}

// Pending 返回尚未读取的帧数量
func (t *MemTransport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inbox)
}

// Close 关闭后，队列读空时Receive返回ErrClosed
func (t *MemTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	select {
	case t.notify <- struct{}{}:
	default:
	}
	return nil
}
