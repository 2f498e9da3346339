package transport

import (
	"fmt"
	"time"

	"github.com/pebbe/zmq4"

	"pose-relay-go/internal/types"
)

// Subscriber wraps a ZMQ SUB socket connected to the camera producer.
// It subscribes to all topics; topic filtering is not part of the wire
// contract.
type Subscriber struct {
	socket *zmq4.Socket
	poller *zmq4.Poller
	closed bool
}

func NewSubscriber(endpoint string) (*Subscriber, error) {
	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, fmt.Errorf("create SUB socket: %w", err)
	}
	if err := socket.SetSubscribe(""); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("subscribe all: %w", err)
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("connect %s: %w", endpoint, err)
	}
	poller := zmq4.NewPoller()
	poller.Add(socket, zmq4.POLLIN)
	return &Subscriber{socket: socket, poller: poller}, nil
}

// Poll reports whether a message is available within the timeout. The
// message is not consumed.
func (s *Subscriber) Poll(timeout time.Duration) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	ready, err := s.poller.Poll(timeout)
	if err != nil {
		return false, fmt.Errorf("poll camera socket: %w", err)
	}
	return len(ready) > 0, nil
}

// Recv consumes exactly one queued message. The second return value is
// false for messages that violate the two-part framing convention; the
// error return is reserved for socket-level failures.
func (s *Subscriber) Recv() (types.RawMessage, bool, error) {
	if s.closed {
		return types.RawMessage{}, false, ErrClosed
	}
	parts, err := s.socket.RecvMessageBytes(0)
	if err != nil {
		return types.RawMessage{}, false, fmt.Errorf("recv camera frame: %w", err)
	}
	msg, ok := splitParts(parts)
	return msg, ok, nil
}

func (s *Subscriber) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.socket.Close()
}

// Publisher wraps a ZMQ PUB socket bound to a fixed endpoint.
type Publisher struct {
	socket *zmq4.Socket
	closed bool
}

func NewPublisher(endpoint string) (*Publisher, error) {
	socket, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("create PUB socket: %w", err)
	}
	// Do not block process exit on undelivered frames.
	if err := socket.SetLinger(0); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("set linger: %w", err)
	}
	if err := socket.Bind(endpoint); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("bind %s: %w", endpoint, err)
	}
	return &Publisher{socket: socket}, nil
}

// Publish sends meta and payload as one atomic two-part message to all
// current subscribers. With zero subscribers the transport drops the
// message silently.
func (p *Publisher) Publish(meta, payload []byte) error {
	if p.closed {
		return ErrClosed
	}
	if _, err := p.socket.SendMessage(meta, payload); err != nil {
		return fmt.Errorf("publish frame: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.socket.Close()
}
