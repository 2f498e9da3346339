// Package transport holds the ZeroMQ bindings for the relay: one SUB
// socket connected to the camera producer and two PUB sockets bound for
// downstream consumers. Publishing is fire-and-forget; with no
// subscribers attached a publish is a silent no-op, which is the
// decoupling point that lets producer and consumer cadence differ.
package transport

import (
	"errors"
	"time"

	"pose-relay-go/internal/types"
)

// ErrClosed reports an operation on a socket that has been closed.
var ErrClosed = errors.New("transport: socket closed")

// FrameSource is the inbound side of the relay. Poll reports whether a
// message is available without consuming it; Recv consumes exactly one.
type FrameSource interface {
	Poll(timeout time.Duration) (bool, error)
	Recv() (types.RawMessage, bool, error)
	Close() error
}

// FrameSink is one outbound channel. Publish sends an atomic two-part
// message and never blocks on slow or absent subscribers.
type FrameSink interface {
	Publish(meta, payload []byte) error
	Close() error
}

// splitParts validates the two-part framing convention. Messages with
// any other part count are malformed and reported as not-ok so the
// caller can count and skip them.
func splitParts(parts [][]byte) (types.RawMessage, bool) {
	if len(parts) != 2 {
		return types.RawMessage{}, false
	}
	return types.RawMessage{Meta: parts[0], Payload: parts[1]}, true
}
