package interfaces

import (
	"context"
	"net"

	"github.com/p2pkit/upgrader/pkg/types"
)

// StreamMuxerFactory installs a stream multiplexer over an already encrypted
// connection. One factory instance is shared by every connection that
// negotiates its protocol; NewConn is called once per connection.
type StreamMuxerFactory interface {
	// ID is the multistream-select protocol name, e.g. "/yamux/1.0.0".
	ID() string

	// NewConn creates the muxer session. onIncomingStream is called once per
	// inbound substream the remote opens, from a goroutine owned by the
	// muxer; it must not block for long.
	NewConn(conn net.Conn, dir types.Direction, onIncomingStream func(MuxedStream)) (MuxedConn, error)
}

// MuxedConn is a muxer session: a single encrypted byte pipe carrying many
// independent substreams.
type MuxedConn interface {
	OpenStream(ctx context.Context) (MuxedStream, error)
	Streams() []MuxedStream
	Close() error
	IsClosed() bool
}

// MuxedStream is one substream. Protocol is unset (empty) until the router
// or outbound factory negotiates and rebinds it.
type MuxedStream interface {
	net.Conn

	CloseWrite() error
	CloseRead() error
	Reset() error

	ID() uint64
	Direction() types.Direction
	Protocol() types.ProtocolID
	SetProtocol(types.ProtocolID)
	Timeline() *types.Timeline
}
