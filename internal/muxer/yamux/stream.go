package yamux

import (
	"net"
	"sync/atomic"
	"time"

	hyamux "github.com/hashicorp/yamux"

	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

type muxedStream struct {
	stream *hyamux.Stream
	dir    types.Direction
	tl     *types.Timeline
	conn   *muxedConn

	closed   atomic.Bool
	protocol atomic.Value // types.ProtocolID
}

var _ interfaces.MuxedStream = (*muxedStream)(nil)

func newMuxedStream(s *hyamux.Stream, dir types.Direction, conn *muxedConn) *muxedStream {
	ms := &muxedStream{stream: s, dir: dir, tl: types.NewTimeline(), conn: conn}
	ms.protocol.Store(types.ProtocolID(""))
	return ms
}

func (s *muxedStream) Read(p []byte) (int, error)  { return s.stream.Read(p) }
func (s *muxedStream) Write(p []byte) (int, error) { return s.stream.Write(p) }

func (s *muxedStream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.tl.MarkClosed()
	s.conn.removeStream(s.stream.StreamID())
	return s.stream.Close()
}

func (s *muxedStream) LocalAddr() net.Addr  { return s.stream.LocalAddr() }
func (s *muxedStream) RemoteAddr() net.Addr { return s.stream.RemoteAddr() }

func (s *muxedStream) SetDeadline(t time.Time) error      { return s.stream.SetDeadline(t) }
func (s *muxedStream) SetReadDeadline(t time.Time) error  { return s.stream.SetReadDeadline(t) }
func (s *muxedStream) SetWriteDeadline(t time.Time) error { return s.stream.SetWriteDeadline(t) }

// CloseRead emulates a read half-close: yamux has no true half-close, so
// reads are made to fail immediately instead. Calling SetReadDeadline with a
// zero time afterwards would re-enable reads, but nothing in this module
// does that.
func (s *muxedStream) CloseRead() error {
	return s.stream.SetReadDeadline(time.Now())
}

// CloseWrite fully closes the stream: yamux's Close sends FIN on both
// directions, so there is no way to close only the write half.
func (s *muxedStream) CloseWrite() error {
	return s.Close()
}

func (s *muxedStream) Reset() error {
	return s.Close()
}

func (s *muxedStream) ID() uint64 { return uint64(s.stream.StreamID()) }

func (s *muxedStream) Direction() types.Direction { return s.dir }

func (s *muxedStream) Protocol() types.ProtocolID {
	return s.protocol.Load().(types.ProtocolID)
}

func (s *muxedStream) SetProtocol(p types.ProtocolID) {
	s.protocol.Store(p)
}

func (s *muxedStream) Timeline() *types.Timeline { return s.tl }
