package yamux

import (
	"context"
	"fmt"
	"sync"

	tec "github.com/jbenet/go-temp-err-catcher"

	hyamux "github.com/hashicorp/yamux"

	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

type muxedConn struct {
	session *hyamux.Session

	mu      sync.RWMutex
	streams map[uint32]*muxedStream
}

var _ interfaces.MuxedConn = (*muxedConn)(nil)

func newMuxedConn(session *hyamux.Session) *muxedConn {
	return &muxedConn{session: session, streams: make(map[uint32]*muxedStream)}
}

func (m *muxedConn) OpenStream(ctx context.Context) (interfaces.MuxedStream, error) {
	if m.IsClosed() {
		return nil, fmt.Errorf("yamux: muxer closed")
	}

	type result struct {
		s   *hyamux.Stream
		err error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := m.session.OpenStream()
		select {
		case ch <- result{s, err}:
		default:
			if s != nil {
				_ = s.Close()
			}
		}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("yamux: open stream: %w", r.err)
		}
		stream := newMuxedStream(r.s, types.DirOutbound, m)
		m.addStream(stream)
		return stream, nil
	}
}

func (m *muxedConn) acceptLoop(onIncomingStream func(interfaces.MuxedStream)) {
	for {
		s, err := m.session.AcceptStream()
		if err != nil {
			var catcher tec.TempErrCatcher
			if m.IsClosed() || !catcher.IsTemporary(err) {
				return
			}
			continue
		}
		stream := newMuxedStream(s, types.DirInbound, m)
		m.addStream(stream)
		onIncomingStream(stream)
	}
}

func (m *muxedConn) Streams() []interfaces.MuxedStream {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]interfaces.MuxedStream, 0, len(m.streams))
	for _, s := range m.streams {
		out = append(out, s)
	}
	return out
}

func (m *muxedConn) Close() error {
	m.mu.Lock()
	streams := make([]*muxedStream, 0, len(m.streams))
	for _, s := range m.streams {
		streams = append(streams, s)
	}
	m.streams = make(map[uint32]*muxedStream)
	m.mu.Unlock()

	for _, s := range streams {
		_ = s.Close()
	}
	return m.session.Close()
}

func (m *muxedConn) IsClosed() bool { return m.session.IsClosed() }

func (m *muxedConn) addStream(s *muxedStream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[s.stream.StreamID()] = s
}

func (m *muxedConn) removeStream(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.streams, id)
}
