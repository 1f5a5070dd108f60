package yamux

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

func newPair(t *testing.T) (*muxedConn, *muxedConn, func()) {
	t.Helper()
	client, server := net.Pipe()

	var received []interfaces.MuxedStream
	var mu sync.Mutex
	onIncoming := func(s interfaces.MuxedStream) {
		mu.Lock()
		received = append(received, s)
		mu.Unlock()
	}

	serverFactory := NewFactory(Config{})
	clientFactory := NewFactory(Config{})

	serverConn, err := serverFactory.NewConn(server, types.DirInbound, onIncoming)
	require.NoError(t, err)
	clientConn, err := clientFactory.NewConn(client, types.DirOutbound, nil)
	require.NoError(t, err)

	return clientConn.(*muxedConn), serverConn.(*muxedConn), func() {
		_ = clientConn.Close()
		_ = serverConn.Close()
	}
}

func TestOpenStreamRoundTrip(t *testing.T) {
	client, server, cleanup := newPair(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	cs, err := client.OpenStream(ctx)
	require.NoError(t, err)
	require.Equal(t, types.DirOutbound, cs.Direction())

	msg := []byte("hello")
	go func() {
		_, _ = cs.Write(msg)
	}()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(server.Streams()) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Len(t, server.Streams(), 1)

	ss := server.Streams()[0]
	require.Equal(t, types.DirInbound, ss.Direction())

	buf := make([]byte, len(msg))
	_, err = io.ReadFull(ss, buf)
	require.NoError(t, err)
	require.Equal(t, msg, buf)
}

func TestOpenStreamRespectsContextCancellation(t *testing.T) {
	client, _, cleanup := newPair(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.OpenStream(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStreamProtocolRoundTrip(t *testing.T) {
	client, _, cleanup := newPair(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cs, err := client.OpenStream(ctx)
	require.NoError(t, err)
	require.Equal(t, types.ProtocolID(""), cs.Protocol())

	cs.SetProtocol("/echo/1.0.0")
	require.Equal(t, types.ProtocolID("/echo/1.0.0"), cs.Protocol())
}

func TestCloseIsIdempotent(t *testing.T) {
	client, _, cleanup := newPair(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cs, err := client.OpenStream(ctx)
	require.NoError(t, err)
	require.NoError(t, cs.Close())
	require.NoError(t, cs.Close())
}

// TestCloseRemovesStreamFromConn guards against streams piling up in
// muxedConn.streams forever: once a stream closes, it must drop out of
// Streams() so GetStreams() and the per-protocol stream counts in
// router.go/outbound.go only ever see live streams.
func TestCloseRemovesStreamFromConn(t *testing.T) {
	client, _, cleanup := newPair(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cs, err := client.OpenStream(ctx)
	require.NoError(t, err)
	require.Len(t, client.Streams(), 1)

	require.NoError(t, cs.Close())
	require.Empty(t, client.Streams())
}

// TestResetRemovesStreamFromConn mirrors TestCloseRemovesStreamFromConn for
// the Reset path, since muxedStream.Reset delegates to Close.
func TestResetRemovesStreamFromConn(t *testing.T) {
	client, _, cleanup := newPair(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cs, err := client.OpenStream(ctx)
	require.NoError(t, err)
	require.Len(t, client.Streams(), 1)

	require.NoError(t, cs.Reset())
	require.Empty(t, client.Streams())
}
