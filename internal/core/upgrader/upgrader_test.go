package upgrader

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/p2pkit/upgrader/internal/collab"
	yamuxmux "github.com/p2pkit/upgrader/internal/muxer/yamux"
	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

func testConfig(t *testing.T, peer types.PeerID) (*Config, *staticRegistrar, *recordingPeerStore) {
	t.Helper()
	registrar := newStaticRegistrar()
	peerstore := &recordingPeerStore{}
	cfg := &Config{
		SecurityTransports: []interfaces.SecureTransport{&plaintextSecurity{id: "/plaintext/1.0.0", peer: peer}},
		StreamMuxers:       []interfaces.StreamMuxerFactory{yamuxmux.NewFactory(yamuxmux.Config{})},
		Registrar:          registrar,
		PeerStore:          peerstore,
	}
	return cfg, registrar, peerstore
}

// addrFor returns a plain transport multiaddr. A real /p2p/<id> component
// isn't usable here since the test peer ids aren't valid multihash-encoded
// values; remote peer identity flows through SecureTransport/remotePeer
// parameters instead, exactly as it does for a real dial.
func addrFor(t *testing.T, _ types.PeerID) types.Multiaddr {
	t.Helper()
	a, err := types.NewMultiaddr("/ip4/127.0.0.1/tcp/4001")
	require.NoError(t, err)
	return a
}

// TestHappyPathInbound mirrors spec scenario S1: one security transport, one
// muxer, both sides agree, and the direction/encryption/multiplexer fields
// are set. No EventBus is configured, so connection:open is not observed here.
func TestHappyPathInbound(t *testing.T) {
	serverPeer := mustPeerID(t, "server-identity")
	clientPeer := mustPeerID(t, "client-identity")

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	serverCfg, _, _ := testConfig(t, serverPeer)
	clientCfg, _, _ := testConfig(t, clientPeer)

	serverUp := New(serverCfg)
	clientUp := New(clientCfg)

	var wg sync.WaitGroup
	wg.Add(2)

	var inbound, outbound interfaces.UpgradedConnection
	var inboundErr, outboundErr error

	go func() {
		defer wg.Done()
		inbound, inboundErr = serverUp.UpgradeInbound(context.Background(), serverConn, addrFor(t, clientPeer), interfaces.UpgradeOpts{})
	}()
	go func() {
		defer wg.Done()
		outbound, outboundErr = clientUp.UpgradeOutbound(context.Background(), clientConn, addrFor(t, serverPeer), serverPeer, interfaces.UpgradeOpts{})
	}()
	wg.Wait()

	require.NoError(t, inboundErr)
	require.NoError(t, outboundErr)
	require.Equal(t, types.DirInbound, inbound.Direction())
	require.Equal(t, types.DirOutbound, outbound.Direction())
	require.Equal(t, types.ProtocolID("/plaintext/1.0.0"), inbound.Encryption())
	require.Equal(t, "/yamux/1.0.0", inbound.Multiplexer())
	require.Equal(t, "/yamux/1.0.0", outbound.Multiplexer())
}

// TestOutboundStreamLimit mirrors spec scenario S4's outbound analogue: the
// count>=limit check rejects once the cap is reached.
func TestOutboundStreamLimit(t *testing.T) {
	serverPeer := mustPeerID(t, "server-identity-2")
	clientPeer := mustPeerID(t, "client-identity-2")

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	serverCfg, serverRegistrar, _ := testConfig(t, serverPeer)
	clientCfg, _, _ := testConfig(t, clientPeer)

	// No inbound cap registered here: this test only exercises the
	// outbound-side count>=limit check, via the caller-supplied
	// NewStreamOpts.MaxOutboundStreams below. A matching inbound cap on the
	// server would race against it, since both sides see every stream.
	serverRegistrar.Register("/echo/1.0.0", interfaces.HandlerEntry{
		Handler: func(conn interfaces.UpgradedConnection, stream interfaces.MuxedStream) {
			go io_copyLoop(stream)
		},
	})

	serverUp := New(serverCfg)
	clientUp := New(clientCfg)

	var wg sync.WaitGroup
	wg.Add(2)
	var inbound, outbound interfaces.UpgradedConnection
	go func() {
		defer wg.Done()
		inbound, _ = serverUp.UpgradeInbound(context.Background(), serverConn, addrFor(t, clientPeer), interfaces.UpgradeOpts{})
	}()
	go func() {
		defer wg.Done()
		outbound, _ = clientUp.UpgradeOutbound(context.Background(), clientConn, addrFor(t, serverPeer), serverPeer, interfaces.UpgradeOpts{})
	}()
	wg.Wait()
	require.NotNil(t, inbound)
	require.NotNil(t, outbound)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s1, err := outbound.NewStream(ctx, []types.ProtocolID{"/echo/1.0.0"}, interfaces.NewStreamOpts{MaxOutboundStreams: 2})
	require.NoError(t, err)
	defer s1.Close()

	s2, err := outbound.NewStream(ctx, []types.ProtocolID{"/echo/1.0.0"}, interfaces.NewStreamOpts{MaxOutboundStreams: 2})
	require.NoError(t, err)
	defer s2.Close()

	_, err = outbound.NewStream(ctx, []types.ProtocolID{"/echo/1.0.0"}, interfaces.NewStreamOpts{MaxOutboundStreams: 2})
	require.Error(t, err)
	var limitErr *TooManyOutboundProtocolStreamsError
	require.ErrorAs(t, err, &limitErr)
}

// TestSkipEncryptionRequiresPeerID mirrors spec scenario S5.
func TestSkipEncryptionRequiresPeerID(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	cfg := &Config{}
	up := New(cfg)

	addr, err := types.NewMultiaddr("/ip4/127.0.0.1/tcp/4001")
	require.NoError(t, err)

	_, err = up.UpgradeOutbound(context.Background(), clientConn, addr, types.EmptyPeerID, interfaces.UpgradeOpts{SkipEncryption: true})
	require.ErrorIs(t, err, ErrInvalidPeerID)
}

// TestGaterDeniesOutboundConnection exercises the pre-handshake outbound
// checkpoint: DenyOutboundConnection already knows the dialed peer id, so a
// blocked peer never reaches the protector or the handshake at all.
func TestGaterDeniesOutboundConnection(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	blockedPeer := mustPeerID(t, "blocked-outbound-peer")

	gater := collab.NewGater()
	gater.BlockPeer(blockedPeer)

	cfg := &Config{Gater: gater}
	up := New(cfg)

	_, err := up.UpgradeOutbound(context.Background(), clientConn, addrFor(t, blockedPeer), blockedPeer, interfaces.UpgradeOpts{})
	require.Error(t, err)
	var intercepted *ConnectionInterceptedError
	require.ErrorAs(t, err, &intercepted)
}

// TestGaterDeniesInboundEncryptedConnection exercises the post-handshake
// inbound checkpoint: DenyInboundEncryptedConnection only learns the remote
// peer id once the handshake has authenticated it.
func TestGaterDeniesInboundEncryptedConnection(t *testing.T) {
	serverPeer := mustPeerID(t, "server-identity-gate")
	clientPeer := mustPeerID(t, "client-identity-gate")

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	// plaintextSecurity.SecureInbound always reports its configured peer as
	// the remote, regardless of who actually dialed in; build the server's
	// config with clientPeer so the inbound handshake "authenticates" the
	// dialing side the gater is about to block.
	serverCfg, _, _ := testConfig(t, clientPeer)
	gater := collab.NewGater()
	gater.BlockPeer(clientPeer)
	serverCfg.Gater = gater

	clientCfg, _, _ := testConfig(t, serverPeer)

	serverUp := New(serverCfg)
	clientUp := New(clientCfg)

	var wg sync.WaitGroup
	wg.Add(2)
	var inboundErr, outboundErr error
	go func() {
		defer wg.Done()
		_, inboundErr = serverUp.UpgradeInbound(context.Background(), serverConn, addrFor(t, clientPeer), interfaces.UpgradeOpts{})
	}()
	go func() {
		defer wg.Done()
		_, outboundErr = clientUp.UpgradeOutbound(context.Background(), clientConn, addrFor(t, serverPeer), serverPeer, interfaces.UpgradeOpts{})
	}()
	wg.Wait()

	require.Error(t, inboundErr)
	var intercepted *ConnectionInterceptedError
	require.ErrorAs(t, inboundErr, &intercepted)
	// The client's own outbound upgrade completes the handshake before the
	// server tears its side down; it either fails once the server hangs up
	// or races the teardown, so only the inbound (denying) side is asserted.
	_ = outboundErr
}

// TestInboundUpgradeTimeout mirrors spec invariant on bounded inbound
// upgrades: a peer that never speaks multistream-select must not hang the
// upgrade forever.
func TestInboundUpgradeTimeout(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	cfg, _, _ := testConfig(t, mustPeerID(t, "timeout-server"))
	cfg.InboundUpgradeTimeout = 50 * time.Millisecond
	up := New(cfg)

	addr, err := types.NewMultiaddr("/ip4/127.0.0.1/tcp/4001")
	require.NoError(t, err)

	_, err = up.UpgradeInbound(context.Background(), serverConn, addr, interfaces.UpgradeOpts{})
	require.ErrorIs(t, err, ErrTimeout)
}

func mustPeerID(t *testing.T, seed string) types.PeerID {
	t.Helper()
	return types.PeerIDFromPublicKey([]byte(seed))
}

func io_copyLoop(stream interfaces.MuxedStream) {
	buf := make([]byte, 512)
	for {
		_, err := stream.Read(buf)
		if err != nil {
			return
		}
	}
}
