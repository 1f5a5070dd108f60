package collab

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

func TestConnManagerAdmitsUpToCeiling(t *testing.T) {
	m := NewConnManager(2)

	require.True(t, m.AcceptIncomingConnection(nil))
	require.True(t, m.AcceptIncomingConnection(nil))
	require.False(t, m.AcceptIncomingConnection(nil))

	// Releasing exactly once per attempt, including the denied one, brings
	// the ceiling back down regardless of the admission outcome.
	m.AfterUpgradeInbound()
	m.AfterUpgradeInbound()
	m.AfterUpgradeInbound()

	require.True(t, m.AcceptIncomingConnection(nil))
}

func TestConnManagerUnlimitedWhenNonPositive(t *testing.T) {
	m := NewConnManager(0)
	for i := 0; i < 100; i++ {
		require.True(t, m.AcceptIncomingConnection(nil))
	}
}

func TestGaterBlocksEveryPeerIDCheckpoint(t *testing.T) {
	g := NewGater()
	peer := types.PeerID("blocked-peer")

	require.False(t, g.DenyInboundConnection(nil))
	require.False(t, g.DenyInboundEncryptedConnection(peer, nil))

	g.BlockPeer(peer)

	require.False(t, g.DenyInboundConnection(nil), "pre-encryption checkpoint has no peer id to check")
	require.True(t, g.DenyInboundEncryptedConnection(peer, nil))
	require.True(t, g.DenyInboundUpgradedConnection(peer, nil))
	require.True(t, g.DenyOutboundConnection(peer, nil))
	require.True(t, g.DenyOutboundEncryptedConnection(peer, nil))
	require.True(t, g.DenyOutboundUpgradedConnection(peer, nil))

	g.UnblockPeer(peer)
	require.False(t, g.DenyOutboundConnection(peer, nil))
}

func TestRegistrarSetAndRemove(t *testing.T) {
	r := NewRegistrar()
	_, err := r.GetHandler("/echo/1.0.0")
	require.ErrorIs(t, err, interfaces.ErrUnhandledProtocol)

	called := false
	r.SetHandler("/echo/1.0.0", func(interfaces.UpgradedConnection, interfaces.MuxedStream) {
		called = true
	}, interfaces.HandlerOptions{MaxInboundStreams: 5})

	entry, err := r.GetHandler("/echo/1.0.0")
	require.NoError(t, err)
	require.Equal(t, 5, entry.Options.MaxInboundStreams)
	entry.Handler(nil, nil)
	require.True(t, called)

	require.Equal(t, []types.ProtocolID{"/echo/1.0.0"}, r.Protocols())

	r.RemoveHandler("/echo/1.0.0")
	_, err = r.GetHandler("/echo/1.0.0")
	require.ErrorIs(t, err, interfaces.ErrUnhandledProtocol)
	require.Empty(t, r.Protocols())
}

func TestPeerStoreMergeIsAdditive(t *testing.T) {
	s := NewPeerStore(16)
	peer := types.PeerID("peer-a")

	s.Merge(peer, []types.ProtocolID{"/a/1.0.0"})
	s.Merge(peer, []types.ProtocolID{"/b/1.0.0", "/a/1.0.0"})

	got := s.Protocols(peer)
	require.ElementsMatch(t, []types.ProtocolID{"/a/1.0.0", "/b/1.0.0"}, got)
}

func TestPeerStoreUnknownPeer(t *testing.T) {
	s := NewPeerStore(16)
	require.Nil(t, s.Protocols("never-seen"))
}

type openedEvt struct{ Peer types.PeerID }

func TestEventBusDeliversToSubscriber(t *testing.T) {
	bus := NewEventBus()
	ch := Subscribe[openedEvt](bus, 1)

	emitter, err := bus.Emitter(openedEvt{})
	require.NoError(t, err)
	defer emitter.Close()

	require.NoError(t, emitter.Emit(openedEvt{Peer: "peer-x"}))

	evt := <-ch
	require.Equal(t, types.PeerID("peer-x"), evt.Peer)
}

func TestMetricsTrackCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.CountDialerEvent("connect")

	gathered, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, gathered)
}
