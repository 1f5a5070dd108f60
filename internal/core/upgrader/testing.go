package upgrader

import (
	"context"
	"net"
	"sync"

	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

// plaintextSecurity is a test-only SecureTransport that performs no
// handshake at all: it reports a fixed peer id and hands back the
// connection unmodified. Grounded on the same shape as a real
// SecureTransport so tests exercise the same negotiation path as noise.
type plaintextSecurity struct {
	id   types.ProtocolID
	peer types.PeerID
}

func (s *plaintextSecurity) ID() types.ProtocolID { return s.id }

func (s *plaintextSecurity) SecureInbound(_ context.Context, insecure net.Conn, _ types.PeerID) (interfaces.SecureConn, error) {
	return &plaintextConn{Conn: insecure, local: "local-test-peer", remote: s.peer}, nil
}

func (s *plaintextSecurity) SecureOutbound(_ context.Context, insecure net.Conn, remotePeer types.PeerID) (interfaces.SecureConn, error) {
	if remotePeer.IsEmpty() {
		remotePeer = s.peer
	}
	return &plaintextConn{Conn: insecure, local: "local-test-peer", remote: remotePeer}, nil
}

type plaintextConn struct {
	net.Conn
	local, remote types.PeerID
}

func (c *plaintextConn) LocalPeer() types.PeerID  { return c.local }
func (c *plaintextConn) RemotePeer() types.PeerID { return c.remote }

// permissiveConnManager accepts everything and records call counts.
type permissiveConnManager struct {
	mu               sync.Mutex
	accepted         int
	afterUpgradeInbd int
}

func (m *permissiveConnManager) AcceptIncomingConnection(interfaces.MultiaddrConnLike) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted++
	return true
}

func (m *permissiveConnManager) AfterUpgradeInbound() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.afterUpgradeInbd++
}

// staticRegistrar is a fixed, test-only protocol table.
type staticRegistrar struct {
	mu      sync.Mutex
	entries map[types.ProtocolID]interfaces.HandlerEntry
	order   []types.ProtocolID
}

func newStaticRegistrar() *staticRegistrar {
	return &staticRegistrar{entries: map[types.ProtocolID]interfaces.HandlerEntry{}}
}

func (r *staticRegistrar) Register(protocol types.ProtocolID, entry interfaces.HandlerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[protocol]; !exists {
		r.order = append(r.order, protocol)
	}
	r.entries[protocol] = entry
}

func (r *staticRegistrar) Protocols() []types.ProtocolID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.ProtocolID, len(r.order))
	copy(out, r.order)
	return out
}

func (r *staticRegistrar) GetHandler(protocol types.ProtocolID) (interfaces.HandlerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[protocol]
	if !ok {
		return interfaces.HandlerEntry{}, interfaces.ErrUnhandledProtocol
	}
	return entry, nil
}

// recordingPeerStore captures merge calls for assertions.
type recordingPeerStore struct {
	mu    sync.Mutex
	calls []struct {
		peer      types.PeerID
		protocols []types.ProtocolID
	}
}

func (p *recordingPeerStore) Merge(peer types.PeerID, protocols []types.ProtocolID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, struct {
		peer      types.PeerID
		protocols []types.ProtocolID
	}{peer, protocols})
}
