package collab

import (
	"sync"

	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

// Gater is a default ConnectionGater backed by a peer blocklist. It
// implements every optional checkpoint interface so tests can exercise the
// full gating sequence, but any subset of them is a valid Gater in
// production — the upgrader only type-asserts for the ones it needs.
type Gater struct {
	mu      sync.RWMutex
	blocked map[types.PeerID]struct{}
}

var (
	_ interfaces.InboundConnectionGater            = (*Gater)(nil)
	_ interfaces.InboundEncryptedConnectionGater    = (*Gater)(nil)
	_ interfaces.InboundUpgradedConnectionGater     = (*Gater)(nil)
	_ interfaces.OutboundConnectionGater            = (*Gater)(nil)
	_ interfaces.OutboundEncryptedConnectionGater   = (*Gater)(nil)
	_ interfaces.OutboundUpgradedConnectionGater    = (*Gater)(nil)
)

// NewGater builds an empty Gater: nothing is blocked until BlockPeer is called.
func NewGater() *Gater {
	return &Gater{blocked: make(map[types.PeerID]struct{})}
}

// BlockPeer denies peer from now on at every checkpoint that receives a peer
// id; DenyInboundConnection receives none and is unaffected.
func (g *Gater) BlockPeer(peer types.PeerID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blocked[peer] = struct{}{}
}

// UnblockPeer reverses BlockPeer.
func (g *Gater) UnblockPeer(peer types.PeerID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.blocked, peer)
}

func (g *Gater) isBlocked(peer types.PeerID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, blocked := g.blocked[peer]
	return blocked
}

// DenyInboundConnection has no peer id to check yet (pre-encryption); it
// always allows. Subclass or replace this Gater if address-based denial is
// needed before the handshake runs.
func (g *Gater) DenyInboundConnection(interfaces.MultiaddrConnLike) bool { return false }

func (g *Gater) DenyInboundEncryptedConnection(remote types.PeerID, _ interfaces.MultiaddrConnLike) bool {
	return g.isBlocked(remote)
}

func (g *Gater) DenyInboundUpgradedConnection(remote types.PeerID, _ interfaces.MultiaddrConnLike) bool {
	return g.isBlocked(remote)
}

func (g *Gater) DenyOutboundConnection(remote types.PeerID, _ interfaces.MultiaddrConnLike) bool {
	return g.isBlocked(remote)
}

func (g *Gater) DenyOutboundEncryptedConnection(remote types.PeerID, _ interfaces.MultiaddrConnLike) bool {
	return g.isBlocked(remote)
}

func (g *Gater) DenyOutboundUpgradedConnection(remote types.PeerID, _ interfaces.MultiaddrConnLike) bool {
	return g.isBlocked(remote)
}
