package types

import (
	ma "github.com/multiformats/go-multiaddr"
	"github.com/mr-tron/base58"
)

// Multiaddr re-exports the multiformats representation so every package in
// this module speaks the same self-describing address format as the wider
// libp2p ecosystem, instead of inventing a parallel one.
type Multiaddr = ma.Multiaddr

// NewMultiaddr parses a multiaddr string, e.g. "/ip4/1.2.3.4/tcp/4001/p2p/Qm...".
func NewMultiaddr(s string) (Multiaddr, error) {
	return ma.NewMultiaddr(s)
}

// PeerIDFromMultiaddr extracts the trailing /p2p/<id> component, if any.
// The component's value is itself the base58 identity the rest of this
// module uses as types.PeerID.
func PeerIDFromMultiaddr(addr Multiaddr) (PeerID, bool) {
	if addr == nil {
		return EmptyPeerID, false
	}
	v, err := addr.ValueForProtocol(ma.P_P2P)
	if err != nil {
		return EmptyPeerID, false
	}
	raw, err := base58.Decode(v)
	if err != nil || len(raw) == 0 {
		return EmptyPeerID, false
	}
	return PeerID(v), true
}
