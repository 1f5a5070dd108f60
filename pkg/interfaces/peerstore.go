package interfaces

import "github.com/p2pkit/upgrader/pkg/types"

// PeerStore is the additive record of what a peer has been observed to
// support. Merge must be idempotent: repeated negotiation of the same
// protocol never duplicates entries.
type PeerStore interface {
	Merge(peer types.PeerID, protocols []types.ProtocolID)
}
