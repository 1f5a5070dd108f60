package collab

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

// PeerStore records which protocols each peer has been observed to support,
// bounded to the most recently active peers so a long-lived process doesn't
// accumulate an unbounded record for every peer it has ever spoken to.
type PeerStore struct {
	mu    sync.Mutex
	cache *lru.Cache[types.PeerID, map[types.ProtocolID]struct{}]
}

var _ interfaces.PeerStore = (*PeerStore)(nil)

// NewPeerStore builds a PeerStore retaining at most size peers.
func NewPeerStore(size int) *PeerStore {
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New[types.PeerID, map[types.ProtocolID]struct{}](size)
	if err != nil {
		// Only returns an error for a non-positive size, which is excluded above.
		panic(err)
	}
	return &PeerStore{cache: cache}
}

// Merge is additive and idempotent: repeated negotiation of a protocol
// never duplicates the record.
func (s *PeerStore) Merge(peer types.PeerID, protocols []types.ProtocolID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.cache.Get(peer)
	if !ok {
		set = make(map[types.ProtocolID]struct{}, len(protocols))
	}
	for _, p := range protocols {
		set[p] = struct{}{}
	}
	s.cache.Add(peer, set)
}

// Protocols returns the protocols recorded for peer, or nil if none.
func (s *PeerStore) Protocols(peer types.PeerID) []types.ProtocolID {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.cache.Get(peer)
	if !ok {
		return nil
	}
	out := make([]types.ProtocolID, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}
