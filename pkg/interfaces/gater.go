package interfaces

import "github.com/p2pkit/upgrader/pkg/types"

// ConnectionGater vets a connection at up to three points during its upgrade
// (six checkpoints in all, three per direction). It is
// itself optional (a nil Gater means "allow everything"), and so is every
// individual checkpoint: a gater only needs to implement the sub-interfaces
// for the checkpoints it cares about, following the same optional-interface
// pattern as http.Hijacker/http.Flusher. Checking support for each checkpoint
// is a type assertion against Gater at call time (see gating.go).
type ConnectionGater = any

// InboundConnectionGater vets a raw inbound connection before encryption.
type InboundConnectionGater interface {
	DenyInboundConnection(maConn MultiaddrConnLike) bool
}

// InboundEncryptedConnectionGater vets an inbound connection right after the
// handshake produced a verified remote identity.
type InboundEncryptedConnectionGater interface {
	DenyInboundEncryptedConnection(remote types.PeerID, maConn MultiaddrConnLike) bool
}

// InboundUpgradedConnectionGater vets an inbound connection after multiplexing.
type InboundUpgradedConnectionGater interface {
	DenyInboundUpgradedConnection(remote types.PeerID, maConn MultiaddrConnLike) bool
}

// OutboundConnectionGater vets an outbound dial before any bytes are sent,
// when the target peer id is already known.
type OutboundConnectionGater interface {
	DenyOutboundConnection(remote types.PeerID, maConn MultiaddrConnLike) bool
}

// OutboundEncryptedConnectionGater vets an outbound connection after the handshake.
type OutboundEncryptedConnectionGater interface {
	DenyOutboundEncryptedConnection(remote types.PeerID, maConn MultiaddrConnLike) bool
}

// OutboundUpgradedConnectionGater vets an outbound connection after multiplexing.
type OutboundUpgradedConnectionGater interface {
	DenyOutboundUpgradedConnection(remote types.PeerID, maConn MultiaddrConnLike) bool
}
