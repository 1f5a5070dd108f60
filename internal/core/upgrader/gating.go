package upgrader

import (
	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

// Every gater checkpoint is an optional single-method interface (see
// pkg/interfaces/gater.go); absence of the method on the configured Gater
// means "allow". Each helper below type-asserts and defaults to false
// (allow) when the Gater doesn't implement that checkpoint, or is nil.

func denyInboundConnection(gater interfaces.ConnectionGater, maConn interfaces.MultiaddrConnLike) bool {
	g, ok := gater.(interfaces.InboundConnectionGater)
	if !ok {
		return false
	}
	return g.DenyInboundConnection(maConn)
}

func denyInboundEncryptedConnection(gater interfaces.ConnectionGater, remote types.PeerID, maConn interfaces.MultiaddrConnLike) bool {
	g, ok := gater.(interfaces.InboundEncryptedConnectionGater)
	if !ok {
		return false
	}
	return g.DenyInboundEncryptedConnection(remote, maConn)
}

func denyInboundUpgradedConnection(gater interfaces.ConnectionGater, remote types.PeerID, maConn interfaces.MultiaddrConnLike) bool {
	g, ok := gater.(interfaces.InboundUpgradedConnectionGater)
	if !ok {
		return false
	}
	return g.DenyInboundUpgradedConnection(remote, maConn)
}

func denyOutboundConnection(gater interfaces.ConnectionGater, remote types.PeerID, maConn interfaces.MultiaddrConnLike) bool {
	g, ok := gater.(interfaces.OutboundConnectionGater)
	if !ok {
		return false
	}
	return g.DenyOutboundConnection(remote, maConn)
}

func denyOutboundEncryptedConnection(gater interfaces.ConnectionGater, remote types.PeerID, maConn interfaces.MultiaddrConnLike) bool {
	g, ok := gater.(interfaces.OutboundEncryptedConnectionGater)
	if !ok {
		return false
	}
	return g.DenyOutboundEncryptedConnection(remote, maConn)
}

func denyOutboundUpgradedConnection(gater interfaces.ConnectionGater, remote types.PeerID, maConn interfaces.MultiaddrConnLike) bool {
	g, ok := gater.(interfaces.OutboundUpgradedConnectionGater)
	if !ok {
		return false
	}
	return g.DenyOutboundUpgradedConnection(remote, maConn)
}
