package interfaces

import "github.com/p2pkit/upgrader/pkg/types"

// ConnectionManager is the admission collaborator consulted once per inbound
// upgrade, before any bytes are exchanged with the remote.
type ConnectionManager interface {
	// AcceptIncomingConnection decides whether to admit a freshly accepted
	// raw connection at all. Returning false aborts the upgrade immediately.
	AcceptIncomingConnection(maConn MultiaddrConnLike) bool

	// AfterUpgradeInbound releases whatever slot AcceptIncomingConnection
	// reserved. Called exactly once per inbound upgrade attempt, on every
	// exit path (success, failure, or timeout).
	AfterUpgradeInbound()
}

// MultiaddrConnLike is the minimal view of a MultiaddrConnection the
// collaborators need; it avoids an import cycle between the upgrader package
// (which owns the concrete type) and this interfaces package.
type MultiaddrConnLike interface {
	RemoteMultiaddr() types.Multiaddr
}
