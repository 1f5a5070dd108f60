package upgrader

import (
	"net"
	"sync"

	"github.com/p2pkit/upgrader/internal/netutil"
	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

// maConn is the MultiaddrConnection of spec.md §3, the first stage of every
// upgrade. Every later stage wraps netutil.Conn again rather than mutating
// this one in place, but all of them share its Timeline.
type maConn struct {
	*netutil.Conn
}

func newMAConn(conn net.Conn, remoteAddr types.Multiaddr) *maConn {
	return &maConn{Conn: netutil.New(conn, remoteAddr)}
}

// securedConn is a MultiaddrConnection plus the authenticated remote identity
// and chosen handshake protocol name (spec.md §3 SecuredConnection). It wraps
// the handshake-produced net.Conn but shares the originating maConn's Timeline.
type securedConn struct {
	*netutil.Conn
	remotePeer types.PeerID
	protocol   types.ProtocolID
}

// connCell is the mutable single-slot holder the onIncomingStream callback
// closes over, resolving the cyclic reference between the muxer (created
// first) and the Connection it is created for (published second). See
// SPEC_FULL.md §5, "Cyclic onIncomingStream reference".
type connCell struct {
	mu   sync.Mutex
	conn interfaces.UpgradedConnection
}

func (c *connCell) publish(conn interfaces.UpgradedConnection) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *connCell) get() interfaces.UpgradedConnection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}
