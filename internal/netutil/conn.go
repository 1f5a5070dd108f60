// Package netutil holds the MultiaddrConnection plumbing shared by every
// stage of the upgrade pipeline: a raw transport connection annotated with a
// remote multiaddress and a single Timeline instance that survives protector
// wrapping, the handshake, and muxer negotiation without being recreated.
package netutil

import (
	"net"
	"sync"

	"github.com/p2pkit/upgrader/pkg/types"
)

// Conn is the MultiaddrConnection of spec.md §3. Each upgrade stage
// constructs a new Conn over the previous stage's (possibly wrapped) net.Conn
// but carries the same *types.Timeline pointer forward, so Timeline queries
// made against any stage's Conn observe the same stamps.
type Conn struct {
	net.Conn
	Addr     types.Multiaddr
	Timeline *types.Timeline

	mu     sync.Mutex
	closed bool
}

// New builds a Conn with a fresh Timeline, for the first stage of an upgrade.
func New(conn net.Conn, addr types.Multiaddr) *Conn {
	return Wrap(conn, addr, types.NewTimeline())
}

// Wrap builds a Conn over an existing Timeline, for every stage after the
// first, so the whole pipeline shares one Timeline per connection attempt.
func Wrap(conn net.Conn, addr types.Multiaddr, timeline *types.Timeline) *Conn {
	return &Conn{Conn: conn, Addr: addr, Timeline: timeline}
}

func (c *Conn) RemoteMultiaddr() types.Multiaddr { return c.Addr }

// CloseWithCause closes the underlying connection at most once and marks the
// Timeline closed. cause may be nil; it is not stored.
func (c *Conn) CloseWithCause(cause error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.Conn.Close()
	c.Timeline.MarkClosed()
	return err
}

// Abort is CloseWithCause without a cause, for paths that have none to report.
func (c *Conn) Abort() {
	_ = c.CloseWithCause(nil)
}
