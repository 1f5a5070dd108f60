package upgrader

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/p2pkit/upgrader/internal/lib/log"
	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

var connLog = log.Logger("core/upgrader")

// connection is the public handle assembled at the end of a successful
// upgrade (spec.md §3 Connection, §4.5 Connection Object Assembly).
type connection struct {
	*maConn

	remotePeer types.PeerID
	direction  types.Direction
	encryption types.ProtocolID
	muxerID    string
	limits     *interfaces.Limits

	muxConn interfaces.MuxedConn // nil when no muxer was installed

	status atomic.Int32 // interfaces.ConnectionStatus

	// id correlates this connection's log lines across the admission,
	// encryption, and multiplex stages, none of which share a single
	// in-memory object until assembly completes.
	id string

	cfg *Config
}

func (c *connection) RemotePeer() types.PeerID               { return c.remotePeer }
func (c *connection) Direction() types.Direction              { return c.direction }
func (c *connection) Status() interfaces.ConnectionStatus      { return interfaces.ConnectionStatus(c.status.Load()) }
func (c *connection) Timeline() *types.Timeline                { return c.maConn.Timeline }
func (c *connection) Encryption() types.ProtocolID             { return c.encryption }
func (c *connection) Multiplexer() string                      { return c.muxerID }
func (c *connection) Limits() *interfaces.Limits                { return c.limits }

func (c *connection) GetStreams() []interfaces.MuxedStream {
	if c.muxConn == nil {
		return nil
	}
	return c.muxConn.Streams()
}

// Close implements spec.md §4.5: close the muxer first (if any), then the
// underlying transport. Idempotent; concurrent callers all observe the same
// single close.
func (c *connection) Close(opts interfaces.CloseOpts) error {
	c.status.Store(int32(interfaces.StatusClosing))
	if c.muxConn != nil {
		_ = c.muxConn.Close()
	}
	err := c.maConn.CloseWithCause(opts.Cause)
	c.status.Store(int32(interfaces.StatusClosed))
	return err
}

// Abort is fire-and-forget: abort the transport, then the muxer.
func (c *connection) Abort(err error) {
	c.status.Store(int32(interfaces.StatusClosing))
	c.maConn.Abort()
	if c.muxConn != nil {
		_ = c.muxConn.Close()
	}
	c.status.Store(int32(interfaces.StatusClosed))
}

// NewStream is the outbound stream factory, spec.md §4.7. Implemented in
// outbound.go; declared here to keep the interfaces.UpgradedConnection
// method set in one place alongside its sibling accessors.
func (c *connection) NewStream(ctx context.Context, protocols []types.ProtocolID, opts interfaces.NewStreamOpts) (interfaces.MuxedStream, error) {
	return c.newStream(ctx, protocols, opts)
}

// assembleConnection implements spec.md §4.5 steps 1-5. secured is the
// post-encryption (and possibly post-protection) connection; muxerFactory is
// nil when no muxer was negotiated.
func assembleConnection(
	cfg *Config,
	secured *securedConn,
	dir types.Direction,
	muxerFactory interfaces.StreamMuxerFactory,
	limits *interfaces.Limits,
) (*connection, error) {
	mc := &maConn{Conn: secured.Conn}

	conn := &connection{
		maConn:     mc,
		remotePeer: secured.remotePeer,
		direction:  dir,
		encryption: secured.protocol,
		limits:     limits,
		cfg:        cfg,
		id:         uuid.NewString(),
	}

	cell := &connCell{}

	if muxerFactory != nil {
		onIncomingStream := func(stream interfaces.MuxedStream) {
			routeInboundStream(cfg, cell, stream)
		}

		muxConn, err := muxerFactory.NewConn(secured.Conn, dir, onIncomingStream)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMuxerUnavailable, err) // muxer install failure after negotiation surfaces as ErrMuxerUnavailable
		}
		conn.muxConn = muxConn
		conn.muxerID = muxerFactory.ID()
	}

	cell.publish(conn)

	mc.Timeline.SetUpgraded()
	conn.status.Store(int32(interfaces.StatusOpen))

	mc.Timeline.OnClose(func(_ time.Time) {
		dispatchConnectionClosed(cfg, conn)
	})

	connLog.Debug("connection assembled", "id", conn.id, "direction", dir.String(), "remote_peer", conn.remotePeer.ShortString())

	dispatchConnectionOpened(cfg, conn)

	return conn, nil
}
