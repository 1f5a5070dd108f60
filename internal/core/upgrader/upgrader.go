package upgrader

import (
	"context"
	"net"

	"github.com/p2pkit/upgrader/internal/lib/log"
	"github.com/p2pkit/upgrader/internal/netutil"
	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

// classifyUpgradeErr maps a stage failure to the §7 Timeout/Aborted
// taxonomy when ctx itself is why the stage failed, so errors.Is(err,
// ErrTimeout) and errors.Is(err, ErrAborted) are observable to callers
// instead of the ctx error being buried inside an EncryptionFailedError or
// ErrMuxerUnavailable. Stages that didn't fail because of ctx keep their own
// error.
func classifyUpgradeErr(ctx context.Context, err error) error {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ErrTimeout
	case context.Canceled:
		return ErrAborted
	default:
		return err
	}
}

var upgradeLog = log.Logger("core/upgrader")

// Upgrader drives the full connection upgrade state machine described in
// spec.md §2 and §4: admission, protection, encryption, multiplexing,
// gating at each checkpoint, and final Connection assembly.
type Upgrader struct {
	cfg *Config
}

// New constructs an Upgrader. cfg is not copied; mutating it after
// construction is not supported.
func New(cfg *Config) *Upgrader {
	return &Upgrader{cfg: cfg}
}

var _ interfaces.Upgrader = (*Upgrader)(nil)

func (u *Upgrader) UpgradeInbound(ctx context.Context, raw interfaces.RawConn, remoteAddr types.Multiaddr, opts interfaces.UpgradeOpts) (interfaces.UpgradedConnection, error) {
	if u.cfg.ConnectionManager != nil {
		defer u.cfg.ConnectionManager.AfterUpgradeInbound()
	}

	timeout := u.cfg.inboundUpgradeTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	mc := newMAConn(raw, remoteAddr)

	if u.cfg.Metrics != nil {
		u.cfg.Metrics.TrackMultiaddrConnection(mc)
	}

	if u.cfg.ConnectionManager != nil && !u.cfg.ConnectionManager.AcceptIncomingConnection(mc) {
		mc.Abort()
		return nil, ErrConnectionDenied
	}

	if denyInboundConnection(u.cfg.Gater, mc) {
		mc.Abort()
		return nil, newIntercepted("DenyInboundConnection")
	}

	protected, err := u.protect(mc.Conn, opts)
	if err != nil {
		mc.Abort()
		return nil, err
	}

	progress(opts, "upgrader:encrypt-inbound-connection")

	secured, err := u.encryptInbound(ctx, protected, mc, opts)
	if err != nil {
		mc.CloseWithCause(nil)
		return nil, classifyUpgradeErr(ctx, err)
	}

	if denyInboundEncryptedConnection(u.cfg.Gater, secured.remotePeer, secured) {
		mc.CloseWithCause(nil)
		return nil, newIntercepted("DenyInboundEncryptedConnection")
	}

	progress(opts, "upgrader:multiplex-inbound-connection")

	muxerFactory, err := u.negotiateMuxer(ctx, secured, types.DirInbound, opts)
	if err != nil {
		mc.CloseWithCause(nil)
		return nil, classifyUpgradeErr(ctx, err)
	}

	if denyInboundUpgradedConnection(u.cfg.Gater, secured.remotePeer, secured) {
		mc.CloseWithCause(nil)
		return nil, newIntercepted("DenyInboundUpgradedConnection")
	}

	conn, err := assembleConnection(u.cfg, secured, types.DirInbound, muxerFactory, opts.Limits)
	if err != nil {
		mc.CloseWithCause(nil)
		return nil, err
	}
	return conn, nil
}

func (u *Upgrader) UpgradeOutbound(ctx context.Context, raw interfaces.RawConn, remoteAddr types.Multiaddr, remotePeer types.PeerID, opts interfaces.UpgradeOpts) (interfaces.UpgradedConnection, error) {
	if remotePeer.IsEmpty() {
		remotePeer = opts.RemotePeer
	}

	mc := newMAConn(raw, remoteAddr)

	if u.cfg.Metrics != nil {
		u.cfg.Metrics.TrackMultiaddrConnection(mc)
	}

	if !remotePeer.IsEmpty() && denyOutboundConnection(u.cfg.Gater, remotePeer, mc) {
		mc.CloseWithCause(newIntercepted("DenyOutboundConnection"))
		return nil, newIntercepted("DenyOutboundConnection")
	}

	protected, err := u.protect(mc.Conn, opts)
	if err != nil {
		mc.CloseWithCause(err)
		return nil, err
	}

	secured, err := u.encryptOutbound(ctx, protected, mc, remotePeer, opts)
	if err != nil {
		mc.CloseWithCause(err)
		return nil, classifyUpgradeErr(ctx, err)
	}

	if denyOutboundEncryptedConnection(u.cfg.Gater, secured.remotePeer, secured) {
		cause := newIntercepted("DenyOutboundEncryptedConnection")
		mc.CloseWithCause(cause)
		return nil, cause
	}

	muxerFactory, err := u.negotiateMuxer(ctx, secured, types.DirOutbound, opts)
	if err != nil {
		mc.CloseWithCause(err)
		return nil, classifyUpgradeErr(ctx, err)
	}

	if denyOutboundUpgradedConnection(u.cfg.Gater, secured.remotePeer, secured) {
		cause := newIntercepted("DenyOutboundUpgradedConnection")
		mc.CloseWithCause(cause)
		return nil, cause
	}

	conn, err := assembleConnection(u.cfg, secured, types.DirOutbound, muxerFactory, opts.Limits)
	if err != nil {
		mc.CloseWithCause(err)
		return nil, err
	}
	return conn, nil
}

func progress(opts interfaces.UpgradeOpts, event string) {
	if opts.OnProgress != nil {
		opts.OnProgress(event)
	}
}

// protect implements spec.md §4.2.
func (u *Upgrader) protect(conn net.Conn, opts interfaces.UpgradeOpts) (net.Conn, error) {
	if opts.SkipProtection || u.cfg.Protector == nil {
		return conn, nil
	}
	return u.cfg.Protector.Protect(conn)
}

// encryptInbound implements spec.md §4.3, responder side.
func (u *Upgrader) encryptInbound(ctx context.Context, conn net.Conn, mc *maConn, opts interfaces.UpgradeOpts) (*securedConn, error) {
	if opts.SkipEncryption {
		peer, ok := types.PeerIDFromMultiaddr(mc.Addr)
		if !ok {
			return nil, ErrInvalidMultiaddr
		}
		return &securedConn{Conn: netutil.Wrap(conn, mc.Addr, mc.Timeline), remotePeer: peer, protocol: "native"}, nil
	}

	selected, err := negotiateResponder(ctx, conn, u.cfg.securityIDs(), false)
	if err != nil {
		return nil, newEncryptionFailed(err)
	}
	transport := u.cfg.securityByID(selected)
	if transport == nil {
		return nil, newEncryptionFailed(ErrMuxerUnavailable)
	}
	sc, err := transport.SecureInbound(ctx, conn, "")
	if err != nil {
		return nil, newEncryptionFailed(err)
	}
	return &securedConn{Conn: netutil.Wrap(sc, mc.Addr, mc.Timeline), remotePeer: sc.RemotePeer(), protocol: types.ProtocolID(selected)}, nil
}

// encryptOutbound implements spec.md §4.3, initiator side.
func (u *Upgrader) encryptOutbound(ctx context.Context, conn net.Conn, mc *maConn, remotePeer types.PeerID, opts interfaces.UpgradeOpts) (*securedConn, error) {
	if opts.SkipEncryption {
		peer := remotePeer
		if peer.IsEmpty() {
			var ok bool
			peer, ok = types.PeerIDFromMultiaddr(mc.Addr)
			if !ok {
				return nil, ErrInvalidPeerID
			}
		}
		return &securedConn{Conn: netutil.Wrap(conn, mc.Addr, mc.Timeline), remotePeer: peer, protocol: "native"}, nil
	}

	selected, err := negotiateInitiator(ctx, conn, u.cfg.securityIDs(), true)
	if err != nil {
		return nil, newEncryptionFailed(err)
	}
	transport := u.cfg.securityByID(selected)
	if transport == nil {
		return nil, newEncryptionFailed(ErrMuxerUnavailable)
	}
	sc, err := transport.SecureOutbound(ctx, conn, remotePeer)
	if err != nil {
		return nil, newEncryptionFailed(err)
	}
	return &securedConn{Conn: netutil.Wrap(sc, mc.Addr, mc.Timeline), remotePeer: sc.RemotePeer(), protocol: types.ProtocolID(selected)}, nil
}

// negotiateMuxer implements spec.md §4.4 for both directions.
func (u *Upgrader) negotiateMuxer(ctx context.Context, secured *securedConn, dir types.Direction, opts interfaces.UpgradeOpts) (interfaces.StreamMuxerFactory, error) {
	if opts.MuxerFactory != nil {
		return opts.MuxerFactory, nil
	}
	if len(u.cfg.StreamMuxers) == 0 {
		return nil, nil
	}

	ids := u.cfg.muxerIDs()
	var selected string
	var err error
	if dir == types.DirInbound {
		selected, err = negotiateResponder(ctx, secured, ids, false)
	} else {
		selected, err = negotiateInitiator(ctx, secured, ids, true)
	}
	if err != nil {
		return nil, ErrMuxerUnavailable
	}
	factory := u.cfg.muxerByID(selected)
	if factory == nil {
		return nil, ErrMuxerUnavailable
	}
	return factory, nil
}
