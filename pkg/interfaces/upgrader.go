// Package interfaces defines the contracts the upgrader depends on, and the
// contract it exposes in turn. Concrete collaborators — the connection
// manager, gater, registrar, peer store, metrics, and event bus — live
// elsewhere; this package only pins down the shapes everyone agrees on.
package interfaces

import (
	"context"
	"net"

	"github.com/p2pkit/upgrader/pkg/types"
)

// Limits caps resource usage on a connection that was admitted under
// restricted conditions (e.g. relayed). A non-nil Limits on a Connection
// means only handlers that opted into RunOnLimitedConnection may route
// streams over it.
type Limits struct {
	Bytes        int64
	BitsPerSecond int64
}

// UpgradeOpts customizes one upgrade call.
type UpgradeOpts struct {
	// SkipProtection bypasses the pre-shared-key protector stage even if one
	// is configured.
	SkipProtection bool

	// SkipEncryption bypasses the handshake entirely; the resulting
	// connection's encryption protocol is reported as "native".
	SkipEncryption bool

	// MuxerFactory, if set, is used directly instead of negotiating one.
	MuxerFactory StreamMuxerFactory

	// Limits, if set, marks the resulting connection as limited.
	Limits *Limits

	// OnProgress, if set, receives named progress events as the upgrade runs
	// (e.g. "upgrader:encrypt-inbound-connection").
	OnProgress func(event string)

	// RemotePeer is the peer the caller expects to reach. UpgradeOutbound
	// uses it when its remotePeer argument is empty. Required for outbound
	// upgrades that skip encryption and whose multiaddress carries no /p2p
	// component.
	RemotePeer types.PeerID
}

// NewStreamOpts customizes one outbound NewStream call.
type NewStreamOpts struct {
	// MaxOutboundStreams overrides the default outbound cap when the
	// registrar's handler entry doesn't specify one.
	MaxOutboundStreams int
}

// CloseOpts customizes a Close call.
type CloseOpts struct {
	// Cause is the caller's reason for the close. It is accepted but not
	// stored: neither the Timeline nor the close event carries it.
	Cause error
}

// ConnectionStatus is the coarse-grained lifecycle state of a Connection.
type ConnectionStatus int32

const (
	StatusOpen ConnectionStatus = iota
	StatusClosing
	StatusClosed
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosing:
		return "closing"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// UpgradedConnection is the public handle returned by a successful upgrade.
type UpgradedConnection interface {
	MultiaddrConnLike

	RemotePeer() types.PeerID
	Direction() types.Direction
	Status() ConnectionStatus
	Timeline() *types.Timeline

	// Encryption is the negotiated handshake protocol, or "native" if
	// encryption was skipped.
	Encryption() types.ProtocolID

	// Multiplexer is the negotiated muxer protocol, or "" if none was
	// installed (NewStream then always fails with ErrMuxerUnavailable).
	Multiplexer() string

	// Limits is nil unless the connection was upgraded with limits set.
	Limits() *Limits

	// NewStream opens a new muxed stream and negotiates one of protocols,
	// in preference order.
	NewStream(ctx context.Context, protocols []types.ProtocolID, opts NewStreamOpts) (MuxedStream, error)

	// GetStreams returns the muxer's live stream set, or nil if unmultiplexed.
	GetStreams() []MuxedStream

	Close(opts CloseOpts) error
	Abort(err error)
}

// Upgrader turns a raw transport connection into an UpgradedConnection.
type Upgrader interface {
	UpgradeInbound(ctx context.Context, raw RawConn, remoteAddr types.Multiaddr, opts UpgradeOpts) (UpgradedConnection, error)
	UpgradeOutbound(ctx context.Context, raw RawConn, remoteAddr types.Multiaddr, remotePeer types.PeerID, opts UpgradeOpts) (UpgradedConnection, error)
}

// RawConn is the freshly dialed or accepted transport connection the
// upgrader starts from. Deadlines are required: every negotiation stage
// bounds its own exchange with SetDeadline rather than relying on a single
// context cancellation propagating into blocking I/O.
type RawConn = net.Conn
