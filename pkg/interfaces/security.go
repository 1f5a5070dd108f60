package interfaces

import (
	"context"
	"net"

	"github.com/p2pkit/upgrader/pkg/types"
)

// SecureTransport is a cryptographic handshake protocol offered during the
// encryption stage (e.g. Noise, TLS). Concrete implementations are
// collaborators of the upgrader, not part of it.
type SecureTransport interface {
	// ID is the multistream-select protocol name this transport answers to.
	ID() types.ProtocolID

	// SecureInbound runs the handshake as responder. remotePeer may be empty;
	// the transport is responsible for determining it from the handshake.
	SecureInbound(ctx context.Context, insecure net.Conn, remotePeer types.PeerID) (SecureConn, error)

	// SecureOutbound runs the handshake as initiator. remotePeer is the peer
	// the caller expects to reach; a mismatch with the handshake result is
	// the transport's responsibility to reject.
	SecureOutbound(ctx context.Context, insecure net.Conn, remotePeer types.PeerID) (SecureConn, error)
}

// SecureConn is the encrypted byte stream produced by a handshake, annotated
// with the authenticated remote identity.
type SecureConn interface {
	net.Conn

	LocalPeer() types.PeerID
	RemotePeer() types.PeerID
}
