package interfaces

import (
	"errors"

	"github.com/p2pkit/upgrader/pkg/types"
)

// ErrUnhandledProtocol is returned by Registrar.GetHandler when no handler is
// registered for the requested protocol. Callers that only want a stream
// limit default rather than a hard failure check for this specific error.
var ErrUnhandledProtocol = errors.New("registrar: unhandled protocol")

// StreamHandler processes one freshly negotiated inbound stream.
type StreamHandler func(conn UpgradedConnection, stream MuxedStream)

// HandlerOptions configures how a registered handler participates in stream
// admission.
type HandlerOptions struct {
	// MaxInboundStreams caps concurrent inbound streams for this protocol on
	// a single connection. Zero means "use the router's default".
	MaxInboundStreams int

	// MaxOutboundStreams caps concurrent outbound streams similarly.
	MaxOutboundStreams int

	// RunOnLimitedConnection opts the handler into running on connections
	// that carry a non-nil Limits. Handlers that don't set this are refused
	// such connections.
	RunOnLimitedConnection bool
}

// HandlerEntry is what the registrar hands back for a protocol.
type HandlerEntry struct {
	Handler StreamHandler
	Options HandlerOptions
}

// Registrar is the protocol handler table the inbound stream router and the
// outbound stream factory consult. Its protocol list is read fresh on every
// inbound stream arrival, not cached at connection-creation time, so handlers
// registered after a connection opens are still reachable.
type Registrar interface {
	// Protocols lists every protocol currently registered, in the order
	// handlers should be offered to a remote peer.
	Protocols() []types.ProtocolID

	// GetHandler looks up the entry for protocol, or ErrUnhandledProtocol.
	GetHandler(protocol types.ProtocolID) (HandlerEntry, error)
}
