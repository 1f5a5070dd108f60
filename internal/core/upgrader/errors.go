package upgrader

import "fmt"

// ErrConnectionDenied is returned when the connection manager refuses
// admission before any bytes are exchanged with the remote.
var ErrConnectionDenied = fmt.Errorf("upgrader: connection denied")

// ErrInvalidMultiaddr is returned when an inbound skip-encryption upgrade's
// multiaddress carries no peer id.
var ErrInvalidMultiaddr = fmt.Errorf("upgrader: invalid multiaddr: missing peer id")

// ErrInvalidPeerID is returned when an outbound skip-encryption upgrade has
// no peer id available from either the caller or the multiaddress.
var ErrInvalidPeerID = fmt.Errorf("upgrader: invalid peer id")

// ErrMuxerUnavailable is returned when muxer negotiation fails, or when
// NewStream is called on a connection that has no installed muxer.
var ErrMuxerUnavailable = fmt.Errorf("upgrader: muxer unavailable")

// ErrLimitedConnection is returned when a handler without
// RunOnLimitedConnection is offered a stream on a limited connection.
var ErrLimitedConnection = fmt.Errorf("upgrader: connection is limited")

// ErrTimeout is returned when the inbound upgrade timer, or the default
// protocol-select timer, fires before the operation completes.
var ErrTimeout = fmt.Errorf("upgrader: timeout")

// ErrAborted is returned when the caller's context is cancelled mid-upgrade.
var ErrAborted = fmt.Errorf("upgrader: aborted")

// ConnectionInterceptedError names the specific gater checkpoint that denied
// the connection.
type ConnectionInterceptedError struct {
	Method string
}

func (e *ConnectionInterceptedError) Error() string {
	return fmt.Sprintf("upgrader: connection intercepted by %s", e.Method)
}

func newIntercepted(method string) error {
	return &ConnectionInterceptedError{Method: method}
}

// EncryptionFailedError wraps the underlying handshake or negotiation
// failure with the encryption-stage context.
type EncryptionFailedError struct {
	Inner error
}

func (e *EncryptionFailedError) Error() string {
	return fmt.Sprintf("upgrader: encryption failed: %v", e.Inner)
}

func (e *EncryptionFailedError) Unwrap() error { return e.Inner }

func newEncryptionFailed(inner error) error {
	return &EncryptionFailedError{Inner: inner}
}

// TooManyInboundProtocolStreamsError reports a per-protocol inbound cap hit.
type TooManyInboundProtocolStreamsError struct {
	Protocol string
	Limit    int
}

func (e *TooManyInboundProtocolStreamsError) Error() string {
	return fmt.Sprintf("upgrader: too many inbound streams for %s (limit %d)", e.Protocol, e.Limit)
}

// TooManyOutboundProtocolStreamsError reports a per-protocol outbound cap hit.
type TooManyOutboundProtocolStreamsError struct {
	Protocol string
	Count    int
	Limit    int
}

func (e *TooManyOutboundProtocolStreamsError) Error() string {
	return fmt.Sprintf("upgrader: too many outbound streams for %s (%d >= limit %d)", e.Protocol, e.Count, e.Limit)
}
