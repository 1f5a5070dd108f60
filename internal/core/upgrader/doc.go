// Package upgrader turns a raw, accepted or dialed transport connection
// into an authenticated, encrypted, multiplexed peer connection.
//
// The pipeline runs, in order: admission (ConnectionManager + gater),
// optional pre-shared-key protection, cryptographic handshake negotiation,
// stream-muxer negotiation, and finally assembly of the public Connection
// object that routes inbound streams and opens outbound ones. Every stage
// is gated; any denial or failure tears down the whole attempt.
package upgrader
