// Package types defines the value types shared across the upgrade pipeline:
// peer identities, protocol names, directions, and multiaddresses. They are
// pure value types with no dependency on any other internal package.
package types

import (
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"
)

// PeerID is a peer's stable identity, a base58-encoded hash of its public key.
type PeerID string

// EmptyPeerID is the zero value, used to mean "no peer id known yet".
const EmptyPeerID PeerID = ""

// ErrEmptyPeerID is returned by Validate when the id is empty.
var ErrEmptyPeerID = errors.New("types: empty peer id")

func (id PeerID) String() string { return string(id) }

// ShortString truncates a peer id for compact log lines.
func (id PeerID) ShortString() string {
	s := string(id)
	if len(s) <= 10 {
		return s
	}
	return s[:8] + "…"
}

// IsEmpty reports whether the id carries no identity at all.
func (id PeerID) IsEmpty() bool { return id == EmptyPeerID }

// Validate checks that id base58-decodes to a non-empty byte string.
func (id PeerID) Validate() error {
	if id.IsEmpty() {
		return ErrEmptyPeerID
	}
	_, err := base58.Decode(string(id))
	return err
}

// PeerIDFromPublicKey derives a PeerID the way every identity in this module
// does: base58(sha256(rawPublicKeyBytes)).
func PeerIDFromPublicKey(rawPubKey []byte) PeerID {
	sum := sha256.Sum256(rawPubKey)
	return PeerID(base58.Encode(sum[:]))
}

// ProtocolID names a sub-protocol negotiated over multistream-select, e.g.
// "/noise", "/yamux/1.0.0", "/echo/1.0.0".
type ProtocolID string

// Direction is the initiating side of a connection or stream.
type Direction int

const (
	// DirUnknown is the zero value; no upgrade or stream should ever report it.
	DirUnknown Direction = iota
	DirInbound
	DirOutbound
)

func (d Direction) String() string {
	switch d {
	case DirInbound:
		return "inbound"
	case DirOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}
