// Package noise implements a libp2p-noise-style SecureTransport: a Noise XX
// handshake that binds an Ed25519 identity to an ephemeral Curve25519
// static key, over github.com/flynn/noise.
package noise

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net"

	"github.com/flynn/noise"

	"github.com/p2pkit/upgrader/internal/lib/log"
	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

// protocolID is the multistream-select name this transport answers to.
const protocolID types.ProtocolID = "/noise"

// payloadSigPrefix binds the handshake's ephemeral static DH key to the
// identity key that signs it, preventing a man-in-the-middle from
// substituting its own static key under a stolen identity key.
const payloadSigPrefix = "noise-libp2p-static-key:"

var noiseLog = log.Logger("security/noise")

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// Transport is a SecureTransport implementing the Noise XX pattern.
type Transport struct {
	identity   ed25519.PrivateKey
	staticDH   noise.DHKey
	identityPK []byte
}

var _ interfaces.SecureTransport = (*Transport)(nil)

// New builds a Transport from a long-term Ed25519 identity key. A fresh
// Curve25519 static keypair is generated and bound to that identity via a
// signature exchanged during every handshake.
func New(identity ed25519.PrivateKey) (*Transport, error) {
	staticDH, err := cipherSuite.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("noise: generate static keypair: %w", err)
	}
	return &Transport{
		identity:   identity,
		staticDH:   staticDH,
		identityPK: []byte(identity.Public().(ed25519.PublicKey)),
	}, nil
}

func (t *Transport) ID() types.ProtocolID { return protocolID }

func (t *Transport) SecureInbound(ctx context.Context, insecure net.Conn, remotePeer types.PeerID) (interfaces.SecureConn, error) {
	return t.handshake(insecure, remotePeer, false)
}

func (t *Transport) SecureOutbound(ctx context.Context, insecure net.Conn, remotePeer types.PeerID) (interfaces.SecureConn, error) {
	return t.handshake(insecure, remotePeer, true)
}

func (t *Transport) localPeer() types.PeerID {
	return types.PeerIDFromPublicKey(t.identityPK)
}
