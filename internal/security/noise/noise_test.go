package noise

import (
	"context"
	"crypto/ed25519"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/p2pkit/upgrader/pkg/types"
)

func newIdentity(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return priv
}

// handshakePair runs a full Noise XX handshake over an in-memory pipe and
// returns both completed secure connections.
func handshakePair(t *testing.T) (initiatorConn, responderConn *secureConn, initiatorPeer, responderPeer types.PeerID) {
	t.Helper()

	initTransport, err := New(newIdentity(t))
	require.NoError(t, err)
	respTransport, err := New(newIdentity(t))
	require.NoError(t, err)

	initiatorPeer = initTransport.localPeer()
	responderPeer = respTransport.localPeer()

	clientRaw, serverRaw := net.Pipe()

	var wg sync.WaitGroup
	wg.Add(2)

	var initSecure, respSecure *secureConn
	var initErr, respErr error

	go func() {
		defer wg.Done()
		sc, err := initTransport.SecureOutbound(context.Background(), clientRaw, types.EmptyPeerID)
		if err == nil {
			initSecure = sc.(*secureConn)
		}
		initErr = err
	}()
	go func() {
		defer wg.Done()
		sc, err := respTransport.SecureInbound(context.Background(), serverRaw, types.EmptyPeerID)
		if err == nil {
			respSecure = sc.(*secureConn)
		}
		respErr = err
	}()
	wg.Wait()

	require.NoError(t, initErr)
	require.NoError(t, respErr)
	return initSecure, respSecure, initiatorPeer, responderPeer
}

func TestHandshakeBindsIdentities(t *testing.T) {
	initConn, respConn, initiatorPeer, responderPeer := handshakePair(t)
	defer initConn.Close()
	defer respConn.Close()

	require.Equal(t, initiatorPeer, initConn.LocalPeer())
	require.Equal(t, responderPeer, respConn.LocalPeer())
	require.Equal(t, responderPeer, initConn.RemotePeer())
	require.Equal(t, initiatorPeer, respConn.RemotePeer())
}

func TestSecureConnEncryptsTraffic(t *testing.T) {
	initConn, respConn, _, _ := handshakePair(t)
	defer initConn.Close()
	defer respConn.Close()

	msg := []byte("the message never appears in plaintext on the wire")
	go func() {
		_, _ = initConn.Write(msg)
	}()

	buf := make([]byte, len(msg))
	_, err := io.ReadFull(respConn, buf)
	require.NoError(t, err)
	require.Equal(t, msg, buf)
}

func TestHandshakeRejectsPeerMismatch(t *testing.T) {
	initTransport, err := New(newIdentity(t))
	require.NoError(t, err)
	respTransport, err := New(newIdentity(t))
	require.NoError(t, err)

	clientRaw, serverRaw := net.Pipe()

	var wg sync.WaitGroup
	wg.Add(2)
	var initErr, respErr error
	go func() {
		defer wg.Done()
		_, initErr = initTransport.SecureOutbound(context.Background(), clientRaw, "not-the-real-responder")
	}()
	go func() {
		defer wg.Done()
		_, respErr = respTransport.SecureInbound(context.Background(), serverRaw, types.EmptyPeerID)
	}()
	wg.Wait()

	require.Error(t, initErr)
	// The responder's own handshake completes fine; only the initiator, who
	// supplied an expected peer id, detects the mismatch.
	require.NoError(t, respErr)
}

func TestPayloadRoundTrip(t *testing.T) {
	identity := newIdentity(t)
	transport, err := New(identity)
	require.NoError(t, err)

	payload, err := transport.signedPayload()
	require.NoError(t, err)

	peer, err := verifyPayload(payload, transport.staticDH.Public)
	require.NoError(t, err)
	require.Equal(t, transport.localPeer(), peer)
}

func TestVerifyPayloadRejectsMismatchedStaticKey(t *testing.T) {
	identity := newIdentity(t)
	transport, err := New(identity)
	require.NoError(t, err)

	payload, err := transport.signedPayload()
	require.NoError(t, err)

	otherStatic := make([]byte, 32)
	_, err = verifyPayload(payload, otherStatic)
	require.Error(t, err)
}
