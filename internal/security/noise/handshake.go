package noise

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/flynn/noise"

	"github.com/p2pkit/upgrader/pkg/types"
)

func (t *Transport) handshake(conn net.Conn, expectedPeer types.PeerID, isInitiator bool) (*secureConn, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeXX,
		Initiator:     isInitiator,
		StaticKeypair: t.staticDH,
	})
	if err != nil {
		return nil, fmt.Errorf("noise: create handshake state: %w", err)
	}

	localPayload, err := t.signedPayload()
	if err != nil {
		return nil, fmt.Errorf("noise: build payload: %w", err)
	}

	var send, recv *noise.CipherState
	var remotePayload []byte
	if isInitiator {
		send, recv, remotePayload, err = runInitiator(conn, hs, localPayload)
	} else {
		send, recv, remotePayload, err = runResponder(conn, hs, localPayload)
	}
	if err != nil {
		return nil, fmt.Errorf("noise: handshake: %w", err)
	}

	remoteStatic := hs.PeerStatic()
	if len(remoteStatic) != 32 {
		return nil, fmt.Errorf("noise: invalid remote static key length %d", len(remoteStatic))
	}

	remotePeer, err := verifyPayload(remotePayload, remoteStatic)
	if err != nil {
		return nil, fmt.Errorf("noise: verify remote identity: %w", err)
	}
	if !expectedPeer.IsEmpty() && remotePeer != expectedPeer {
		return nil, fmt.Errorf("noise: remote peer mismatch: expected %s, got %s", expectedPeer, remotePeer)
	}

	return &secureConn{
		Conn:       conn,
		send:       send,
		recv:       recv,
		localPeer:  t.localPeer(),
		remotePeer: remotePeer,
	}, nil
}

// signedPayload returns the identity pubkey and a signature over
// payloadSigPrefix+staticDH.Public, which the remote verifies against the
// static key it just received in the handshake.
func (t *Transport) signedPayload() ([]byte, error) {
	toSign := append([]byte(payloadSigPrefix), t.staticDH.Public...)
	sig := ed25519.Sign(t.identity, toSign)
	return marshalPayload(t.identityPK, sig), nil
}

func marshalPayload(identityKey, sig []byte) []byte {
	buf := make([]byte, 2+len(identityKey)+2+len(sig))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(identityKey)))
	n := copy(buf[2:], identityKey)
	binary.BigEndian.PutUint16(buf[2+n:4+n], uint16(len(sig)))
	copy(buf[4+n:], sig)
	return buf
}

func unmarshalPayload(b []byte) (identityKey, sig []byte, err error) {
	if len(b) < 2 {
		return nil, nil, fmt.Errorf("payload too short")
	}
	klen := int(binary.BigEndian.Uint16(b[0:2]))
	if len(b) < 2+klen+2 {
		return nil, nil, fmt.Errorf("payload truncated")
	}
	identityKey = b[2 : 2+klen]
	slen := int(binary.BigEndian.Uint16(b[2+klen : 4+klen]))
	if len(b) < 4+klen+slen {
		return nil, nil, fmt.Errorf("payload truncated")
	}
	sig = b[4+klen : 4+klen+slen]
	return identityKey, sig, nil
}

func verifyPayload(payload []byte, remoteStatic []byte) (types.PeerID, error) {
	identityKey, sig, err := unmarshalPayload(payload)
	if err != nil {
		return "", err
	}
	if len(identityKey) != ed25519.PublicKeySize {
		return "", fmt.Errorf("unexpected identity key length %d", len(identityKey))
	}
	toVerify := append([]byte(payloadSigPrefix), remoteStatic...)
	if !ed25519.Verify(ed25519.PublicKey(identityKey), toVerify, sig) {
		return "", fmt.Errorf("signature does not bind static key to identity")
	}
	return types.PeerIDFromPublicKey(identityKey), nil
}

// runInitiator drives the XX pattern as the handshake's initiator:
// -> e ; <- e, ee, s, es, payload ; -> s, se, payload
func runInitiator(conn net.Conn, hs *noise.HandshakeState, payload []byte) (send, recv *noise.CipherState, remotePayload []byte, err error) {
	msg1, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 1: %w", err)
	}
	if err := writeFrame(conn, msg1); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 1: %w", err)
	}

	msg2, err := readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 2: %w", err)
	}
	remotePayload, _, _, err = hs.ReadMessage(nil, msg2)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read message 2: %w", err)
	}

	msg3, cs1, cs2, err := hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 3: %w", err)
	}
	if err := writeFrame(conn, msg3); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 3: %w", err)
	}

	return cs1, cs2, remotePayload, nil
}

// runResponder drives the XX pattern as the handshake's responder:
// <- e ; -> e, ee, s, es, payload ; <- s, se, payload
func runResponder(conn net.Conn, hs *noise.HandshakeState, payload []byte) (send, recv *noise.CipherState, remotePayload []byte, err error) {
	msg1, err := readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 1: %w", err)
	}
	if _, _, _, err = hs.ReadMessage(nil, msg1); err != nil {
		return nil, nil, nil, fmt.Errorf("read message 1: %w", err)
	}

	msg2, _, _, err := hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 2: %w", err)
	}
	if err := writeFrame(conn, msg2); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 2: %w", err)
	}

	msg3, err := readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 3: %w", err)
	}
	remotePayload, cs1, cs2, err := hs.ReadMessage(nil, msg3)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read message 3: %w", err)
	}

	// for the responder, WriteMessage/ReadMessage's (cs1, cs2) pair is
	// (recv, send) rather than (send, recv) as for the initiator.
	return cs2, cs1, remotePayload, nil
}

func writeFrame(w io.Writer, data []byte) error {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	if n == 0 {
		return nil, nil
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
