// Package pnet implements pre-shared-key connection protection: an XSalsa20
// stream cipher keyed by sha256(psk), applied uniformly to both directions
// of the connection. This is the same technique go-libp2p-pnet uses to keep
// a swarm private without a full handshake; it is not itself authenticated,
// which is why it only ever runs underneath the encryption stage, never in
// place of it.
package pnet

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"golang.org/x/crypto/salsa20"

	"github.com/p2pkit/upgrader/pkg/interfaces"
)

const nonceSize = 24
const maxFrame = 1 << 20

// PSK is a pre-shared key used to key every connection's protector.
type PSK [32]byte

// NewPSK derives a PSK by hashing an arbitrary-length secret, so operators
// can provision a passphrase of any length rather than exactly 32 bytes.
func NewPSK(secret []byte) PSK {
	return sha256.Sum256(secret)
}

// Protector wraps connections in an XSalsa20 tunnel keyed by a shared PSK.
// No handshake is performed beyond the key itself; protection is symmetric
// and requires no round trip.
type Protector struct {
	key PSK
}

var _ interfaces.Protector = (*Protector)(nil)

// New builds a Protector from a PSK.
func New(key PSK) *Protector {
	return &Protector{key: key}
}

func (p *Protector) Protect(conn net.Conn) (net.Conn, error) {
	return &protectedConn{Conn: conn, key: p.key}, nil
}

// protectedConn frames every Write as one self-contained XSalsa20-sealed
// message: a fresh random nonce, then the ciphertext, length-prefixed on
// the wire. Framing per message (rather than treating the connection as one
// continuous keystream) avoids having to track a byte-exact stream position
// across Read/Write calls that may chunk differently than their peer's.
type protectedConn struct {
	net.Conn
	key PSK

	readBuf []byte
}

func (c *protectedConn) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		chunk := p
		if len(chunk) > maxFrame {
			chunk = chunk[:maxFrame]
		}

		var nonce [nonceSize]byte
		if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
			return written, fmt.Errorf("pnet: generate nonce: %w", err)
		}

		ciphertext := make([]byte, len(chunk))
		key := c.key
		salsa20.XORKeyStream(ciphertext, chunk, nonce[:], (*[32]byte)(&key))

		frame := make([]byte, 4+nonceSize+len(ciphertext))
		binary.BigEndian.PutUint32(frame[:4], uint32(nonceSize+len(ciphertext)))
		copy(frame[4:4+nonceSize], nonce[:])
		copy(frame[4+nonceSize:], ciphertext)

		if _, err := c.Conn.Write(frame); err != nil {
			return written, err
		}
		written += len(chunk)
		p = p[len(chunk):]
	}
	return written, nil
}

func (c *protectedConn) Read(p []byte) (int, error) {
	if len(c.readBuf) == 0 {
		var lenBuf [4]byte
		if _, err := io.ReadFull(c.Conn, lenBuf[:]); err != nil {
			return 0, err
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		if n < nonceSize || n > maxFrame+nonceSize {
			return 0, fmt.Errorf("pnet: invalid frame length %d", n)
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(c.Conn, body); err != nil {
			return 0, err
		}
		nonce, ciphertext := body[:nonceSize], body[nonceSize:]
		plaintext := make([]byte, len(ciphertext))
		key := c.key
		salsa20.XORKeyStream(plaintext, ciphertext, nonce, (*[32]byte)(&key))
		c.readBuf = plaintext
	}

	n := copy(p, c.readBuf)
	c.readBuf = c.readBuf[n:]
	return n, nil
}
